package mavlink

// Wire layout constants, matching original_source/include/mav/MessageDefinition.h.
const (
	AnyID            = -1
	DefaultSystemID  = 97
	DefaultComponentID = 97

	V1HeaderOffset = 4
	HeaderSize     = 10

	MaxPayloadSize = 255
	ChecksumSize   = 2
	SignatureSize  = 13
	MaxMessageSize = MaxPayloadSize + HeaderSize + ChecksumSize + SignatureSize
)

// MessageDefinition is an immutable, compiled description of one message
// type's field layout: byte offsets (assigned size-descending for
// non-extension fields, then extension fields in declaration order), the
// crc-extra fingerprint, and payload/buffer size bounds.
type MessageDefinition struct {
	name             string
	id               int
	fieldOrder       []string
	fields           map[string]Field
	crcExtra         uint8
	maxPayloadLength int
	maxBufferLength  int
}

// Name returns the message's schema name.
func (d *MessageDefinition) Name() string { return d.name }

// ID returns the message's 24-bit numeric identifier.
func (d *MessageDefinition) ID() int { return d.id }

// CRCExtra returns the 8-bit fingerprint computed over non-extension fields.
func (d *MessageDefinition) CRCExtra() uint8 { return d.crcExtra }

// MaxPayloadLength returns the total payload width in bytes (all fields,
// including extensions, with no zero-truncation applied).
func (d *MessageDefinition) MaxPayloadLength() int { return d.maxPayloadLength }

// MaxBufferLength returns HeaderSize + MaxPayloadLength + trailer bytes —
// the largest buffer a finalized message of this type could occupy.
func (d *MessageDefinition) MaxBufferLength() int { return d.maxBufferLength }

// FieldByName looks up a field definition, reporting whether it exists.
func (d *MessageDefinition) FieldByName(name string) (Field, bool) {
	f, ok := d.fields[name]
	return f, ok
}

// FieldNames returns field names in on-wire offset order (non-extension
// fields first, size-descending as compiled; extension fields last, in
// declaration order).
func (d *MessageDefinition) FieldNames() []string {
	out := make([]string, len(d.fieldOrder))
	copy(out, d.fieldOrder)
	return out
}

// ContainsField reports whether the message has a field with the given name.
func (d *MessageDefinition) ContainsField(name string) bool {
	_, ok := d.fields[name]
	return ok
}

// NewCompiledDefinition constructs a MessageDefinition directly from already
// compiled field data, bypassing Builder's sort/offset/crc-extra derivation.
// schemacache uses this to restore a definition from a cached snapshot
// without re-deriving values (in particular crc_extra) that depend on the
// non-extension/extension split a cache entry does not need to preserve
// field-by-field.
func NewCompiledDefinition(name string, id int, fieldOrder []string, fields map[string]Field, crcExtra uint8, maxPayloadLength int) *MessageDefinition {
	return &MessageDefinition{
		name:             name,
		id:               id,
		fieldOrder:       fieldOrder,
		fields:           fields,
		crcExtra:         crcExtra,
		maxPayloadLength: maxPayloadLength,
		maxBufferLength:  HeaderSize + maxPayloadLength + ChecksumSize + SignatureSize,
	}
}
