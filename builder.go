package mavlink

import (
	"sort"

	"github.com/gomav/mavlink/crc"
)

// Builder compiles a MessageDefinition from declaration-order field data,
// mirroring MessageDefinitionBuilder::build() in
// original_source/include/mav/MessageDefinition.h: non-extension fields are
// stable-sorted descending by base-type size (for minimal padding and to
// match the reference crc_extra), offsets are assigned starting at
// HeaderSize, and extension fields are appended afterward in declaration
// order without participating in the sort or the crc_extra fold.
type Builder struct {
	name       string
	id         int
	fields     []Field
	extensions []Field
}

// NewBuilder starts a message definition for the given name and numeric id.
func NewBuilder(name string, id int) *Builder {
	return &Builder{name: name, id: id}
}

// AddField appends a non-extension field in declaration order. Panics on a
// duplicate field name or an array_size < 1, the same two checks
// LoadXMLString/LoadXMLFile perform themselves before ever calling
// AddField, so a message compiled directly through Builder (as every test
// helper does) gets the same guarantee.
func (b *Builder) AddField(name string, t FieldType) *Builder {
	b.checkNewField(name, t)
	b.fields = append(b.fields, Field{Name: name, Type: t})
	return b
}

// AddExtensionField appends a field declared after the <extensions/> marker.
// Extension fields never affect crc_extra and are never reordered. Subject
// to the same duplicate-name and array_size checks as AddField.
func (b *Builder) AddExtensionField(name string, t FieldType) *Builder {
	b.checkNewField(name, t)
	b.extensions = append(b.extensions, Field{Name: name, Type: t})
	return b
}

func (b *Builder) checkNewField(name string, t FieldType) {
	if t.ArraySize < 1 {
		panic("mavlink: field " + name + " in message " + b.name + " has array_size < 1")
	}
	for _, f := range b.fields {
		if f.Name == name {
			panic("mavlink: duplicate field name " + name + " in message " + b.name)
		}
	}
	for _, f := range b.extensions {
		if f.Name == name {
			panic("mavlink: duplicate field name " + name + " in message " + b.name)
		}
	}
}

// Build compiles the accumulated fields into an immutable MessageDefinition.
func (b *Builder) Build() *MessageDefinition {
	ordered := make([]Field, len(b.fields))
	copy(ordered, b.fields)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Type.Base.Size() > ordered[j].Type.Base.Size()
	})

	fields := make(map[string]Field, len(ordered)+len(b.extensions))
	order := make([]string, 0, len(ordered)+len(b.extensions))

	offset := HeaderSize
	for _, f := range ordered {
		f.Offset = offset
		fields[f.Name] = f
		order = append(order, f.Name)
		offset += f.Type.Width()
	}

	crcEngine := crc.New()
	crcEngine.AccumulateString(b.name + " ")
	for _, f := range ordered {
		crcEngine.AccumulateString(f.Type.Base.crcName() + " " + f.Name + " ")
		if f.Type.ArraySize > 1 {
			crcEngine.Accumulate(byte(f.Type.ArraySize))
		}
	}

	for _, f := range b.extensions {
		f.Offset = offset
		fields[f.Name] = f
		order = append(order, f.Name)
		offset += f.Type.Width()
	}

	payloadLen := offset - HeaderSize

	return &MessageDefinition{
		name:             b.name,
		id:               b.id,
		fieldOrder:       order,
		fields:           fields,
		crcExtra:         crcEngine.CRC8(),
		maxPayloadLength: payloadLen,
		maxBufferLength:  HeaderSize + payloadLen + ChecksumSize + SignatureSize,
	}
}
