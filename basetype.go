// Package mavlink implements the core of a MAVLink v1/v2 wire-protocol
// library: schema compilation from XML, a finalize/parse codec for framed
// messages, and the message-set/message types callers build on.
package mavlink

// BaseType is the closed set of scalar wire types a MAVLink field can hold.
type BaseType int

const (
	Char BaseType = iota
	Uint8
	Uint16
	Uint32
	Uint64
	Int8
	Int16
	Int32
	Int64
	Float
	Double
)

// Size returns the fixed wire width in bytes of one element of this type.
func (b BaseType) Size() int {
	switch b {
	case Char, Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float:
		return 4
	case Uint64, Int64, Double:
		return 8
	default:
		return 0
	}
}

// crcName is the wire-type spelling accumulated into the crc-extra fold,
// matching the C typedef names the MAVLink spec uses.
func (b BaseType) crcName() string {
	switch b {
	case Char:
		return "char"
	case Uint8:
		return "uint8_t"
	case Uint16:
		return "uint16_t"
	case Uint32:
		return "uint32_t"
	case Uint64:
		return "uint64_t"
	case Int8:
		return "int8_t"
	case Int16:
		return "int16_t"
	case Int32:
		return "int32_t"
	case Int64:
		return "int64_t"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return ""
	}
}

// String renders the base type using its wire spelling.
func (b BaseType) String() string {
	if s := b.crcName(); s != "" {
		return s
	}
	return "unknown"
}

// baseTypeFromPrefix resolves the longest-matching base type for a type
// string taken from an XML field's type attribute, using the same
// prefix-match rule as the original parser (so the reserved pseudo-type
// "uint8_t_mavlink_version" resolves to Uint8).
func baseTypeFromPrefix(s string) (BaseType, bool) {
	// Longer names must be tried before their prefixes (e.g. "uint64_t"
	// before "uint8_t" would never collide, but "int8_t" is a prefix-free
	// set already; ordering here just has to avoid "int" matching before
	// "int8_t" style ambiguities, which the original list does not have).
	candidates := []struct {
		prefix string
		base   BaseType
	}{
		{"uint8_t", Uint8},
		{"uint16_t", Uint16},
		{"uint32_t", Uint32},
		{"uint64_t", Uint64},
		{"int8_t", Int8},
		{"int16_t", Int16},
		{"int32_t", Int32},
		{"int64_t", Int64},
		{"char", Char},
		{"float", Float},
		{"double", Double},
	}
	for _, c := range candidates {
		if isPrefix(c.prefix, s) {
			return c.base, true
		}
	}
	return 0, false
}

func isPrefix(prefix, full string) bool {
	if len(prefix) > len(full) {
		return false
	}
	return full[:len(prefix)] == prefix
}

// FieldType describes one field's wire shape: its scalar base type and how
// many elements it holds (1 for a scalar, >1 for an array or string).
type FieldType struct {
	Base      BaseType
	ArraySize int
}

// Width returns the total wire width in bytes of the field (base size times
// array size).
func (t FieldType) Width() int {
	return t.Base.Size() * t.ArraySize
}

// Field is one named slot in a message's payload: its type and its byte
// offset from the start of the payload region within the message buffer.
type Field struct {
	Name   string
	Type   FieldType
	Offset int
}
