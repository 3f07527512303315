package mavlink

import (
	"fmt"
	"math"
)

// ValueKind tags the concrete type held by a Value.
type ValueKind int

const (
	KindUint8 ValueKind = iota
	KindInt8
	KindUint16
	KindInt16
	KindUint32
	KindInt32
	KindUint64
	KindInt64
	KindFloat32
	KindFloat64
	KindString
)

// Value is a tagged-union dynamic accessor for message fields, the
// "native variant" surface spec.md §9 asks for alongside the one-operation-
// per-base-type methods: a thin adapter for callers that only know a field
// name at runtime and want to read or write it without picking a Go type
// first.
type Value struct {
	kind ValueKind
	bits uint64
	str  string
}

func Uint8Value(v uint8) Value   { return Value{kind: KindUint8, bits: uint64(v)} }
func Int8Value(v int8) Value     { return Value{kind: KindInt8, bits: uint64(uint8(v))} }
func Uint16Value(v uint16) Value { return Value{kind: KindUint16, bits: uint64(v)} }
func Int16Value(v int16) Value   { return Value{kind: KindInt16, bits: uint64(uint16(v))} }
func Uint32Value(v uint32) Value { return Value{kind: KindUint32, bits: uint64(v)} }
func Int32Value(v int32) Value   { return Value{kind: KindInt32, bits: uint64(uint32(v))} }
func Uint64Value(v uint64) Value { return Value{kind: KindUint64, bits: v} }
func Int64Value(v int64) Value   { return Value{kind: KindInt64, bits: uint64(v)} }
func Float32Value(v float32) Value {
	return Value{kind: KindFloat32, bits: uint64(math.Float32bits(v))}
}
func Float64Value(v float64) Value { return Value{kind: KindFloat64, bits: math.Float64bits(v)} }
func StringValue(v string) Value   { return Value{kind: KindString, str: v} }

// Kind reports which concrete type this Value holds.
func (v Value) Kind() ValueKind { return v.kind }

// AsInt64 returns the value coerced to int64 (truncating floats), sign-
// extending narrower signed kinds from their stored width.
func (v Value) AsInt64() int64 {
	switch v.kind {
	case KindFloat32:
		return int64(math.Float32frombits(uint32(v.bits)))
	case KindFloat64:
		return int64(math.Float64frombits(v.bits))
	case KindString:
		return 0
	case KindInt8:
		return int64(int8(v.bits))
	case KindInt16:
		return int64(int16(v.bits))
	case KindInt32:
		return int64(int32(v.bits))
	case KindInt64:
		return int64(v.bits)
	default:
		return int64(v.bits)
	}
}

// AsUint64 returns the value coerced to uint64 (truncating floats,
// sign-extending narrower signed kinds before conversion).
func (v Value) AsUint64() uint64 {
	switch v.kind {
	case KindFloat32, KindFloat64, KindInt8, KindInt16, KindInt32:
		return uint64(v.AsInt64())
	}
	if v.kind == KindString {
		return 0
	}
	return v.bits
}

// AsFloat64 returns the value coerced to float64.
func (v Value) AsFloat64() float64 {
	switch v.kind {
	case KindFloat32:
		return float64(math.Float32frombits(uint32(v.bits)))
	case KindFloat64:
		return math.Float64frombits(v.bits)
	case KindString:
		return 0
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return float64(v.AsInt64())
	default:
		return float64(v.bits)
	}
}

// AsString renders the value as a string; for KindString it is the
// original string, otherwise a decimal/float rendering.
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindFloat32, KindFloat64:
		return fmt.Sprintf("%g", v.AsFloat64())
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return fmt.Sprintf("%d", v.AsInt64())
	default:
		return fmt.Sprintf("%d", v.AsUint64())
	}
}
