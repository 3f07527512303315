package mavlink

import "testing"

func TestValueSignedCoercion(t *testing.T) {
	v := Int8Value(-5)
	if got := v.AsInt64(); got != -5 {
		t.Errorf("Int8Value(-5).AsInt64() = %d, want -5", got)
	}
	if got := v.AsFloat64(); got != -5 {
		t.Errorf("Int8Value(-5).AsFloat64() = %v, want -5", got)
	}

	v16 := Int16Value(-1000)
	if got := v16.AsInt64(); got != -1000 {
		t.Errorf("Int16Value(-1000).AsInt64() = %d, want -1000", got)
	}

	v32 := Int32Value(-70000)
	if got := v32.AsInt64(); got != -70000 {
		t.Errorf("Int32Value(-70000).AsInt64() = %d, want -70000", got)
	}
}

func TestValueFloatRoundTrip(t *testing.T) {
	v := Float32Value(3.5)
	if got := v.AsFloat64(); got != 3.5 {
		t.Errorf("Float32Value(3.5).AsFloat64() = %v, want 3.5", got)
	}
	if got := v.AsString(); got != "3.5" {
		t.Errorf("Float32Value(3.5).AsString() = %q, want %q", got, "3.5")
	}
}

func TestValueStringKind(t *testing.T) {
	v := StringValue("abc")
	if got := v.AsString(); got != "abc" {
		t.Errorf("AsString() = %q, want abc", got)
	}
	if got := v.AsInt64(); got != 0 {
		t.Errorf("AsInt64() on a string Value = %d, want 0", got)
	}
}

func TestMessageSetGetValueRoundTrip(t *testing.T) {
	b := NewBuilder("TEST", 3)
	b.AddField("a", FieldType{Base: Int16, ArraySize: 1})
	ms := NewMessageSet()
	ms.Insert(b.Build())

	msg := ms.MustCreate("TEST")
	if err := msg.SetValue("a", 0, Int16Value(-42)); err != nil {
		t.Fatal(err)
	}
	got, err := msg.GetValue("a", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt64() != -42 {
		t.Errorf("round-tripped value = %d, want -42", got.AsInt64())
	}
}
