package mavlink

import "testing"

func TestBuilderRejectsDuplicateFieldName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected AddField to panic on a duplicate field name")
		}
	}()
	b := NewBuilder("DUP", 1)
	b.AddField("a", FieldType{Base: Uint8, ArraySize: 1})
	b.AddField("a", FieldType{Base: Uint8, ArraySize: 1})
}

func TestBuilderRejectsDuplicateAcrossExtension(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected AddExtensionField to panic on a name reused from a non-extension field")
		}
	}()
	b := NewBuilder("DUP2", 2)
	b.AddField("a", FieldType{Base: Uint8, ArraySize: 1})
	b.AddExtensionField("a", FieldType{Base: Uint32, ArraySize: 1})
}

func TestBuilderRejectsZeroArraySize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected AddField to panic on array_size < 1")
		}
	}()
	b := NewBuilder("ZERO", 3)
	b.AddField("a", FieldType{Base: Uint8, ArraySize: 0})
}

func TestBuilderAcceptsWellFormedFields(t *testing.T) {
	b := NewBuilder("OK", 4)
	b.AddField("a", FieldType{Base: Uint8, ArraySize: 1})
	b.AddExtensionField("b", FieldType{Base: Uint32, ArraySize: 1})
	def := b.Build()
	if !def.ContainsField("a") || !def.ContainsField("b") {
		t.Fatal("expected both fields to be present in the compiled definition")
	}
}
