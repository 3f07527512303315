package mavlink

import (
	"bytes"
	"testing"
)

func heartbeatDefinition() *MessageDefinition {
	b := NewBuilder("HEARTBEAT", 0)
	b.AddField("type", FieldType{Base: Uint8, ArraySize: 1})
	b.AddField("autopilot", FieldType{Base: Uint8, ArraySize: 1})
	b.AddField("base_mode", FieldType{Base: Uint8, ArraySize: 1})
	b.AddField("custom_mode", FieldType{Base: Uint32, ArraySize: 1})
	b.AddField("system_status", FieldType{Base: Uint8, ArraySize: 1})
	b.AddField("mavlink_version", FieldType{Base: Uint8, ArraySize: 1})
	return b.Build()
}

func heartbeatSet() *MessageSet {
	ms := NewMessageSet()
	ms.Insert(heartbeatDefinition())
	return ms
}

// Scenario 1 in spec.md §8: exact on-wire bytes for a fully populated
// HEARTBEAT.
func TestHeartbeatFraming(t *testing.T) {
	ms := heartbeatSet()
	msg := ms.MustCreate("HEARTBEAT")
	msg.MustSetUint8("type", 0, 1)
	msg.MustSetUint8("autopilot", 0, 2)
	msg.MustSetUint8("base_mode", 0, 3)
	msg.MustSetUint32("custom_mode", 0, 4)
	msg.MustSetUint8("system_status", 0, 5)
	msg.MustSetUint8("mavlink_version", 0, 6)

	sender := Identity{SystemID: 0xFD, ComponentID: 1}
	n := msg.MustFinalize(0, sender, false)
	data := msg.MustData()

	want := []byte{0xFD, 0x09, 0x00, 0x00, 0x00, 0xFD, 0x01, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0x05, 0x06, 0x77, 0x53}
	if n != len(want) {
		t.Fatalf("Finalize returned length %d, want %d", n, len(want))
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("Data() = % x, want % x", data, want)
	}
}

// Scenario 2: a trailing zero field is truncated off the wire and the len
// byte shrinks accordingly.
func TestZeroTruncation(t *testing.T) {
	ms := heartbeatSet()
	msg := ms.MustCreate("HEARTBEAT")
	msg.MustSetUint8("type", 0, 1)
	msg.MustSetUint8("autopilot", 0, 2)
	msg.MustSetUint8("base_mode", 0, 3)
	msg.MustSetUint32("custom_mode", 0, 4)
	msg.MustSetUint8("system_status", 0, 5)
	msg.MustSetUint8("mavlink_version", 0, 0)

	sender := Identity{SystemID: 0xFD, ComponentID: 1}
	msg.MustFinalize(0, sender, false)
	data := msg.MustData()

	if data[1] != 0x08 {
		t.Fatalf("len byte = %#02x, want 0x08", data[1])
	}
	if len(data) != HeaderSize+8+ChecksumSize {
		t.Fatalf("data length = %d, want %d", len(data), HeaderSize+8+ChecksumSize)
	}
}

// Round-trip: a truncated trailing field reads back as zero even though it
// no longer exists on the wire, matching the zero-extension-on-truncation
// invariant (spec.md §8).
func TestRoundTripZeroExtendedRead(t *testing.T) {
	ms := heartbeatSet()
	msg := ms.MustCreate("HEARTBEAT")
	msg.MustSetUint8("type", 0, 9)
	msg.MustSetUint8("mavlink_version", 0, 0)
	msg.MustFinalize(0, Identity{SystemID: 1, ComponentID: 1}, false)

	if got := msg.MustGetUint8("mavlink_version", 0); got != 0 {
		t.Errorf("mavlink_version after truncation = %d, want 0", got)
	}
	if got := msg.MustGetUint8("type", 0); got != 9 {
		t.Errorf("type = %d, want 9", got)
	}
}

func TestOffsetOrdering(t *testing.T) {
	def := heartbeatDefinition()
	cm, _ := def.FieldByName("custom_mode")
	tp, _ := def.FieldByName("type")
	if !(cm.Type.Base.Size() > tp.Type.Base.Size() && cm.Offset < tp.Offset) {
		t.Errorf("custom_mode (size %d, offset %d) must precede type (size %d, offset %d)",
			cm.Type.Base.Size(), cm.Offset, tp.Type.Base.Size(), tp.Offset)
	}
}

func TestExtensionAppendAndCRCIndependence(t *testing.T) {
	b := NewBuilder("WITH_EXT", 1)
	b.AddField("a", FieldType{Base: Uint8, ArraySize: 1})
	withoutExt := b.Build()

	b2 := NewBuilder("WITH_EXT", 1)
	b2.AddField("a", FieldType{Base: Uint8, ArraySize: 1})
	b2.AddExtensionField("ext", FieldType{Base: Uint32, ArraySize: 1})
	withExt := b2.Build()

	a1, _ := withoutExt.FieldByName("a")
	a2, _ := withExt.FieldByName("a")
	ext, _ := withExt.FieldByName("ext")

	if ext.Offset <= a2.Offset {
		t.Errorf("extension field offset %d must come after field a's offset %d", ext.Offset, a2.Offset)
	}
	if withoutExt.CRCExtra() != withExt.CRCExtra() {
		t.Errorf("crc_extra changed by adding an extension field: %d vs %d", withoutExt.CRCExtra(), withExt.CRCExtra())
	}
	if a1.Offset != a2.Offset {
		t.Errorf("adding an extension field must not move non-extension offsets: %d vs %d", a1.Offset, a2.Offset)
	}
}

func TestIdempotentFinalize(t *testing.T) {
	ms := heartbeatSet()
	msg := ms.MustCreate("HEARTBEAT")
	msg.MustSetUint8("type", 0, 7)
	sender := Identity{SystemID: 1, ComponentID: 1}

	msg.MustFinalize(3, sender, false)
	first := append([]byte(nil), msg.MustData()...)

	msg.MustFinalize(3, sender, false)
	second := msg.MustData()

	if !bytes.Equal(first, second) {
		t.Errorf("re-finalizing with unchanged seq/sender changed the output: % x vs % x", first, second)
	}
}

func TestUnfinalizeOnWrite(t *testing.T) {
	ms := heartbeatSet()
	msg := ms.MustCreate("HEARTBEAT")
	msg.MustFinalize(0, Identity{SystemID: 1, ComponentID: 1}, false)
	if !msg.Finalized() {
		t.Fatal("expected message to be finalized")
	}

	msg.MustSetUint8("type", 0, 42)
	if msg.Finalized() {
		t.Error("setter after finalize must clear the finalized state")
	}
	if _, err := msg.Data(); err == nil {
		t.Error("Data() must fail on an un-finalized message")
	}
}

func TestSetGetString(t *testing.T) {
	b := NewBuilder("NAMED", 2)
	b.AddField("name", FieldType{Base: Char, ArraySize: 10})
	ms := NewMessageSet()
	ms.Insert(b.Build())

	msg := ms.MustCreate("NAMED")
	msg.MustSetString("name", "hello")
	if got := msg.MustGetString("name"); got != "hello" {
		t.Errorf("GetString() = %q, want %q", got, "hello")
	}
}

func TestV1Framing(t *testing.T) {
	ms := heartbeatSet()
	msg := ms.MustCreate("HEARTBEAT")
	msg.MustSetUint8("type", 0, 1)
	msg.MustSetUint32("custom_mode", 0, 0)

	n := msg.MustFinalize(5, Identity{SystemID: 9, ComponentID: 1}, true)
	data := msg.MustData()
	if data[0] != 0xFE {
		t.Fatalf("v1 magic = %#02x, want 0xFE", data[0])
	}
	if n != len(data) {
		t.Fatalf("Finalize length %d != Data() length %d", n, len(data))
	}
	if !msg.Header().IsV1() {
		t.Error("Header().IsV1() should report true for a v1-framed message")
	}
}
