package schemacache

import (
	"testing"

	"github.com/gomav/mavlink"
)

func buildHeartbeatSet() *mavlink.MessageSet {
	ms := mavlink.NewMessageSet()
	b := mavlink.NewBuilder("HEARTBEAT", 0)
	b.AddField("type", mavlink.FieldType{Base: mavlink.Uint8, ArraySize: 1})
	b.AddField("custom_mode", mavlink.FieldType{Base: mavlink.Uint32, ArraySize: 1})
	ms.Insert(b.Build())
	ms.InsertEnum("MAV_STATE_ACTIVE", 4)
	return ms
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	ms := buildHeartbeatSet()
	blob, err := Marshal(ms)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	restored, err := Unmarshal(blob)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	def, err := restored.Definition("HEARTBEAT")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := ms.Definition("HEARTBEAT")
	if def.CRCExtra() != want.CRCExtra() {
		t.Errorf("CRCExtra = %d, want %d", def.CRCExtra(), want.CRCExtra())
	}
	if def.MaxPayloadLength() != want.MaxPayloadLength() {
		t.Errorf("MaxPayloadLength = %d, want %d", def.MaxPayloadLength(), want.MaxPayloadLength())
	}
	cm, ok := def.FieldByName("custom_mode")
	if !ok {
		t.Fatal("expected custom_mode field to survive the round trip")
	}
	if cm.Offset != 10 {
		t.Errorf("custom_mode offset = %d, want 10 (sorted first)", cm.Offset)
	}

	if v, ok := restored.Enum("MAV_STATE_ACTIVE"); !ok || v != 4 {
		t.Errorf("MAV_STATE_ACTIVE = %d, ok=%v, want 4", v, ok)
	}
}

func TestLoadFallsBackOnMissingFile(t *testing.T) {
	called := false
	loadXML := func() (*mavlink.MessageSet, error) {
		called = true
		return buildHeartbeatSet(), nil
	}

	ms, err := Load("/nonexistent/path/to/cache.cbor", loadXML)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !called {
		t.Error("expected the XML fallback to be called on a missing cache file")
	}
	if !ms.ContainsName("HEARTBEAT") {
		t.Error("expected the fallback's MessageSet to be returned")
	}
}
