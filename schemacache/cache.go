// Package schemacache serializes a compiled MessageSet to a compact binary
// blob (via CBOR) so a long-running process can skip re-parsing a large
// XML dialect file on every restart.
package schemacache

import (
	"errors"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/gomav/mavlink"
)

const cacheVersion = 1

type cachedField struct {
	Name      string `cbor:"name"`
	Base      int    `cbor:"base"`
	ArraySize int    `cbor:"array_size"`
	Offset    int    `cbor:"offset"`
}

type cachedMessage struct {
	Name             string        `cbor:"name"`
	ID               int           `cbor:"id"`
	Fields           []cachedField `cbor:"fields"`
	CRCExtra         uint8         `cbor:"crc_extra"`
	MaxPayloadLength int           `cbor:"max_payload_length"`
}

type cachedSet struct {
	Version  int               `cbor:"version"`
	Messages []cachedMessage   `cbor:"messages"`
	Enums    map[string]uint64 `cbor:"enums"`
}

// Marshal compiles ms into a CBOR blob, preserving each definition's
// already-computed crc_extra and field offsets verbatim rather than
// recording only its XML source (mirroring the teacher's habit of
// cbor.Marshal-ing plain structs directly rather than wire payloads).
func Marshal(ms *mavlink.MessageSet) ([]byte, error) {
	snapshot := cachedSet{Version: cacheVersion, Enums: ms.Enums()}
	for _, name := range ms.Names() {
		def, err := ms.Definition(name)
		if err != nil {
			continue
		}
		cm := cachedMessage{
			Name:             def.Name(),
			ID:               def.ID(),
			CRCExtra:         def.CRCExtra(),
			MaxPayloadLength: def.MaxPayloadLength(),
		}
		for _, fname := range def.FieldNames() {
			f, ok := def.FieldByName(fname)
			if !ok {
				continue
			}
			cm.Fields = append(cm.Fields, cachedField{
				Name:      f.Name,
				Base:      int(f.Type.Base),
				ArraySize: f.Type.ArraySize,
				Offset:    f.Offset,
			})
		}
		snapshot.Messages = append(snapshot.Messages, cm)
	}
	return cbor.Marshal(snapshot)
}

// Unmarshal reconstructs a MessageSet from a blob produced by Marshal,
// restoring each definition's exact field offsets and crc_extra via
// mavlink.NewCompiledDefinition rather than recompiling through Builder —
// recompiling would require knowing the original extension-field boundary,
// which the cache does not track since it never needs to re-derive
// crc_extra once it has been computed.
func Unmarshal(blob []byte) (*mavlink.MessageSet, error) {
	var snapshot cachedSet
	if err := cbor.Unmarshal(blob, &snapshot); err != nil {
		return nil, err
	}
	if snapshot.Version != cacheVersion {
		return nil, errors.New("schemacache: cache version mismatch")
	}
	ms := mavlink.NewMessageSet()
	for _, cm := range snapshot.Messages {
		order := make([]string, 0, len(cm.Fields))
		fields := make(map[string]mavlink.Field, len(cm.Fields))
		for _, f := range cm.Fields {
			order = append(order, f.Name)
			fields[f.Name] = mavlink.Field{
				Name:   f.Name,
				Type:   mavlink.FieldType{Base: mavlink.BaseType(f.Base), ArraySize: f.ArraySize},
				Offset: f.Offset,
			}
		}
		def := mavlink.NewCompiledDefinition(cm.Name, cm.ID, order, fields, cm.CRCExtra, cm.MaxPayloadLength)
		ms.Insert(def)
	}
	for name, value := range snapshot.Enums {
		ms.InsertEnum(name, value)
	}
	return ms, nil
}

// Load reads path as a cache file; on any read/parse failure it calls
// loadXML to compile the schema fresh instead, then writes a refreshed
// cache back to path (best-effort — a failed write is not reported, since
// a missing cache just costs the next process its fast path, not
// correctness).
func Load(path string, loadXML func() (*mavlink.MessageSet, error)) (*mavlink.MessageSet, error) {
	if data, err := os.ReadFile(path); err == nil {
		if ms, err := Unmarshal(data); err == nil {
			return ms, nil
		}
	}

	ms, err := loadXML()
	if err != nil {
		return nil, err
	}
	if blob, err := Marshal(ms); err == nil {
		_ = os.WriteFile(path, blob, 0o644)
	}
	return ms, nil
}
