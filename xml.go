package mavlink

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type xmlInclude struct {
	Path string `xml:",chardata"`
}

type xmlEntry struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlEnum struct {
	Name    string     `xml:"name,attr"`
	Entries []xmlEntry `xml:"entry"`
}

type xmlChild struct {
	XMLName xml.Name
	Type    string `xml:"type,attr"`
	Name    string `xml:"name,attr"`
}

type xmlMessage struct {
	ID       int        `xml:"id,attr"`
	Name     string     `xml:"name,attr"`
	Children []xmlChild `xml:",any"`
}

type xmlDoc struct {
	XMLName  xml.Name     `xml:"mavlink"`
	Includes []xmlInclude `xml:"include"`
	Enums    []xmlEnum    `xml:"enums>enum"`
	Messages []xmlMessage `xml:"messages>message"`
}

// LoadXMLFile parses the document at path (and, recursively, any <include>
// files resolved relative to its directory) into a fresh MessageSet.
func LoadXMLFile(path string) (*MessageSet, error) {
	ms := NewMessageSet()
	if err := LoadXMLFileInto(ms, path); err != nil {
		return nil, err
	}
	return ms, nil
}

// LoadXMLFileInto merges the document at path, and any files it includes,
// into an existing MessageSet. Duplicate message names or ids overwrite
// (last-one-wins, per the additive population rule).
//
// The merge is atomic: the document and everything it includes are parsed
// and built into a private staging MessageSet first, and only copied into
// ms once every message and enum in the whole tree parses cleanly. If any
// part fails, ms is left exactly as it was before the call.
func LoadXMLFileInto(ms *MessageSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return parseErr("reading " + path + ": " + err.Error())
	}
	staging := NewMessageSet()
	if err := loadInto(staging, data, filepath.Dir(path)); err != nil {
		return err
	}
	ms.mergeFrom(staging)
	return nil
}

// LoadXMLString parses a standalone XML document with no filesystem
// context; an <include> element in such a document fails with ParseError
// since there is no base directory to resolve it against.
func LoadXMLString(doc string) (*MessageSet, error) {
	ms := NewMessageSet()
	if err := LoadXMLStringInto(ms, doc); err != nil {
		return nil, err
	}
	return ms, nil
}

// LoadXMLStringInto merges a standalone XML document into an existing
// MessageSet; see LoadXMLString for the include-handling caveat. The merge
// is atomic, the same as LoadXMLFileInto.
func LoadXMLStringInto(ms *MessageSet, doc string) error {
	staging := NewMessageSet()
	if err := loadInto(staging, []byte(doc), ""); err != nil {
		return err
	}
	ms.mergeFrom(staging)
	return nil
}

// loadInto parses data into ms, which is always a private staging
// MessageSet owned by the caller (LoadXMLFileInto/LoadXMLStringInto):
// nothing reaches a caller-visible MessageSet until the whole document,
// and everything it includes, has parsed without error. Includes recurse
// into the same staging set rather than going through LoadXMLFileInto, so
// a failure anywhere in the include tree aborts the entire top-level call
// with no partial merge.
func loadInto(ms *MessageSet, data []byte, baseDir string) error {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return parseErr("malformed xml: " + err.Error())
	}

	for _, inc := range doc.Includes {
		name := strings.TrimSpace(inc.Path)
		if name == "" {
			continue
		}
		if baseDir == "" {
			return parseErr("include " + name + " used in a document with no base directory")
		}
		incPath := filepath.Join(baseDir, name)
		incData, err := os.ReadFile(incPath)
		if err != nil {
			return parseErr("reading " + incPath + ": " + err.Error())
		}
		if err := loadInto(ms, incData, filepath.Dir(incPath)); err != nil {
			return err
		}
	}

	enums := make(EnumMap)
	for _, e := range doc.Enums {
		for _, entry := range e.Entries {
			v, err := parseEnumValue(entry.Value)
			if err != nil {
				return parseErr("enum entry " + entry.Name + ": " + err.Error())
			}
			enums[entry.Name] = v
		}
	}

	for _, msg := range doc.Messages {
		if msg.Name == "" {
			return parseErr("message missing required name attribute")
		}
		b := NewBuilder(msg.Name, msg.ID)
		inExtensions := false
		seen := make(map[string]bool)
		for _, child := range msg.Children {
			switch child.XMLName.Local {
			case "extensions":
				inExtensions = true
			case "field":
				if child.Name == "" {
					return parseErr("field missing required name attribute in message " + msg.Name)
				}
				if seen[child.Name] {
					return parseErr("duplicate field name " + child.Name + " in message " + msg.Name)
				}
				seen[child.Name] = true
				ft, err := parseFieldType(child.Type)
				if err != nil {
					return parseErr("field " + child.Name + " in message " + msg.Name + ": " + err.Error())
				}
				if inExtensions {
					b.AddExtensionField(child.Name, ft)
				} else {
					b.AddField(child.Name, ft)
				}
			default:
				// description and any other child elements carry no
				// wire semantics and are ignored.
			}
		}
		ms.Insert(b.Build())
	}

	ms.enums.merge(enums)
	return nil
}

// parseEnumValue accepts decimal, 0b/0B binary, 0x/0X hex, or 2**N (N<=63)
// literals, per the XML loader's enum value grammar.
func parseEnumValue(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, parseErr("empty enum value")
	}
	if strings.HasPrefix(s, "2**") {
		n, err := strconv.Atoi(s[3:])
		if err != nil || n < 0 || n > 63 {
			return 0, parseErr("invalid 2**N exponent in " + s)
		}
		return uint64(1) << uint(n), nil
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0b") {
		v, err := strconv.ParseUint(s[2:], 2, 64)
		if err != nil {
			return 0, parseErr("invalid binary literal " + s)
		}
		return v, nil
	}
	if strings.HasPrefix(lower, "0x") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, parseErr("invalid hex literal " + s)
		}
		return v, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, parseErr("invalid decimal literal " + s)
	}
	return v, nil
}

// parseFieldType resolves an XML field's type attribute ("BASE" or
// "BASE[N]") into a FieldType, using prefix matching so the reserved
// pseudo-type "uint8_t_mavlink_version" resolves to a scalar Uint8.
func parseFieldType(s string) (FieldType, error) {
	base, rest, ok := longestBaseTypePrefix(s)
	if !ok {
		return FieldType{}, parseErr("unknown base type in " + s)
	}
	if !strings.HasPrefix(rest, "[") {
		return FieldType{Base: base, ArraySize: 1}, nil
	}
	closeIdx := strings.IndexByte(rest, ']')
	if closeIdx < 0 {
		return FieldType{}, parseErr("unterminated array size in " + s)
	}
	n, err := strconv.Atoi(rest[1:closeIdx])
	if err != nil || n < 1 {
		return FieldType{}, parseErr("invalid array size in " + s)
	}
	return FieldType{Base: base, ArraySize: n}, nil
}

func longestBaseTypePrefix(s string) (BaseType, string, bool) {
	order := []string{"uint8_t", "uint16_t", "uint32_t", "uint64_t", "int8_t", "int16_t", "int32_t", "int64_t", "char", "float", "double"}
	best := ""
	for _, p := range order {
		if isPrefix(p, s) && len(p) > len(best) {
			best = p
		}
	}
	if best == "" {
		return 0, "", false
	}
	base, ok := baseTypeFromPrefix(best)
	if !ok {
		return 0, "", false
	}
	return base, s[len(best):], true
}
