package mavlink

// MessageSet is the compiled, queryable form of a loaded schema: message
// definitions indexed by name and by id, plus the flat enum constant table.
// It is populated additively — loading a second document merges in new
// definitions and overwrites same-named or same-id ones (last-one-wins).
type MessageSet struct {
	byName map[string]*MessageDefinition
	byID   map[int]*MessageDefinition
	enums  EnumMap
}

// NewMessageSet returns an empty message set, ready to have definitions
// inserted directly or loaded from XML via LoadXMLFile/LoadXMLString.
func NewMessageSet() *MessageSet {
	return &MessageSet{
		byName: make(map[string]*MessageDefinition),
		byID:   make(map[int]*MessageDefinition),
		enums:  make(EnumMap),
	}
}

// Insert adds or overwrites a compiled definition under both its name and
// id keys.
func (s *MessageSet) Insert(def *MessageDefinition) {
	s.byName[def.name] = def
	s.byID[def.id] = def
}

// Definition looks up a message definition by name.
func (s *MessageSet) Definition(name string) (*MessageDefinition, error) {
	d, ok := s.byName[name]
	if !ok {
		return nil, parseErr("unknown message name " + name)
	}
	return d, nil
}

// DefinitionByID looks up a message definition by numeric id.
func (s *MessageSet) DefinitionByID(id int) (*MessageDefinition, error) {
	d, ok := s.byID[id]
	if !ok {
		return nil, parseErr("unknown message id")
	}
	return d, nil
}

// ContainsName reports whether a message with the given name is loaded.
func (s *MessageSet) ContainsName(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// ContainsID reports whether a message with the given id is loaded.
func (s *MessageSet) ContainsID(id int) bool {
	_, ok := s.byID[id]
	return ok
}

// IDForName returns the numeric id registered for a message name.
func (s *MessageSet) IDForName(name string) (int, error) {
	d, err := s.Definition(name)
	if err != nil {
		return 0, err
	}
	return d.id, nil
}

// Size returns the number of distinct message definitions loaded.
func (s *MessageSet) Size() int { return len(s.byName) }

// Names returns the names of every loaded message definition, in no
// particular order.
func (s *MessageSet) Names() []string {
	out := make([]string, 0, len(s.byName))
	for name := range s.byName {
		out = append(out, name)
	}
	return out
}

// Enum looks up an enum entry's value by its own name.
func (s *MessageSet) Enum(entryName string) (uint64, bool) {
	return s.enums.Lookup(entryName)
}

// Enums returns the full flat enum-entry table.
func (s *MessageSet) Enums() EnumMap { return s.enums }

// InsertEnum adds or overwrites a single enum entry's value, following the
// same last-one-wins rule as loading a second XML document.
func (s *MessageSet) InsertEnum(name string, value uint64) {
	s.enums[name] = value
}

// mergeFrom copies every definition and enum entry from other into s,
// last-one-wins. Used by the XML loader to publish a whole document's
// worth of staged definitions into a caller's MessageSet atomically.
func (s *MessageSet) mergeFrom(other *MessageSet) {
	for name, def := range other.byName {
		s.byName[name] = def
	}
	for id, def := range other.byID {
		s.byID[id] = def
	}
	for name, v := range other.enums {
		s.enums[name] = v
	}
}

// Create returns a fresh, unframed Message of the named type.
func (s *MessageSet) Create(name string) (*Message, error) {
	d, err := s.Definition(name)
	if err != nil {
		return nil, err
	}
	return newMessage(d), nil
}

// CreateByID returns a fresh, unframed Message of the type registered under
// the given numeric id.
func (s *MessageSet) CreateByID(id int) (*Message, error) {
	d, err := s.DefinitionByID(id)
	if err != nil {
		return nil, err
	}
	return newMessage(d), nil
}

// MustCreate panics instead of returning an error.
func (s *MessageSet) MustCreate(name string) *Message {
	m, err := s.Create(name)
	mustPanic(err)
	return m
}
