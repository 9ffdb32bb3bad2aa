package schema

// KeySet is an insertion-ordered collection of keys with canonical lookup.
// It is not safe for concurrent mutation; the owning model registry guards it.
type KeySet struct {
	order []string
	keys  map[string]*Key
}

// NewKeySet creates an empty key set
func NewKeySet() *KeySet {
	return &KeySet{
		keys: make(map[string]*Key),
	}
}

// Put stores key, replacing an existing key of the same name in place
func (s *KeySet) Put(key *Key) {
	if _, exists := s.keys[key.Name()]; !exists {
		s.order = append(s.order, key.Name())
	}
	s.keys[key.Name()] = key
}

// Lookup returns the key registered under name
func (s *KeySet) Lookup(name string) (*Key, bool) {
	key, ok := s.keys[Canonical(name)]
	return key, ok
}

// Has returns true if a key named name exists
func (s *KeySet) Has(name string) bool {
	_, ok := s.keys[Canonical(name)]
	return ok
}

// All returns the keys in declaration order
func (s *KeySet) All() []*Key {
	out := make([]*Key, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.keys[name])
	}
	return out
}

// Names returns the key names in declaration order
func (s *KeySet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of keys
func (s *KeySet) Len() int {
	return len(s.order)
}

// Clone returns a copy that shares the immutable keys but not the index
func (s *KeySet) Clone() *KeySet {
	out := &KeySet{
		order: make([]string, len(s.order)),
		keys:  make(map[string]*Key, len(s.keys)),
	}
	copy(out.order, s.order)
	for name, key := range s.keys {
		out.keys[name] = key
	}
	return out
}
