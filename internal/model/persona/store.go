package persona

// Store exposes persona retrieval for handlers and services.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	FindByExpertise(e Expertise) (Persona, bool)
}

// MemoryStore implements Store over an immutable slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the registry in declaration order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// FindByExpertise returns the first persona carrying the given tag.
func (s *MemoryStore) FindByExpertise(e Expertise) (Persona, bool) {
	for _, item := range s.items {
		if item.Expertise == e {
			return item, true
		}
	}
	return Persona{}, false
}
