package ratelimit

import "sync"

// MemoryStore is a mutex-guarded in-process store. Suitable for tests and
// single-instance deployments; horizontally scaled deployments should back
// the limiter with a shared store instead.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get returns the entry for an actor if present.
func (s *MemoryStore) Get(actorID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[actorID]
	return e, ok
}

// Put stores the entry for an actor.
func (s *MemoryStore) Put(actorID string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[actorID] = e
}

// Delete removes the entry for an actor.
func (s *MemoryStore) Delete(actorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, actorID)
}

// Keys returns a snapshot of all actor IDs with entries.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

var _ Store = (*MemoryStore)(nil)
