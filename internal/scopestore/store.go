// Package scopestore holds the table of running scopes, keyed by their
// canonical scope id. Stopping a scope means removing it here; the scope's
// task fibers keep the last reference until they settle.
package scopestore

import (
	"sort"
	"sync"

	"github.com/valaphee/flow/internal/scope"
)

// Store is a concurrency-safe scope table.
type Store struct {
	mu     sync.RWMutex
	scopes map[string]*scope.Scope
}

// New creates an empty scope table.
func New() *Store {
	return &Store{scopes: make(map[string]*scope.Scope)}
}

// Add registers a scope under its id.
func (s *Store) Add(sc *scope.Scope) {
	s.mu.Lock()
	s.scopes[sc.ID()] = sc
	s.mu.Unlock()
}

// Get looks a scope up by id.
func (s *Store) Get(id string) (*scope.Scope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scopes[id]
	return sc, ok
}

// Remove deregisters a scope, returning it when it was present.
func (s *Store) Remove(id string) (*scope.Scope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scopes[id]
	if ok {
		delete(s.scopes, id)
	}
	return sc, ok
}

// Snapshot returns the registered scopes ordered by id.
func (s *Store) Snapshot() []*scope.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scope.Scope, 0, len(s.scopes))
	for _, sc := range s.scopes {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
