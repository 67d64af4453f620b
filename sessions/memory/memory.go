// Package memory provides the in-memory implementation of sessions.Store
// using github.com/hashicorp/golang-lru/v2 for bounded, recency-evicting
// retention. State is process-local: a restart loses all sessions.
package memory

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mcpkit/stateful-go/sessions"
)

// DefaultCapacity is the conventional store size for wiring layers that do
// not configure one explicitly.
const DefaultCapacity = 100

// Store implements sessions.Store backed by an LRU cache.
type Store struct {
	mu       sync.RWMutex
	capacity int
	cache    *lru.Cache[string, *sessions.Session]
}

var _ sessions.Store = (*Store)(nil)

// New creates a store holding at most capacity sessions.
func New(capacity int) (*Store, error) {
	cache, err := lru.New[string, *sessions.Session](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &Store{capacity: capacity, cache: cache}, nil
}

// Capacity reports the fixed bound set at construction.
func (s *Store) Capacity() int { return s.capacity }

// Get returns the session for id, promoting it to most-recently-used.
func (s *Store) Get(id string) (*sessions.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Get(id)
}

// Set inserts or replaces the session for id. A new id at capacity evicts
// the least-recently-used entry first; eviction is silent and does not run
// the evicted handler's termination hook.
func (s *Store) Set(id string, sess *sessions.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(id, sess)
}

// Delete removes the session for id; no-op if absent.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(id)
}

// Contains reports presence without promoting recency.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Contains(id)
}

// Len reports the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Len()
}
