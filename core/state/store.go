package state

import "sync"

// Store holds the last known good state. Readers get a value copy; the poll
// loop replaces the whole tree at the end of each successful cycle.
type Store struct {
	mu  sync.RWMutex
	cur State
}

func NewStore() *Store { return &Store{} }

// Load returns the current state.
func (s *Store) Load() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Replace swaps in st and returns the previous state.
func (s *Store) Replace(st State) State {
	s.mu.Lock()
	prev := s.cur
	s.cur = st
	s.mu.Unlock()
	return prev
}
