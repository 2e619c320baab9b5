package idata

import "sync"

// Store holds one Queue per interface name, created on first use. The map
// itself is guarded by a mutex since interfaces are registered from the
// shell thread as commands arrive; the queues it hands out remain SPSC
// between that thread and the poll thread's verifier.
type Store struct {
	mu    sync.Mutex
	byIfc map[string]*Queue
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{byIfc: make(map[string]*Queue)}
}

// Queue returns the expectation queue for ifaceName, creating it on first
// reference.
func (s *Store) Queue(ifaceName string) *Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.byIfc[ifaceName]
	if !ok {
		q = NewQueue()
		s.byIfc[ifaceName] = q
	}
	return q
}

// Pending reports every interface with at least one unmatched expectation
// still queued, for end-of-run leftover detection (spec.md §4.7:
// "leftover entry at termination is a test failure").
func (s *Store) Pending() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for name, q := range s.byIfc {
		if n := q.Len(); n > 0 {
			out[name] = n
		}
	}
	return out
}
