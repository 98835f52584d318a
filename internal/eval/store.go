package eval

import "sync"

// Store holds evaluated approach results keyed by approach name. It
// preserves insertion order, which the comparator relies on for its
// tie-break: with equal means the approach evaluated first wins.
//
// Results are published whole. Re-evaluating under an existing name
// replaces the result but keeps the name's original position.
type Store struct {
	mu      sync.RWMutex
	order   []string
	results map[string]*ApproachResult
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		results: make(map[string]*ApproachResult),
	}
}

// Put publishes a fully constructed approach result. Last write wins
// for concurrent puts to the same name.
func (s *Store) Put(name string, result *ApproachResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[name]; !exists {
		s.order = append(s.order, name)
	}
	s.results[name] = result
}

// Get returns the result for an approach name.
func (s *Store) Get(name string) (*ApproachResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[name]
	return result, ok
}

// Names returns approach names in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Len returns the number of stored approaches.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}
