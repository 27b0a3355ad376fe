package results

import (
	"sync"

	"vetdesk/internal/models"
)

// Store holds the result list of the most recent batch of one session. It is
// the only owner of that list; readers get copies.
type Store struct {
	mu      sync.RWMutex
	results []models.ValidationResult
}

func New() *Store {
	return &Store{}
}

// Replace swaps in a deep copy of a new result set.
func (s *Store) Replace(rs models.ResultSet) {
	cp := models.CloneResults(rs.Results)

	s.mu.Lock()
	s.results = cp
	s.mu.Unlock()
}

// Clear empties the store. Calling it on an empty store is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	s.results = nil
	s.mu.Unlock()
}

// Statistics is recomputed from the current list on every call.
func (s *Store) Statistics() models.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Summarize(s.results)
}

// Snapshot returns a deep copy of the current list. Later Replace or Clear calls do
// not affect it.
func (s *Store) Snapshot() []models.ValidationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneResults(s.results)
}

// ResultSet returns a snapshot together with its statistics.
func (s *Store) ResultSet() models.ResultSet {
	return models.NewResultSet(s.Snapshot())
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
