package store

import (
	"sort"
	"sync"
)

// MemoryStore is a concurrency-safe in-memory Index.
type MemoryStore struct {
	mu sync.RWMutex

	columns []string
	// key: city_name, value: observations ordered by date then line
	byCity map[string][]Observation
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byCity: make(map[string][]Observation)}
}

// Load swaps in a new snapshot of the aggregate file.
func (s *MemoryStore) Load(columns []string, rows [][]string) error {
	byCity := make(map[string][]Observation)
	for _, obs := range toObservations(columns, rows) {
		byCity[obs.City()] = append(byCity[obs.City()], obs)
	}
	for _, list := range byCity {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Date() < list[j].Date()
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = append([]string(nil), columns...)
	s.byCity = byCity
	return nil
}

// Columns returns the aggregate header.
func (s *MemoryStore) Columns() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.columns...), nil
}

// Get returns every observation for city on date. Duplicated keys return several rows.
func (s *MemoryStore) Get(city, date string) ([]Observation, error) {
	return s.Range(city, date, date)
}

// Range returns all observations for city between from and to (inclusive).
func (s *MemoryStore) Range(city, from, to string) ([]Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.byCity[city]
	if !ok || len(list) == 0 {
		return nil, ErrNotFound
	}

	var result []Observation
	for _, obs := range list {
		if obs.Date() >= from && obs.Date() <= to {
			result = append(result, obs)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
