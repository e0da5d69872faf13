// Package memory provides in-process store implementations, used by tests
// and dry runs.
package memory

import (
	"sync"

	"github.com/kidzout/harvester/internal/harvester"
)

// StatsStore holds quality counters in memory.
type StatsStore struct {
	mu    sync.Mutex
	Stats map[string]harvester.SourceStats
	// Err, when set, is returned by both operations.
	Err error
}

func (s *StatsStore) Load() (map[string]harvester.SourceStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[string]harvester.SourceStats, len(s.Stats))
	for k, v := range s.Stats {
		out[k] = v
	}
	return out, nil
}

func (s *StatsStore) Save(stats map[string]harvester.SourceStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Stats = stats
	return nil
}

// GeocodeCacheStore holds resolved coordinates in memory.
type GeocodeCacheStore struct {
	mu    sync.Mutex
	Cache map[string][]float64
	Saves int
	Err   error
}

func (s *GeocodeCacheStore) Load() (map[string][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[string][]float64, len(s.Cache))
	for k, v := range s.Cache {
		out[k] = v
	}
	return out, nil
}

func (s *GeocodeCacheStore) Save(cache map[string][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Cache = cache
	s.Saves++
	return nil
}

// OutputStore holds the output document in memory.
type OutputStore struct {
	mu      sync.Mutex
	Dataset harvester.Dataset
	Saves   int
	Err     error
}

func (s *OutputStore) Load() (harvester.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return harvester.Dataset{}, s.Err
	}
	return s.Dataset, nil
}

func (s *OutputStore) Save(ds harvester.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Dataset = ds
	s.Saves++
	return nil
}
