package file

import "github.com/kidzout/harvester/internal/harvester"

// StatsStore keeps per-source quality counters in one JSON file.
type StatsStore struct {
	path string
}

// NewStatsStore creates a store backed by path.
func NewStatsStore(path string) *StatsStore {
	return &StatsStore{path: path}
}

// Load reads the counters. A missing file yields an empty map.
func (s *StatsStore) Load() (map[string]harvester.SourceStats, error) {
	stats := map[string]harvester.SourceStats{}
	if _, err := readJSON(s.path, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Save replaces the stored counters.
func (s *StatsStore) Save(stats map[string]harvester.SourceStats) error {
	return writeJSON(s.path, stats)
}
