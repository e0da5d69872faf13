package file

import "github.com/kidzout/harvester/internal/harvester"

// OutputStore keeps the harvest output document in one JSON file.
type OutputStore struct {
	path string
}

// NewOutputStore creates a store backed by path.
func NewOutputStore(path string) *OutputStore {
	return &OutputStore{path: path}
}

// Load reads the previous output. A missing file yields an empty dataset.
func (s *OutputStore) Load() (harvester.Dataset, error) {
	var ds harvester.Dataset
	if _, err := readJSON(s.path, &ds); err != nil {
		return harvester.Dataset{}, err
	}
	return ds, nil
}

// Save replaces the output document.
func (s *OutputStore) Save(ds harvester.Dataset) error {
	return writeJSON(s.path, ds)
}
