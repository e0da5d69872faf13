package file

// GeocodeCacheStore keeps resolved coordinates in one JSON file. Tombstoned
// addresses are stored as null entries.
type GeocodeCacheStore struct {
	path string
}

// NewGeocodeCacheStore creates a store backed by path.
func NewGeocodeCacheStore(path string) *GeocodeCacheStore {
	return &GeocodeCacheStore{path: path}
}

// Load reads the cache. A missing file yields an empty map.
func (s *GeocodeCacheStore) Load() (map[string][]float64, error) {
	cache := map[string][]float64{}
	if _, err := readJSON(s.path, &cache); err != nil {
		return nil, err
	}
	return cache, nil
}

// Save replaces the stored cache.
func (s *GeocodeCacheStore) Save(cache map[string][]float64) error {
	return writeJSON(s.path, cache)
}
