package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kidzout/harvester/internal/harvester"
)

func TestStatsStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "crawler_stats.json")
	store := NewStatsStore(path)

	// Missing file yields empty state.
	stats, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, stats)

	want := map[string]harvester.SourceStats{
		"https://a.example.de/": {Attempts: 12, Successes: 3, TotalItems: 40},
	}
	require.NoError(t, store.Save(want))

	got, err := NewStatsStore(path).Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestGeocodeCacheStoreKeepsTombstones(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "geocode_cache.json")
	store := NewGeocodeCacheStore(path)

	require.NoError(t, store.Save(map[string][]float64{
		"marienplatz 1, münchen, germany":  {48.137, 11.575},
		"nirgendwostr. 99, münchen, germany": nil,
	}))

	got, err := store.Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, []float64{48.137, 11.575}, got["marienplatz 1, münchen, germany"])

	coords, present := got["nirgendwostr. 99, münchen, germany"]
	require.True(t, present)
	require.Nil(t, coords)
}

func TestOutputStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.json")
	store := NewOutputStore(path)

	ds, err := store.Load()
	require.NoError(t, err)
	require.Zero(t, ds.TotalEvents)

	want := harvester.Dataset{
		Events:      []harvester.Record{{ID: "ev-abc", Name: "Sommerfest", Date: "2026-07-01"}},
		TotalEvents: 1,
		LastCrawled: "2026-03-10T06:00:00Z",
		Metadata:    map[string]any{"runId": "r1"},
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, 1, got.TotalEvents)
	require.Equal(t, "Sommerfest", got.Events[0].Name)
	require.Equal(t, "r1", got.Metadata["runId"])
}

func TestLoadRejectsCorruptFiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{nicht json"), 0o644))

	_, err := NewOutputStore(path).Load()
	require.Error(t, err)
}

func TestSaveIsAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	store := NewOutputStore(path)
	require.NoError(t, store.Save(harvester.Dataset{TotalEvents: 1}))
	require.NoError(t, store.Save(harvester.Dataset{TotalEvents: 2}))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, 2, got.TotalEvents)
}
