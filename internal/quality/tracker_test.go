package quality

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testClock = fixedClock{now: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}

func TestNewSourceHasNeutralScore(t *testing.T) {
	t.Parallel()

	tr := New(&memory.StatsStore{}, testClock, nil)
	require.Equal(t, 0.5, tr.Score("https://fresh.example.de/"))
	require.False(t, tr.ShouldSkip("https://fresh.example.de/"))
}

func TestYoungSourceIsNeverSkipped(t *testing.T) {
	t.Parallel()

	tr := New(&memory.StatsStore{}, testClock, nil)
	url := "https://young.example.de/"

	// Nine straight failures are not enough history to judge.
	for i := 0; i < 9; i++ {
		tr.Record(url, false, 0)
	}
	require.False(t, tr.ShouldSkip(url))

	tr.Record(url, false, 0)
	require.True(t, tr.ShouldSkip(url))
}

func TestProductiveSourceIsNotSkipped(t *testing.T) {
	t.Parallel()

	tr := New(&memory.StatsStore{}, testClock, nil)
	url := "https://good.example.de/"

	for i := 0; i < 20; i++ {
		tr.Record(url, true, 5)
	}
	require.False(t, tr.ShouldSkip(url))
	require.Equal(t, 1.0, tr.Score(url))
}

func TestBorderlineScoreIsKept(t *testing.T) {
	t.Parallel()

	tr := New(&memory.StatsStore{}, testClock, nil)
	url := "https://borderline.example.de/"

	// Exactly 20% success sits on the cutoff and stays active.
	for i := 0; i < 10; i++ {
		tr.Record(url, i%5 == 0, 1)
	}
	require.Equal(t, 0.2, tr.Score(url))
	require.False(t, tr.ShouldSkip(url))
}

func TestRecordTracksItemsAndLastSuccess(t *testing.T) {
	t.Parallel()

	store := &memory.StatsStore{}
	tr := New(store, testClock, nil)
	url := "https://items.example.de/"

	tr.Record(url, true, 12)
	tr.Record(url, false, 0)
	tr.Flush()

	stats := store.Stats[url]
	require.Equal(t, 2, stats.Attempts)
	require.Equal(t, 1, stats.Successes)
	require.Equal(t, 12, stats.TotalItems)
	require.Equal(t, testClock.now.Format(time.RFC3339), stats.LastSuccess)
}

func TestLoadFailureStartsFresh(t *testing.T) {
	t.Parallel()

	store := &memory.StatsStore{Err: errors.New("disk on fire")}
	tr := New(store, testClock, nil)
	require.Equal(t, 0.5, tr.Score("https://any.example.de/"))
}

func TestCountersSurviveReload(t *testing.T) {
	t.Parallel()

	store := &memory.StatsStore{Stats: map[string]harvester.SourceStats{
		"https://old.example.de/": {Attempts: 10, Successes: 1},
	}}
	tr := New(store, testClock, nil)
	require.True(t, tr.ShouldSkip("https://old.example.de/"))
}
