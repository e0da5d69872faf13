// Package quality keeps per-source reliability counters across runs and
// decides which sources are no longer worth fetching.
package quality

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kidzout/harvester/internal/harvester"
)

const (
	// minAttempts is the observation floor below which a source is never
	// skipped, whatever its score.
	minAttempts = 10
	skipScore   = 0.2
	// neutralScore is assumed for sources with no history yet.
	neutralScore = 0.5
)

// Tracker accumulates attempt/success counters per source URL. All methods
// are safe for concurrent use by harvest workers.
type Tracker struct {
	mu    sync.Mutex
	store harvester.QualityStore
	stats map[string]harvester.SourceStats
	clock harvester.Clock
	log   *zap.Logger
}

// New loads prior counters from the store. A load failure starts the tracker
// empty rather than aborting the run.
func New(store harvester.QualityStore, clock harvester.Clock, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	stats, err := store.Load()
	if err != nil {
		log.Warn("quality history unavailable, starting fresh", zap.Error(err))
		stats = map[string]harvester.SourceStats{}
	}
	if stats == nil {
		stats = map[string]harvester.SourceStats{}
	}
	return &Tracker{store: store, stats: stats, clock: clock, log: log}
}

// Record notes the outcome of one source harvest. A success is a harvest
// that produced at least one record.
func (t *Tracker) Record(url string, success bool, items int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stats[url]
	s.Attempts++
	if success {
		s.Successes++
		s.TotalItems += items
		s.LastSuccess = t.clock.Now().Format(time.RFC3339)
	}
	t.stats[url] = s
}

// Score reports the success ratio for a source, or the neutral score when no
// attempts are on record.
func (t *Tracker) Score(url string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[url]
	if !ok || s.Attempts == 0 {
		return neutralScore
	}
	return float64(s.Successes) / float64(s.Attempts)
}

// ShouldSkip reports whether a source has enough history to be judged and
// scores below the cutoff.
func (t *Tracker) ShouldSkip(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[url]
	if !ok || s.Attempts < minAttempts {
		return false
	}
	return float64(s.Successes)/float64(s.Attempts) < skipScore
}

// Flush writes the counters back through the store. Persistence failures are
// logged, never fatal: losing one run of counters is acceptable.
func (t *Tracker) Flush() {
	t.mu.Lock()
	snapshot := make(map[string]harvester.SourceStats, len(t.stats))
	for url, s := range t.stats {
		snapshot[url] = s
	}
	t.mu.Unlock()

	if err := t.store.Save(snapshot); err != nil {
		t.log.Warn("failed to persist quality counters", zap.Error(err))
	}
}
