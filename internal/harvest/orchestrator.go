// Package harvest runs the full pipeline across all configured sources:
// dispatch through a bounded worker pool, merge and deduplicate the results,
// fold in manually curated events, and persist the output document.
package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/id"
	"github.com/kidzout/harvester/internal/telemetry"
)

// SourceHarvester processes one source into records.
type SourceHarvester interface {
	Harvest(ctx context.Context, src harvester.Source) []harvester.Record
}

// Quality gates dispatch and accumulates per-source outcomes.
type Quality interface {
	ShouldSkip(url string) bool
	Record(url string, success bool, items int)
	Flush()
}

// Config controls orchestration.
type Config struct {
	// Workers is the dispatch pool width.
	Workers int
	// ManualEventsPath optionally points at a JSON file of curated events
	// merged into every run.
	ManualEventsPath string
}

// Summary describes one completed run.
type Summary struct {
	RunID          string
	Events         int
	Locations      int
	SourcesTotal   int
	SourcesSkipped int
	Duration       time.Duration
	// Preserved is set when a zero-yield run kept the previous output.
	Preserved bool
}

// Orchestrator coordinates one harvest run end to end.
type Orchestrator struct {
	sources SourceHarvester
	quality Quality
	output  harvester.OutputStore
	clock   harvester.Clock
	cfg     Config
	log     *zap.Logger
}

// New wires an orchestrator.
func New(sources SourceHarvester, quality Quality, output harvester.OutputStore, clock harvester.Clock, cfg Config, log *zap.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		sources: sources,
		quality: quality,
		output:  output,
		clock:   clock,
		cfg:     cfg,
		log:     log,
	}
}

// Run harvests every source and persists the merged dataset. Source failures
// never abort the run; only an output write failure surfaces as an error.
func (o *Orchestrator) Run(ctx context.Context, sources []harvester.Source) (Summary, error) {
	start := o.clock.Now()
	summary := Summary{
		RunID:        id.Run(),
		SourcesTotal: len(sources),
	}
	log := o.log.With(zap.String("run_id", summary.RunID))
	log.Info("harvest run starting",
		zap.Int("sources", len(sources)),
		zap.Int("workers", o.cfg.Workers),
	)

	results := o.dispatch(ctx, sources, &summary, log)

	var events, locations []harvester.Record
	for _, records := range results {
		for _, rec := range records {
			if rec.Kind == harvester.KindLocation {
				locations = append(locations, rec)
			} else {
				events = append(events, rec)
			}
		}
	}
	// Curated events go first so they win same-key collisions during dedup.
	events = append(o.manualEvents(log), events...)

	events = dedupeEvents(events)
	locations = dedupeLocations(locations)
	summary.Duration = o.clock.Now().Sub(start)

	o.quality.Flush()

	if len(events) == 0 && len(locations) == 0 {
		// A run that found nothing is treated as a harvest failure, not as
		// the dataset becoming empty. The previous output stays in place.
		log.Warn("run yielded no records, preserving previous output")
		summary.Preserved = true
		return summary, nil
	}

	// Each list is preserved independently: a run that found events but no
	// locations must not wipe the previously persisted locations.
	if len(events) == 0 || len(locations) == 0 {
		prior, err := o.output.Load()
		if err != nil {
			log.Warn("previous output unavailable", zap.Error(err))
		}
		if len(events) == 0 {
			events = prior.Events
			log.Warn("run yielded no events, keeping previous list", zap.Int("kept", len(events)))
		}
		if len(locations) == 0 {
			locations = prior.Locations
			log.Warn("run yielded no locations, keeping previous list", zap.Int("kept", len(locations)))
		}
	}

	sortEvents(events)
	sortLocations(locations)
	summary.Events = len(events)
	summary.Locations = len(locations)

	ds := harvester.Dataset{
		Events:         events,
		Locations:      locations,
		TotalEvents:    len(events),
		TotalLocations: len(locations),
		LastCrawled:    o.clock.Now().Format(time.RFC3339),
		Metadata: map[string]any{
			"runId":           summary.RunID,
			"durationSeconds": summary.Duration.Seconds(),
			"sources":         summary.SourcesTotal,
			"sourcesSkipped":  summary.SourcesSkipped,
		},
	}
	if err := o.output.Save(ds); err != nil {
		log.Error("failed to persist output", zap.Error(err))
		return summary, err
	}

	log.Info("harvest run complete",
		zap.Int("events", summary.Events),
		zap.Int("locations", summary.Locations),
		zap.Int("sources_skipped", summary.SourcesSkipped),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// dispatch fans sources out over the worker pool. Results are indexed by
// source position so merge order stays deterministic regardless of worker
// scheduling.
func (o *Orchestrator) dispatch(ctx context.Context, sources []harvester.Source, summary *Summary, log *zap.Logger) [][]harvester.Record {
	type job struct {
		idx int
		src harvester.Source
	}

	results := make([][]harvester.Record, len(sources))
	jobs := make(chan job)
	var skipped sync.Map

	var wg sync.WaitGroup
	for w := 0; w < o.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					return
				}
				if o.quality.ShouldSkip(j.src.URL) {
					telemetry.ObserveSourceSkipped()
					skipped.Store(j.idx, true)
					log.Info("skipping low-quality source", zap.String("url", j.src.URL))
					continue
				}
				records := o.sources.Harvest(ctx, j.src)
				o.quality.Record(j.src.URL, len(records) > 0, len(records))
				results[j.idx] = records
				log.Debug("source harvested",
					zap.String("url", j.src.URL),
					zap.Int("records", len(records)),
				)
			}
		}()
	}

	for i, src := range sources {
		select {
		case jobs <- job{idx: i, src: src}:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	skipped.Range(func(_, _ any) bool {
		summary.SourcesSkipped++
		return true
	})
	return results
}

// manualEvents loads the curated events file, if configured and present.
func (o *Orchestrator) manualEvents(log *zap.Logger) []harvester.Record {
	if o.cfg.ManualEventsPath == "" {
		return nil
	}
	data, err := os.ReadFile(o.cfg.ManualEventsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		log.Warn("failed to read manual events", zap.Error(err))
		return nil
	}

	events, err := decodeManualEvents(data)
	if err != nil {
		log.Warn("unparseable manual events file", zap.Error(err))
		return nil
	}

	now := o.clock.Now()
	for i := range events {
		events[i].Kind = harvester.KindEvent
		if events[i].Source == "" {
			events[i].Source = "manual"
		}
		if events[i].LastUpdated == "" {
			events[i].LastUpdated = now.Format("2006-01-02")
		}
		if events[i].ID == "" {
			events[i].ID = id.Event(events[i].Name, events[i].Date, events[i].Link)
		}
	}
	log.Info("manual events merged", zap.Int("count", len(events)))
	return events
}

// decodeManualEvents accepts both file shapes in circulation: a bare array
// of events and an object wrapping the array under an "events" key.
func decodeManualEvents(data []byte) ([]harvester.Record, error) {
	var wrapped struct {
		Events []harvester.Record `json:"events"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Events != nil {
		return wrapped.Events, nil
	}

	var events []harvester.Record
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Persisted order is stable across runs so the output diffs cleanly.
func sortEvents(events []harvester.Record) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Name < events[j].Name
	})
}

func sortLocations(locations []harvester.Record) {
	sort.Slice(locations, func(i, j int) bool {
		return locations[i].Name < locations[j].Name
	})
}

// dedupeEvents collapses near-duplicates on a name-prefix plus date key. The
// earliest record wins unless a later one carries a longer description.
func dedupeEvents(events []harvester.Record) []harvester.Record {
	return dedupe(events, func(r harvester.Record) string {
		return prefix(r.Name, 30) + "|" + r.Date
	})
}

func dedupeLocations(locations []harvester.Record) []harvester.Record {
	return dedupe(locations, func(r harvester.Record) string {
		return prefix(r.Name, 30) + "|" + prefix(r.Address, 20)
	})
}

func dedupe(records []harvester.Record, key func(harvester.Record) string) []harvester.Record {
	out := make([]harvester.Record, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		k := key(rec)
		if at, seen := index[k]; seen {
			if len(rec.Description) > len(out[at].Description) {
				out[at] = rec
			}
			continue
		}
		index[k] = len(out)
		out = append(out, rec)
	}
	return out
}

func prefix(s string, n int) string {
	s = strings.ToLower(strings.TrimSpace(s))
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
