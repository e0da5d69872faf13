package harvest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testClock = fixedClock{now: time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)}

// stubSources maps URLs to canned harvest results.
type stubSources struct {
	mu      sync.Mutex
	byURL   map[string][]harvester.Record
	visited []string
}

func (s *stubSources) Harvest(_ context.Context, src harvester.Source) []harvester.Record {
	s.mu.Lock()
	s.visited = append(s.visited, src.URL)
	s.mu.Unlock()
	return s.byURL[src.URL]
}

type stubQuality struct {
	mu      sync.Mutex
	skip    map[string]bool
	records map[string]int
	flushed int
}

func newStubQuality() *stubQuality {
	return &stubQuality{skip: map[string]bool{}, records: map[string]int{}}
}

func (q *stubQuality) ShouldSkip(url string) bool { return q.skip[url] }

func (q *stubQuality) Record(url string, _ bool, items int) {
	q.mu.Lock()
	q.records[url] = items
	q.mu.Unlock()
}

func (q *stubQuality) Flush() { q.flushed++ }

func event(name, date, desc string) harvester.Record {
	return harvester.Record{Kind: harvester.KindEvent, Name: name, Date: date, Description: desc}
}

func location(name, address string) harvester.Record {
	return harvester.Record{Kind: harvester.KindLocation, Name: name, Address: address}
}

func sources(urls ...string) []harvester.Source {
	out := make([]harvester.Source, len(urls))
	for i, u := range urls {
		out[i] = harvester.Source{Type: harvester.SourceHTML, URL: u}
	}
	return out
}

func TestRunMergesAndPersists(t *testing.T) {
	t.Parallel()

	stub := &stubSources{byURL: map[string][]harvester.Record{
		"https://a.example.de/": {event("Sommerfest", "2026-07-01", "Spiele im Hof")},
		"https://b.example.de/": {location("Westpark", "Westendstr. 305")},
	}}
	quality := newStubQuality()
	output := &memory.OutputStore{}

	o := New(stub, quality, output, testClock, Config{Workers: 2}, nil)
	summary, err := o.Run(context.Background(), sources("https://a.example.de/", "https://b.example.de/"))
	require.NoError(t, err)

	require.Equal(t, 1, summary.Events)
	require.Equal(t, 1, summary.Locations)
	require.False(t, summary.Preserved)
	require.NotEmpty(t, summary.RunID)
	require.Equal(t, 1, quality.flushed)
	require.Equal(t, 1, quality.records["https://a.example.de/"])

	require.Equal(t, 1, output.Saves)
	require.Equal(t, 1, output.Dataset.TotalEvents)
	require.Equal(t, 1, output.Dataset.TotalLocations)
	require.Equal(t, testClock.now.Format(time.RFC3339), output.Dataset.LastCrawled)
	require.Equal(t, summary.RunID, output.Dataset.Metadata["runId"])
}

func TestRunSkipsLowQualitySources(t *testing.T) {
	t.Parallel()

	stub := &stubSources{byURL: map[string][]harvester.Record{
		"https://good.example.de/": {event("Flohmarkt", "2026-05-03", "")},
	}}
	quality := newStubQuality()
	quality.skip["https://bad.example.de/"] = true
	output := &memory.OutputStore{}

	o := New(stub, quality, output, testClock, Config{}, nil)
	summary, err := o.Run(context.Background(), sources("https://good.example.de/", "https://bad.example.de/"))
	require.NoError(t, err)

	require.Equal(t, 1, summary.SourcesSkipped)
	require.NotContains(t, stub.visited, "https://bad.example.de/")
	// Skipped sources collect no new attempt counters.
	require.NotContains(t, quality.records, "https://bad.example.de/")
}

func TestRunDeduplicatesAcrossSources(t *testing.T) {
	t.Parallel()

	stub := &stubSources{byURL: map[string][]harvester.Record{
		"https://a.example.de/": {event("Kasperltheater im Park", "2026-06-14", "kurz")},
		"https://b.example.de/": {event("Kasperltheater im Park", "2026-06-14", "eine deutlich längere Beschreibung des Stücks")},
	}}
	output := &memory.OutputStore{}

	o := New(stub, newStubQuality(), output, testClock, Config{}, nil)
	summary, err := o.Run(context.Background(), sources("https://a.example.de/", "https://b.example.de/"))
	require.NoError(t, err)

	require.Equal(t, 1, summary.Events)
	require.Equal(t, "eine deutlich längere Beschreibung des Stücks", output.Dataset.Events[0].Description)
}

func TestRunDeduplicatesOnNamePrefixCaseInsensitively(t *testing.T) {
	t.Parallel()

	stub := &stubSources{byURL: map[string][]harvester.Record{
		"https://a.example.de/": {
			event("SOMMERFEST", "2026-07-01", "gleich"),
			event("Sommerfest", "2026-07-01", "gleich"),
			event("Sommerfest", "2026-07-02", "anderes Datum bleibt eigenständig"),
		},
	}}
	output := &memory.OutputStore{}

	o := New(stub, newStubQuality(), output, testClock, Config{}, nil)
	summary, err := o.Run(context.Background(), sources("https://a.example.de/"))
	require.NoError(t, err)
	require.Equal(t, 2, summary.Events)
}

func TestZeroYieldRunPreservesPreviousOutput(t *testing.T) {
	t.Parallel()

	previous := harvester.Dataset{
		Events:      []harvester.Record{event("Altbestand", "2026-01-01", "")},
		TotalEvents: 1,
	}
	output := &memory.OutputStore{Dataset: previous}
	stub := &stubSources{byURL: map[string][]harvester.Record{}}
	quality := newStubQuality()

	o := New(stub, quality, output, testClock, Config{}, nil)
	summary, err := o.Run(context.Background(), sources("https://down.example.de/"))
	require.NoError(t, err)

	require.True(t, summary.Preserved)
	require.Zero(t, output.Saves)
	require.Equal(t, previous, output.Dataset)
	// Quality counters still record the failed attempt.
	require.Equal(t, 1, quality.flushed)
	require.Contains(t, quality.records, "https://down.example.de/")
}

func TestPartialYieldKeepsPreviousLocations(t *testing.T) {
	t.Parallel()

	previous := harvester.Dataset{
		Locations:      []harvester.Record{location("Westpark", "Westendstr. 305")},
		TotalLocations: 1,
	}
	output := &memory.OutputStore{Dataset: previous}
	stub := &stubSources{byURL: map[string][]harvester.Record{
		"https://a.example.de/": {event("Sommerfest", "2026-07-01", "")},
	}}

	o := New(stub, newStubQuality(), output, testClock, Config{}, nil)
	summary, err := o.Run(context.Background(), sources("https://a.example.de/"))
	require.NoError(t, err)

	// The event list is refreshed; the untouched location list survives.
	require.False(t, summary.Preserved)
	require.Equal(t, 1, summary.Events)
	require.Equal(t, 1, summary.Locations)
	require.Equal(t, 1, output.Saves)
	require.Len(t, output.Dataset.Locations, 1)
	require.Equal(t, "Westpark", output.Dataset.Locations[0].Name)
	require.Equal(t, 1, output.Dataset.TotalLocations)
}

func TestPartialYieldKeepsPreviousEvents(t *testing.T) {
	t.Parallel()

	previous := harvester.Dataset{
		Events:      []harvester.Record{event("Altbestand", "2026-01-01", "")},
		TotalEvents: 1,
	}
	output := &memory.OutputStore{Dataset: previous}
	stub := &stubSources{byURL: map[string][]harvester.Record{
		"https://b.example.de/": {location("Westpark", "Westendstr. 305")},
	}}

	o := New(stub, newStubQuality(), output, testClock, Config{}, nil)
	summary, err := o.Run(context.Background(), sources("https://b.example.de/"))
	require.NoError(t, err)

	require.Equal(t, 1, summary.Events)
	require.Len(t, output.Dataset.Events, 1)
	require.Equal(t, "Altbestand", output.Dataset.Events[0].Name)
}

func TestOutputIsSorted(t *testing.T) {
	t.Parallel()

	stub := &stubSources{byURL: map[string][]harvester.Record{
		"https://a.example.de/": {
			event("Zirkus", "2026-08-01", ""),
			event("Basteln", "2026-05-01", ""),
			event("Anradeln", "2026-05-01", ""),
			location("Westpark", "w"),
			location("Kindermuseum", "k"),
		},
	}}
	output := &memory.OutputStore{}

	o := New(stub, newStubQuality(), output, testClock, Config{}, nil)
	_, err := o.Run(context.Background(), sources("https://a.example.de/"))
	require.NoError(t, err)

	// Events by (date, name), locations by name.
	require.Equal(t, "Anradeln", output.Dataset.Events[0].Name)
	require.Equal(t, "Basteln", output.Dataset.Events[1].Name)
	require.Equal(t, "Zirkus", output.Dataset.Events[2].Name)
	require.Equal(t, "Kindermuseum", output.Dataset.Locations[0].Name)
	require.Equal(t, "Westpark", output.Dataset.Locations[1].Name)
}

func TestManualEventsWinSameKeyCollisions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manualPath := filepath.Join(dir, "manual_events.json")
	manual := `[{"name": "Sommerfest", "date": "2026-07-01", "description": "gleich lang", "source": "manual"}]`
	require.NoError(t, os.WriteFile(manualPath, []byte(manual), 0o644))

	stub := &stubSources{byURL: map[string][]harvester.Record{
		"https://a.example.de/": {
			{Kind: harvester.KindEvent, Name: "Sommerfest", Date: "2026-07-01", Description: "auch gleich", Source: "a.example.de"},
		},
	}}
	output := &memory.OutputStore{}

	o := New(stub, newStubQuality(), output, testClock, Config{ManualEventsPath: manualPath}, nil)
	summary, err := o.Run(context.Background(), sources("https://a.example.de/"))
	require.NoError(t, err)

	// Same key, same description length: the curated record survives.
	require.Equal(t, 1, summary.Events)
	require.Equal(t, "manual", output.Dataset.Events[0].Source)
}

func TestManualEventsWrappedFileShape(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manualPath := filepath.Join(dir, "manual_events.json")
	manual := `{"events": [{"name": "Laternenumzug", "date": "2026-11-11", "link": "https://verein.example.de/laterne"}]}`
	require.NoError(t, os.WriteFile(manualPath, []byte(manual), 0o644))

	stub := &stubSources{byURL: map[string][]harvester.Record{}}
	output := &memory.OutputStore{}

	o := New(stub, newStubQuality(), output, testClock, Config{ManualEventsPath: manualPath}, nil)
	summary, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Events)
	require.Equal(t, "Laternenumzug", output.Dataset.Events[0].Name)
}

func TestManualEventsAreMerged(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manualPath := filepath.Join(dir, "manual_events.json")
	manual := `[{"name": "Laternenumzug", "date": "2026-11-11", "description": "Treffpunkt am Kirchplatz", "link": "https://verein.example.de/laterne"}]`
	require.NoError(t, os.WriteFile(manualPath, []byte(manual), 0o644))

	stub := &stubSources{byURL: map[string][]harvester.Record{
		"https://a.example.de/": {event("Sommerfest", "2026-07-01", "")},
	}}
	output := &memory.OutputStore{}

	o := New(stub, newStubQuality(), output, testClock, Config{ManualEventsPath: manualPath}, nil)
	summary, err := o.Run(context.Background(), sources("https://a.example.de/"))
	require.NoError(t, err)
	require.Equal(t, 2, summary.Events)

	var laterne *harvester.Record
	for i := range output.Dataset.Events {
		if output.Dataset.Events[i].Name == "Laternenumzug" {
			laterne = &output.Dataset.Events[i]
		}
	}
	require.NotNil(t, laterne)
	require.Equal(t, "manual", laterne.Source)
	require.NotEmpty(t, laterne.ID)
}

func TestMissingManualEventsFileIsFine(t *testing.T) {
	t.Parallel()

	stub := &stubSources{byURL: map[string][]harvester.Record{
		"https://a.example.de/": {event("Sommerfest", "2026-07-01", "")},
	}}
	output := &memory.OutputStore{}

	o := New(stub, newStubQuality(), output, testClock,
		Config{ManualEventsPath: filepath.Join(t.TempDir(), "nope.json")}, nil)
	summary, err := o.Run(context.Background(), sources("https://a.example.de/"))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Events)
}
