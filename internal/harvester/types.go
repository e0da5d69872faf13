// Package harvester defines core types shared across subsystems.
package harvester

import (
	"context"
	"net/url"
	"time"
)

// RecordKind distinguishes time-bound events from persistent locations.
type RecordKind string

// Record kinds produced by the harvest pipeline.
const (
	KindEvent    RecordKind = "event"
	KindLocation RecordKind = "location"
)

// Price captures optional admission pricing for a record.
type Price struct {
	Kids   *float64 `json:"kids"`
	Adults *float64 `json:"adults"`
	Note   string   `json:"note,omitempty"`
}

// Record is the canonical normalized shape for a harvested event or location.
// Enrichment fields (AgeGroups, NameKids, weather/energy tags, tips) are
// derived from Name+Description and recomputable at any time; they are never
// merged incrementally.
type Record struct {
	ID          string     `json:"id"`
	Kind        RecordKind `json:"-"`
	Name        string     `json:"name"`
	NameKids    string     `json:"nameKids,omitempty"`
	Date        string     `json:"date,omitempty"`
	EndDate     string     `json:"endDate,omitempty"`
	Address     string     `json:"address,omitempty"`
	Lat         *float64   `json:"lat,omitempty"`
	Lon         *float64   `json:"lon,omitempty"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	City        string     `json:"city"`
	Region      string     `json:"region"`
	Country     string     `json:"country"`
	Venue       string     `json:"location,omitempty"`
	Price       *Price     `json:"price,omitempty"`
	Source      string     `json:"source"`
	Link        string     `json:"link"`
	LastUpdated string     `json:"lastUpdated"`

	AgeGroups        []string          `json:"ageGroups,omitempty"`
	ParentTips       []string          `json:"parentTips,omitempty"`
	WeatherDependent string            `json:"weatherDependent,omitempty"`
	WeatherSuitable  string            `json:"weatherSuitable,omitempty"`
	EnergyLevel      string            `json:"energyLevel,omitempty"`
	Content          map[string]string `json:"content,omitempty"`
	Duration         string            `json:"duration,omitempty"`
	Highlights       []string          `json:"highlights,omitempty"`
	Amenities        []string          `json:"amenities,omitempty"`
	OpeningHours     map[string]string `json:"openingHours,omitempty"`
}

// SourceType selects the harvesting strategy for a configured source.
type SourceType string

// Source types accepted in the sources configuration.
const (
	SourceFeed     SourceType = "feed"
	SourceHTML     SourceType = "html"
	SourceCalendar SourceType = "ical"
	SourceLocation SourceType = "location"
)

// Source describes one configured origin. HTML and location sources may carry
// selector hints; feeds and calendars are plain URLs. Loaded once per run and
// never mutated.
type Source struct {
	Type            SourceType `json:"type" mapstructure:"type"`
	URL             string     `json:"url" mapstructure:"url"`
	Selector        string     `json:"selector,omitempty" mapstructure:"selector"`
	TitleSelector   string     `json:"title_selector,omitempty" mapstructure:"title_selector"`
	DateSelector    string     `json:"date_selector,omitempty" mapstructure:"date_selector"`
	DescSelector    string     `json:"desc_selector,omitempty" mapstructure:"desc_selector"`
	NameSelector    string     `json:"name_selector,omitempty" mapstructure:"name_selector"`
	AddressSelector string     `json:"address_selector,omitempty" mapstructure:"address_selector"`
}

// FetchStatus classifies a fetch attempt outcome.
type FetchStatus string

// Fetch outcome statuses. Soft failures are retried on later runs; hard
// failures (403/404) are abandoned without retry within a run.
const (
	FetchSuccess     FetchStatus = "success"
	FetchSoftFailure FetchStatus = "soft-failure"
	FetchHardFailure FetchStatus = "hard-failure"
)

// FetchRequest captures everything needed to fetch one page.
type FetchRequest struct {
	URL       string
	UserAgent string
}

// FetchResponse is returned by a PageFetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// Outcome is the per-attempt result consumed by the quality tracker.
// Produced once per attempt, never mutated.
type Outcome struct {
	Status FetchStatus
	Body   []byte
	Domain string
}

// PageFetcher is the capability interface for retrieving one page. The
// resilient HTTP fetcher is the default implementation; the headless
// browser fetcher is a drop-in alternative with an identical contract.
type PageFetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error)
}

// QualityStore persists per-source attempt/success counters between runs.
type QualityStore interface {
	Load() (map[string]SourceStats, error)
	Save(map[string]SourceStats) error
}

// SourceStats tracks harvest reliability for one source URL.
type SourceStats struct {
	Attempts    int    `json:"attempts"`
	Successes   int    `json:"successes"`
	TotalItems  int    `json:"total_items"`
	LastSuccess string `json:"last_success,omitempty"`
}

// GeocodeStore persists resolved coordinates keyed by normalized address.
/// A nil entry is a tombstone: the address is known to be unresolvable.
type GeocodeStore interface {
	Load() (map[string][]float64, error)
	Save(map[string][]float64) error
}

// Dataset is the persisted output document.
type Dataset struct {
	Locations      []Record       `json:"locations"`
	Events         []Record       `json:"events"`
	TotalEvents    int            `json:"totalEvents"`
	TotalLocations int            `json:"totalLocations"`
	LastCrawled    string         `json:"lastCrawled,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// OutputStore loads and saves the harvest output document.
type OutputStore interface {
	Load() (Dataset, error)
	Save(Dataset) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Domain extracts the throttling/quality-tracking key from a URL. An
// unparseable URL maps to "unknown" so callers never branch on errors.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
