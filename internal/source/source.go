// Package source turns configured origins into normalized, enriched records.
// Each source type has its own harvest path; all of them converge on the
// same finalization step so records look identical regardless of origin.
package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/kidzout/harvester/internal/enrich"
	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/id"
	"github.com/kidzout/harvester/internal/normalize"
	"github.com/kidzout/harvester/internal/telemetry"
)

// Getter is the page retrieval contract the harvester depends on. The
// resilient fetcher satisfies it; tests substitute canned payloads.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, bool)
}

// Resolver turns street addresses into coordinates.
type Resolver interface {
	Lookup(ctx context.Context, address, city string) (float64, float64, bool)
}

// Defaults fill regional fields on records whose source pages omit them.
type Defaults struct {
	City    string
	Region  string
	Country string
}

// MunichDefaults is the regional baseline for the configured source set.
var MunichDefaults = Defaults{City: "München", Region: "Bayern", Country: "Deutschland"}

// Harvester executes one source end to end: fetch, extract, normalize,
// enrich, geocode.
type Harvester struct {
	fetch    Getter
	resolver Resolver
	classify *enrich.Classifier
	clock    harvester.Clock
	defaults Defaults
	log      *zap.Logger
}

// New wires a source harvester. A nil resolver disables geocoding.
func New(fetch Getter, resolver Resolver, clock harvester.Clock, defaults Defaults, log *zap.Logger) *Harvester {
	if defaults == (Defaults{}) {
		defaults = MunichDefaults
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Harvester{
		fetch:    fetch,
		resolver: resolver,
		classify: enrich.NewClassifier(),
		clock:    clock,
		defaults: defaults,
		log:      log,
	}
}

// Harvest fetches and processes one source. It never returns an error: a
// failed source yields zero records and the run moves on.
func (h *Harvester) Harvest(ctx context.Context, src harvester.Source) []harvester.Record {
	var records []harvester.Record
	switch src.Type {
	case harvester.SourceFeed:
		records = h.harvestFeed(ctx, src)
	case harvester.SourceCalendar:
		records = h.harvestCalendar(ctx, src)
	case harvester.SourceHTML:
		records = h.harvestPage(ctx, src)
	case harvester.SourceLocation:
		records = h.harvestLocations(ctx, src)
	default:
		h.log.Warn("unknown source type",
			zap.String("type", string(src.Type)),
			zap.String("url", src.URL),
		)
		return nil
	}

	for i := range records {
		h.finalize(ctx, &records[i], src)
	}
	telemetry.ObserveRecords(kindLabel(records), string(src.Type), len(records))
	return records
}

// finalize stamps identity, category, regional defaults and enrichment onto
// a raw extracted record.
func (h *Harvester) finalize(ctx context.Context, rec *harvester.Record, src harvester.Source) {
	now := h.clock.Now()

	rec.Name = normalize.CollapseWhitespace(rec.Name)
	rec.Description = normalize.Truncate(rec.Description, 500)
	if rec.Link == "" {
		rec.Link = src.URL
	}
	if rec.City == "" {
		rec.City = h.defaults.City
	}
	if rec.Region == "" {
		rec.Region = h.defaults.Region
	}
	if rec.Country == "" {
		rec.Country = h.defaults.Country
	}
	rec.Source = harvester.Domain(src.URL)
	rec.LastUpdated = normalize.FromTime(now)

	classifiable := rec.Name + " " + rec.Description

	switch rec.Kind {
	case harvester.KindLocation:
		rec.ID = id.Location(rec.Name, rec.Address, rec.Link)
		rec.Category = normalize.LocationCategory(classifiable)
		h.classify.Location(rec)
	default:
		rec.Kind = harvester.KindEvent
		if rec.Date == "" {
			rec.Date = normalize.FromTime(now)
		}
		rec.ID = id.Event(rec.Name, rec.Date, rec.Link)
		rec.Category = normalize.Category(classifiable)
		if rec.Price == nil {
			rec.Price = &harvester.Price{Note: "Siehe Webseite"}
		}
		h.classify.Event(rec)
	}

	h.geocode(ctx, rec)
}

// geocode fills coordinates for records that carry an address but no
// page-provided coordinates.
func (h *Harvester) geocode(ctx context.Context, rec *harvester.Record) {
	if h.resolver == nil || rec.Address == "" || (rec.Lat != nil && rec.Lon != nil) {
		return
	}
	lat, lon, ok := h.resolver.Lookup(ctx, rec.Address, rec.City)
	if !ok {
		return
	}
	rec.Lat = &lat
	rec.Lon = &lon
}

func kindLabel(records []harvester.Record) string {
	if len(records) > 0 && records[0].Kind == harvester.KindLocation {
		return string(harvester.KindLocation)
	}
	return string(harvester.KindEvent)
}
