package source

import (
	"context"

	"github.com/kidzout/harvester/internal/extract"
	"github.com/kidzout/harvester/internal/harvester"
)

// harvestPage extracts events from an HTML listing page. Structured data
// wins when present; selector scraping is the fallback.
func (h *Harvester) harvestPage(ctx context.Context, src harvester.Source) []harvester.Record {
	body, ok := h.fetch.Get(ctx, src.URL)
	if !ok {
		return nil
	}
	now := h.clock.Now()

	structured := keepKind(extract.Structured(src.URL, body, now), harvester.KindEvent)
	if len(structured) > 0 {
		return structured
	}
	return extract.Events(src.URL, body, src, now)
}

func (h *Harvester) harvestLocations(ctx context.Context, src harvester.Source) []harvester.Record {
	body, ok := h.fetch.Get(ctx, src.URL)
	if !ok {
		return nil
	}

	structured := keepKind(extract.Structured(src.URL, body, h.clock.Now()), harvester.KindLocation)
	if len(structured) > 0 {
		return structured
	}
	return extract.Locations(src.URL, body, src)
}

func keepKind(records []harvester.Record, kind harvester.RecordKind) []harvester.Record {
	kept := records[:0]
	for _, rec := range records {
		if rec.Kind == kind {
			kept = append(kept, rec)
		}
	}
	return kept
}
