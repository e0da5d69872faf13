package source

import (
	"bytes"
	"context"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/normalize"
)

func (h *Harvester) harvestCalendar(ctx context.Context, src harvester.Source) []harvester.Record {
	body, ok := h.fetch.Get(ctx, src.URL)
	if !ok {
		return nil
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		h.log.Warn("unparseable calendar", zap.String("url", src.URL), zap.Error(err))
		return nil
	}

	var records []harvester.Record
	for _, event := range cal.Events() {
		name := propValue(event, ics.ComponentPropertySummary)
		if name == "" {
			continue
		}

		rec := harvester.Record{
			Kind:        harvester.KindEvent,
			Name:        name,
			Description: normalize.CollapseWhitespace(propValue(event, ics.ComponentPropertyDescription)),
			Address:     propValue(event, ics.ComponentPropertyLocation),
			Link:        propValue(event, ics.ComponentPropertyUrl),
		}
		if start, err := event.GetStartAt(); err == nil {
			rec.Date = normalize.FromTime(start)
		}
		if end, err := event.GetEndAt(); err == nil {
			rec.EndDate = normalize.FromTime(end)
		}
		records = append(records, rec)
	}
	return records
}

func propValue(event *ics.VEvent, prop ics.ComponentProperty) string {
	p := event.GetProperty(prop)
	if p == nil {
		return ""
	}
	return normalize.CollapseWhitespace(p.Value)
}
