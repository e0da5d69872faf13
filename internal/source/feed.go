package source

import (
	"bytes"
	"context"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/normalize"
)

// feedEntryCap bounds how many entries one feed may contribute per run.
const feedEntryCap = 50

func (h *Harvester) harvestFeed(ctx context.Context, src harvester.Source) []harvester.Record {
	body, ok := h.fetch.Get(ctx, src.URL)
	if !ok {
		return nil
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		h.log.Warn("unparseable feed", zap.String("url", src.URL), zap.Error(err))
		return nil
	}

	now := h.clock.Now()
	records := make([]harvester.Record, 0, min(len(feed.Items), feedEntryCap))
	for _, item := range feed.Items {
		if len(records) >= feedEntryCap {
			break
		}
		if item == nil || item.Title == "" {
			continue
		}

		rec := harvester.Record{
			Kind:        harvester.KindEvent,
			Name:        item.Title,
			Description: normalize.CollapseWhitespace(item.Description),
			Link:        item.Link,
		}
		switch {
		case item.PublishedParsed != nil:
			rec.Date = normalize.FromTime(*item.PublishedParsed)
		case item.Published != "":
			rec.Date = normalize.Date(item.Published, now)
		default:
			// Some feeds only mention the date inside the title.
			if raw, found := normalize.FindDate(item.Title); found {
				rec.Date = normalize.Date(raw, now)
			}
		}
		records = append(records, rec)
	}
	return records
}
