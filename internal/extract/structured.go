// Package extract pulls event and location candidates out of fetched pages.
// The structured extractor reads schema.org JSON-LD blocks; the selector
// extractor falls back to scraping repeated markup patterns.
package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/normalize"
)

type ldNode map[string]any

// Structured extracts schema.org records embedded as JSON-LD script blocks.
// Malformed blocks are skipped; nodes without a name are discarded. Events
// without a start date get the current date so downstream filtering stays
// total.
func Structured(pageURL string, body []byte, now time.Time) []harvester.Record {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var records []harvester.Record
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		for _, node := range decodeNodes(sel.Text()) {
			if rec, ok := recordFromNode(node, pageURL, now); ok {
				records = append(records, rec)
			}
		}
	})
	return records
}

// decodeNodes accepts the three shapes JSON-LD blocks come in: a single
// object, a top-level list, or an object with an @graph array.
func decodeNodes(raw string) []ldNode {
	data := []byte(strings.TrimSpace(raw))
	if len(data) == 0 {
		return nil
	}

	var single ldNode
	if err := json.Unmarshal(data, &single); err == nil {
		if graph, ok := single["@graph"].([]any); ok {
			return toNodes(graph)
		}
		return []ldNode{single}
	}

	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		return toNodes(list)
	}
	return nil
}

func toNodes(items []any) []ldNode {
	nodes := make([]ldNode, 0, len(items))
	for _, item := range items {
		if node, ok := item.(map[string]any); ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func recordFromNode(node ldNode, pageURL string, now time.Time) (harvester.Record, bool) {
	types := typeSet(node["@type"])
	switch {
	case types["Event"]:
		return eventFromNode(node, pageURL, now)
	case types["Place"], types["LocalBusiness"], types["TouristAttraction"]:
		return locationFromNode(node, pageURL)
	}
	return harvester.Record{}, false
}

func eventFromNode(node ldNode, pageURL string, now time.Time) (harvester.Record, bool) {
	name := stringField(node, "name")
	if name == "" {
		return harvester.Record{}, false
	}

	rec := harvester.Record{
		Kind:        harvester.KindEvent,
		Name:        name,
		Description: stringField(node, "description"),
		Link:        stringField(node, "url"),
	}
	if rec.Link == "" {
		rec.Link = pageURL
	}

	if start := stringField(node, "startDate"); start != "" {
		rec.Date = normalize.Date(start, now)
	} else {
		rec.Date = normalize.FromTime(now)
	}
	if end := stringField(node, "endDate"); end != "" {
		rec.EndDate = normalize.Date(end, now)
	}

	if loc, ok := node["location"].(map[string]any); ok {
		rec.Venue = stringField(loc, "name")
		rec.Address = flattenAddress(loc["address"])
		applyGeo(&rec, loc["geo"])
	}
	applyGeo(&rec, node["geo"])

	return rec, true
}

func locationFromNode(node ldNode, pageURL string) (harvester.Record, bool) {
	name := stringField(node, "name")
	if name == "" {
		return harvester.Record{}, false
	}

	rec := harvester.Record{
		Kind:        harvester.KindLocation,
		Name:        name,
		Description: stringField(node, "description"),
		Address:     flattenAddress(node["address"]),
		Link:        stringField(node, "url"),
	}
	if rec.Link == "" {
		rec.Link = pageURL
	}
	applyGeo(&rec, node["geo"])

	if hours := hoursField(node["openingHours"]); hours != "" {
		if parsed := normalize.OpeningHours(hours); len(parsed) > 0 {
			rec.OpeningHours = parsed
		}
	}

	return rec, true
}

func typeSet(value any) map[string]bool {
	set := map[string]bool{}
	switch v := value.(type) {
	case string:
		set[v] = true
		if strings.HasSuffix(v, "Event") {
			set["Event"] = true
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				set[s] = true
				if strings.HasSuffix(s, "Event") {
					set["Event"] = true
				}
			}
		}
	}
	return set
}

func stringField(node map[string]any, key string) string {
	if s, ok := node[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// flattenAddress joins a PostalAddress node into a single line, or passes a
// plain string address through.
func flattenAddress(value any) string {
	switch addr := value.(type) {
	case string:
		return strings.TrimSpace(addr)
	case map[string]any:
		parts := make([]string, 0, 3)
		if street := stringField(addr, "streetAddress"); street != "" {
			parts = append(parts, street)
		}
		locality := stringField(addr, "addressLocality")
		if code := stringField(addr, "postalCode"); code != "" {
			locality = strings.TrimSpace(code + " " + locality)
		}
		if locality != "" {
			parts = append(parts, locality)
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// applyGeo copies embedded coordinates onto the record. Pages that publish
// their own coordinates skip geocoding entirely.
func applyGeo(rec *harvester.Record, value any) {
	if rec.Lat != nil && rec.Lon != nil {
		return
	}
	geo, ok := value.(map[string]any)
	if !ok {
		return
	}
	lat, latOK := floatField(geo, "latitude")
	lon, lonOK := floatField(geo, "longitude")
	if latOK && lonOK {
		rec.Lat = &lat
		rec.Lon = &lon
	}
}

func floatField(node map[string]any, key string) (float64, bool) {
	switch v := node[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func hoursField(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}
