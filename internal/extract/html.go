package extract

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/normalize"
)

// eventSelectors is the ordered strategy chain tried against listing pages
// that carry no structured data. Earlier entries are more specific.
var eventSelectors = []string{
	"div[class*='event']",
	"div[class*='veranstaltung']",
	"article[class*='event']",
	"article[class*='teaser']",
	"div[class*='teaser']",
	"div[class*='item']",
	"div[class*='card']",
	"li[class*='event']",
	".m-teaser",
	".event-card",
	".list-item",
	"a[href*='/event']",
}

var locationSelectors = []string{
	"div[class*='location']",
	"div[class*='place']",
	"article[class*='location']",
	"div[class*='item']",
	".location-card",
	".place-item",
}

const (
	perSelectorCap = 20
	totalCap       = 30
	dedupPrefixLen = 100
)

// Events scrapes event candidates from HTML markup. A selector hint from the
// source config is tried before the generic chain. Results are capped and
// deduplicated on a text prefix so that overlapping selectors do not yield
// the same element twice.
func Events(pageURL string, body []byte, src harvester.Source, now time.Time) []harvester.Record {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var records []harvester.Record
	seen := map[string]bool{}
	for _, selector := range selectorChain(src.Selector, eventSelectors) {
		doc.Find(selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
			if i >= perSelectorCap || len(records) >= totalCap {
				return false
			}
			text := normalize.CollapseWhitespace(sel.Text())
			if len(text) <= 20 || !markSeen(seen, text) {
				return true
			}
			title := itemTitle(sel, src.TitleSelector)
			if len([]rune(title)) < 5 {
				return true
			}
			records = append(records, harvester.Record{
				Kind:        harvester.KindEvent,
				Name:        title,
				Date:        itemDate(sel, src.DateSelector, text, now),
				Description: itemDescription(sel, src.DescSelector),
				Link:        itemLink(sel, pageURL),
			})
			return true
		})
		if len(records) >= totalCap {
			break
		}
	}
	return records
}

// Locations scrapes location candidates. The thresholds are looser than for
// events since venue names and blurbs tend to be shorter.
func Locations(pageURL string, body []byte, src harvester.Source) []harvester.Record {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var records []harvester.Record
	seen := map[string]bool{}
	for _, selector := range selectorChain(src.Selector, locationSelectors) {
		doc.Find(selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
			if i >= perSelectorCap || len(records) >= totalCap {
				return false
			}
			text := normalize.CollapseWhitespace(sel.Text())
			if len(text) <= 15 || !markSeen(seen, text) {
				return true
			}
			name := itemTitle(sel, src.NameSelector)
			if len([]rune(name)) < 3 {
				return true
			}
			rec := harvester.Record{
				Kind:        harvester.KindLocation,
				Name:        name,
				Description: itemDescription(sel, src.DescSelector),
				Link:        itemLink(sel, pageURL),
			}
			if src.AddressSelector != "" {
				rec.Address = normalize.CollapseWhitespace(sel.Find(src.AddressSelector).First().Text())
			}
			records = append(records, rec)
			return true
		})
		if len(records) >= totalCap {
			break
		}
	}
	return records
}

func selectorChain(hint string, generic []string) []string {
	if hint == "" {
		return generic
	}
	return append([]string{hint}, generic...)
}

func markSeen(seen map[string]bool, text string) bool {
	key := text
	if runes := []rune(key); len(runes) > dedupPrefixLen {
		key = string(runes[:dedupPrefixLen])
	}
	if seen[key] {
		return false
	}
	seen[key] = true
	return true
}

// itemTitle resolves a title through the hint selector, then headings, then
// the first link text.
func itemTitle(sel *goquery.Selection, hint string) string {
	if hint != "" {
		if title := normalize.CollapseWhitespace(sel.Find(hint).First().Text()); title != "" {
			return title
		}
	}
	for _, heading := range []string{"h1", "h2", "h3", "h4"} {
		if title := normalize.CollapseWhitespace(sel.Find(heading).First().Text()); title != "" {
			return title
		}
	}
	return normalize.CollapseWhitespace(sel.Find("a").First().Text())
}

func itemDescription(sel *goquery.Selection, hint string) string {
	if hint != "" {
		if desc := normalize.CollapseWhitespace(sel.Find(hint).First().Text()); desc != "" {
			return normalize.Truncate(desc, 500)
		}
	}
	return normalize.Truncate(normalize.CollapseWhitespace(sel.Text()), 500)
}

func itemDate(sel *goquery.Selection, hint string, fullText string, now time.Time) string {
	if hint != "" {
		if raw := normalize.CollapseWhitespace(sel.Find(hint).First().Text()); raw != "" {
			return normalize.Date(raw, now)
		}
	}
	if raw, ok := normalize.FindDate(fullText); ok {
		return normalize.Date(raw, now)
	}
	return normalize.FromTime(now)
}

// itemLink resolves the element's first anchor against the page URL. Elements
// that are themselves anchors count too.
func itemLink(sel *goquery.Selection, pageURL string) string {
	href, ok := sel.Attr("href")
	if !ok {
		href, ok = sel.Find("a[href]").First().Attr("href")
	}
	if !ok || strings.TrimSpace(href) == "" {
		return pageURL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return pageURL
	}
	return base.ResolveReference(ref).String()
}
