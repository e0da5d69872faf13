package normalize

import "strings"

type categoryRule struct {
	tag      string
	keywords []string
}

// Ordering matters: specific categories (museum, theater) must precede the
// generic fallbacks. First match wins.
var eventCategories = []categoryRule{
	{"theater", []string{"theater", "puppentheater", "kasperl", "bühne", "musical"}},
	{"museum", []string{"museum", "ausstellung", "galerie", "kunst"}},
	{"outdoor", []string{"spielplatz", "outdoor", "park", "garten", "wandern", "natur", "draußen"}},
	{"indoor", []string{"indoor", "halle", "drinnen"}},
	{"kreativ", []string{"workshop", "basteln", "kreativ", "malen", "werken", "kurs"}},
	{"schwimmbad", []string{"schwimmen", "baden", "pool", "freibad", "hallenbad", "wasser"}},
	{"sport", []string{"sport", "turnen", "fußball", "klettern", "bewegung", "tanz"}},
	{"musik", []string{"musik", "konzert", "singen", "instrument"}},
	{"kino", []string{"kino", "film", "vorführung"}},
	{"festival", []string{"fest", "festival", "markt", "feier"}},
}

var locationCategories = []categoryRule{
	{"spielplatz", []string{"spielplatz"}},
	{"museum", []string{"museum"}},
	{"indoor", []string{"indoor", "halle"}},
	{"schwimmbad", []string{"schwimm", "bad"}},
	{"tierpark", []string{"tier", "zoo"}},
}

// Category maps free text to exactly one event category tag; unmatched text
// falls back to the generic "event".
func Category(text string) string {
	return match(eventCategories, text, "event")
}

// LocationCategory maps free text to a location category tag, defaulting to
// the generic "location".
func LocationCategory(text string) string {
	return match(locationCategories, text, "location")
}

func match(rules []categoryRule, text, fallback string) string {
	t := strings.ToLower(text)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				return rule.tag
			}
		}
	}
	return fallback
}
