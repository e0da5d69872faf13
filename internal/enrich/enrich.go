// Package enrich derives family-oriented display and metadata fields from a
// record's text. Enrichment is deterministic and idempotent: every field is
// recomputed from Name+Description, never merged with a previous value.
package enrich

import (
	"strings"

	"github.com/kidzout/harvester/internal/harvester"
)

type symbolRule struct {
	symbol   string
	keywords []string
}

type ageRule struct {
	band     string
	keywords []string
}

// Classifier holds the keyword tables driving enrichment. The tables are
// fuzzy, language-specific heuristics; swap them out rather than guessing a
// universal taxonomy.
type Classifier struct {
	eventAges    []ageRule
	locationAges []ageRule
	eventSymbols []symbolRule
	locSymbols   []symbolRule
}

// NewClassifier returns a Classifier with the default German keyword tables.
func NewClassifier() *Classifier {
	return &Classifier{
		eventAges: []ageRule{
			{"0-3", []string{"baby", "kleinkind", "ab 1", "ab 2", "krippe", "krabbelgruppe", "0-3", "u3"}},
			{"3-6", []string{"kindergarten", "ab 3", "ab 4", "ab 5", "vorschule", "kita", "3-6"}},
			{"6-9", []string{"grundschule", "ab 6", "ab 7", "ab 8", "schulkind", "6-9", "erstklässler"}},
			{"9-12", []string{"ab 9", "ab 10", "ab 11", "ab 12", "teenager", "jugend", "9-12"}},
		},
		locationAges: []ageRule{
			{"0-3", []string{"baby", "kleinkind", "0-3", "u3", "krabbelgruppe"}},
			{"3-6", []string{"kindergarten", "3-6", "vorschule", "kita"}},
			{"6-9", []string{"grundschule", "6-9", "schulkind"}},
			{"9-12", []string{"ab 9", "ab 10", "9-12", "teenager"}},
		},
		eventSymbols: []symbolRule{
			{"🎭", []string{"theater", "kasperl"}},
			{"🎨", []string{"workshop", "basteln"}},
			{"🎵", []string{"musik", "konzert"}},
			{"⚽", []string{"sport", "bewegung"}},
			{"🏛️", []string{"museum"}},
		},
		locSymbols: []symbolRule{
			{"🏞️", []string{"spielplatz"}},
			{"🏛️", []string{"museum"}},
			{"🏠", []string{"indoor", "halle"}},
			{"🏊", []string{"schwimm", "bad"}},
			{"🦁", []string{"tier", "zoo"}},
		},
	}
}

// Event recomputes all enrichment fields of an event record in place.
func (c *Classifier) Event(r *harvester.Record) {
	text := strings.ToLower(r.Name + " " + r.Description)

	r.AgeGroups = matchBands(c.eventAges, text)
	if len(r.AgeGroups) == 0 {
		switch r.Category {
		case "theater", "museum":
			r.AgeGroups = []string{"3-6", "6-9"}
		case "sport", "kreativ":
			r.AgeGroups = []string{"6-9", "9-12"}
		default:
			r.AgeGroups = []string{"3-6", "6-9", "9-12"}
		}
	}

	r.NameKids = firstSymbol(c.eventSymbols, text, "🎉") + " " + clip(r.Name, 50)

	r.ParentTips = []string{
		"Rechtzeitig da sein - beliebte Events sind schnell voll",
		"Snacks und Getränke mitbringen",
		"Mit Öffis anreisen wenn möglich",
	}

	switch {
	case containsAny(text, "draußen", "outdoor", "garten", "park", "spielplatz", "wandern"):
		r.WeatherDependent = "good-weather"
	case containsAny(text, "drinnen", "indoor", "halle", "museum", "theater"):
		r.WeatherDependent = "indoor"
	default:
		r.WeatherDependent = "any"
	}

	switch {
	case containsAny(text, "sport", "toben", "klettern", "rennen", "action", "trampolin"):
		r.EnergyLevel = "aktiv"
	case containsAny(text, "basteln", "malen", "lesen", "märchen", "ruhig"):
		r.EnergyLevel = "ruhig"
	default:
		r.EnergyLevel = "moderat"
	}
}

// Location recomputes all enrichment fields of a location record in place.
func (c *Classifier) Location(r *harvester.Record) {
	text := strings.ToLower(r.Name + " " + r.Description)

	r.AgeGroups = matchBands(c.locationAges, text)
	if len(r.AgeGroups) == 0 {
		switch r.Category {
		case "spielplatz", "outdoor":
			r.AgeGroups = []string{"3-6", "6-9"}
		case "museum", "indoor":
			r.AgeGroups = []string{"6-9", "9-12"}
		default:
			r.AgeGroups = []string{"3-6", "6-9", "9-12"}
		}
	}

	symbol := "🎯"
	if s := matchLocationSymbol(c.locSymbols, text, r.Category); s != "" {
		symbol = s
	}
	r.NameKids = symbol + " " + clip(r.Name, 50)

	snippet := clip(r.Description, 150)
	r.Content = map[string]string{
		"3-6":  "Ein toller Ort für kleine Entdecker! " + snippet,
		"6-9":  "Spannend für Schulkinder! " + snippet,
		"9-12": "Perfekt für ältere Kinder! " + snippet,
	}

	switch {
	case containsAny(text, "outdoor", "draußen", "park", "spielplatz", "garten"):
		r.WeatherSuitable = "good-weather"
	case containsAny(text, "indoor", "drinnen", "halle", "museum"):
		r.WeatherSuitable = "indoor"
	default:
		r.WeatherSuitable = "any"
	}

	switch {
	case containsAny(text, "sport", "klettern", "toben", "action", "spielplatz"):
		r.EnergyLevel = "high"
	case containsAny(text, "basteln", "malen", "lesen", "museum"):
		r.EnergyLevel = "low"
	default:
		r.EnergyLevel = "medium"
	}

	switch {
	case strings.Contains(text, "museum"):
		r.Duration = "2-3 Stunden"
	case strings.Contains(text, "spielplatz"):
		r.Duration = "1-2 Stunden"
	default:
		r.Duration = "2-4 Stunden"
	}

	tips := []string{"Wasser und Snacks nicht vergessen"}
	switch r.WeatherSuitable {
	case "good-weather":
		tips = append(tips, "Sonnenschutz und wetterfeste Kleidung einpacken")
	case "indoor":
		tips = append(tips, "Wechselkleidung kann hilfreich sein")
	}
	if strings.Contains(text, "spielplatz") {
		tips = append(tips, "Erste-Hilfe-Set griffbereit haben")
	}
	r.ParentTips = tips

	var highlights []string
	if containsAny(text, "kostenlos", "frei") {
		highlights = append(highlights, "Kostenloser Eintritt")
	}
	if containsAny(text, "parkplatz", "parken") {
		highlights = append(highlights, "Parkplätze vorhanden")
	}
	if containsAny(text, "öpnv", "u-bahn", "bus") {
		highlights = append(highlights, "Gut mit Öffis erreichbar")
	}
	r.Highlights = highlights

	var amenities []string
	if strings.Contains(text, "wickel") {
		amenities = append(amenities, "Wickelraum")
	}
	if containsAny(text, "wc", "toilette") {
		amenities = append(amenities, "WC")
	}
	if strings.Contains(text, "parkplatz") {
		amenities = append(amenities, "Parkplatz")
	}
	if containsAny(text, "rollstuhl", "barrierefrei") {
		amenities = append(amenities, "Rollstuhlgerecht")
	}
	r.Amenities = amenities
}

func matchBands(rules []ageRule, text string) []string {
	var bands []string
	for _, rule := range rules {
		if containsAny(text, rule.keywords...) {
			bands = append(bands, rule.band)
		}
	}
	return bands
}

func firstSymbol(rules []symbolRule, text, fallback string) string {
	for _, rule := range rules {
		if containsAny(text, rule.keywords...) {
			return rule.symbol
		}
	}
	return fallback
}

func matchLocationSymbol(rules []symbolRule, text, category string) string {
	for _, rule := range rules {
		if containsAny(text, rule.keywords...) || containsAny(category, rule.keywords...) {
			return rule.symbol
		}
	}
	return ""
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
