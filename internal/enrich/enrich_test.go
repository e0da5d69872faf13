package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kidzout/harvester/internal/harvester"
)

func TestEventEnrichment(t *testing.T) {
	t.Parallel()
	c := NewClassifier()

	rec := &harvester.Record{
		Kind:        harvester.KindEvent,
		Name:        "Kasperltheater für die Kleinen",
		Description: "Puppentheater im Saal, ab 4 Jahren",
		Category:    "theater",
	}
	c.Event(rec)

	require.Equal(t, []string{"3-6"}, rec.AgeGroups)
	require.True(t, strings.HasPrefix(rec.NameKids, "🎭 "))
	require.Equal(t, "indoor", rec.WeatherDependent)
	require.Equal(t, "moderat", rec.EnergyLevel)
	require.NotEmpty(t, rec.ParentTips)
}

func TestEventAgeDefaultsFollowCategory(t *testing.T) {
	t.Parallel()
	c := NewClassifier()

	rec := &harvester.Record{Name: "Sommerfest", Category: "festival"}
	c.Event(rec)
	require.Equal(t, []string{"3-6", "6-9", "9-12"}, rec.AgeGroups)

	rec = &harvester.Record{Name: "Mitmachaktion", Category: "kreativ"}
	c.Event(rec)
	require.Equal(t, []string{"6-9", "9-12"}, rec.AgeGroups)
}

func TestEventEnrichmentIsIdempotent(t *testing.T) {
	t.Parallel()
	c := NewClassifier()

	rec := &harvester.Record{Name: "Klettern und Toben", Category: "sport"}
	c.Event(rec)
	first := *rec
	c.Event(rec)
	require.Equal(t, first.NameKids, rec.NameKids)
	require.Equal(t, first.AgeGroups, rec.AgeGroups)
	require.Equal(t, first.EnergyLevel, rec.EnergyLevel)
}

func TestLocationEnrichment(t *testing.T) {
	t.Parallel()
	c := NewClassifier()

	rec := &harvester.Record{
		Kind:        harvester.KindLocation,
		Name:        "Abenteuerspielplatz am Westpark",
		Description: "Großer Spielplatz mit Kletterturm, WC und Parkplatz",
		Category:    "spielplatz",
	}
	c.Location(rec)

	require.True(t, strings.HasPrefix(rec.NameKids, "🏞️ "))
	require.Equal(t, "good-weather", rec.WeatherSuitable)
	require.Equal(t, "high", rec.EnergyLevel)
	require.Equal(t, "1-2 Stunden", rec.Duration)
	require.Contains(t, rec.Amenities, "WC")
	require.Contains(t, rec.Amenities, "Parkplatz")
	require.Contains(t, rec.Highlights, "Parkplätze vorhanden")

	require.Len(t, rec.Content, 3)
	for _, band := range []string{"3-6", "6-9", "9-12"} {
		require.Contains(t, rec.Content, band)
		require.Contains(t, rec.Content[band], "Spielplatz")
	}
}

func TestLocationSymbolFallsBackToCategory(t *testing.T) {
	t.Parallel()
	c := NewClassifier()

	// Nothing in the text matches, but the category does.
	rec := &harvester.Record{Name: "Hellabrunn", Category: "tierpark"}
	c.Location(rec)
	require.True(t, strings.HasPrefix(rec.NameKids, "🦁 "))

	rec = &harvester.Record{Name: "Stadtteilzentrum", Category: "location"}
	c.Location(rec)
	require.True(t, strings.HasPrefix(rec.NameKids, "🎯 "))
}
