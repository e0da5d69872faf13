// Package normalize converts free-text dates, categories, and descriptions
// into canonical forms. All functions are total: malformed input resolves to
// a safe default, never an error.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const civilDateLayout = "2006-01-02"

var germanMonths = map[string]time.Month{
	"januar":    time.January,
	"februar":   time.February,
	"märz":      time.March,
	"april":     time.April,
	"mai":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"august":    time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"dezember":  time.December,
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{2,4}`),
	regexp.MustCompile(`\d{1,2}\.\s*(Januar|Februar|März|April|Mai|Juni|Juli|August|September|Oktober|November|Dezember)(\s*\d{4})?`),
}

// German date forms are parsed explicitly: generic parsers read dotted dates
// month-first or reject them outright.
var (
	dottedDate    = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2,4})$`)
	monthNameDate = regexp.MustCompile(`^(\d{1,2})\.\s*([A-Za-zÄäÖöÜüß]+)(?:\s*(\d{4}))?$`)
)

// Date normalizes arbitrary date text to a YYYY-MM-DD civil date. Input
// without a timezone is anchored to UTC before the calendar date is taken.
// Empty or unparseable input yields now's UTC calendar date.
func Date(text string, now time.Time) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return FromTime(now)
	}
	if m := dottedDate.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if d, ok := civilDate(year, time.Month(month), day); ok {
			return d
		}
		return FromTime(now)
	}
	if m := monthNameDate.FindStringSubmatch(text); m != nil {
		if month, known := germanMonths[strings.ToLower(m[2])]; known {
			day, _ := strconv.Atoi(m[1])
			year := now.UTC().Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			}
			if d, ok := civilDate(year, month, day); ok {
				return d
			}
			return FromTime(now)
		}
	}
	t, err := dateparse.ParseAny(text)
	if err != nil {
		return FromTime(now)
	}
	return t.Format(civilDateLayout)
}

// civilDate formats a calendar date, rejecting component combinations that
// do not round-trip (such as 31.02.).
func civilDate(year int, month time.Month, day int) (string, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return "", false
	}
	return t.Format(civilDateLayout), true
}

// FromTime reduces a native timestamp to its UTC civil date.
func FromTime(t time.Time) string {
	return t.UTC().Format(civilDateLayout)
}

// FindDate scans free text for the first date-like substring (ISO, German
// numeric, or German month-name forms). The second return is false when no
// pattern matches.
func FindDate(text string) (string, bool) {
	for _, p := range datePatterns {
		if m := p.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}
