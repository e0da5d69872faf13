package normalize

import (
	"regexp"
	"strings"
)

// hoursPattern matches German short-weekday ranges like "Mo-Fr 10:00-18:00"
// or single days like "Sa: 9:00-14:00".
var hoursPattern = regexp.MustCompile(`(mo|di|mi|do|fr|sa|so)(?:\s*-\s*(mo|di|mi|do|fr|sa|so))?\s*:?\s*(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})`)

var weekdayOrder = []string{"mo", "di", "mi", "do", "fr", "sa", "so"}

var weekdayNames = map[string]string{
	"mo": "monday",
	"di": "tuesday",
	"mi": "wednesday",
	"do": "thursday",
	"fr": "friday",
	"sa": "saturday",
	"so": "sunday",
}

// OpeningHours parses opening hours from free text into a weekday->"HH:MM-HH:MM"
// map. Unrecognized text yields an empty map.
func OpeningHours(text string) map[string]string {
	hours := make(map[string]string)
	if text == "" {
		return hours
	}
	lower := strings.ToLower(text)
	for _, m := range hoursPattern.FindAllStringSubmatch(lower, -1) {
		startDay, endDay := m[1], m[2]
		if endDay == "" {
			endDay = startDay
		}
		span := m[3] + "-" + m[4]
		for i := indexOfWeekday(startDay); i >= 0 && i <= indexOfWeekday(endDay); i++ {
			hours[weekdayNames[weekdayOrder[i]]] = span
		}
	}
	return hours
}

func indexOfWeekday(day string) int {
	for i, d := range weekdayOrder {
		if d == day {
			return i
		}
	}
	return -1
}
