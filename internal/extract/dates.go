package extract

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// polishMonths maps genitive and nominative month names to months.
var polishMonths = map[string]time.Month{
	"stycznia": time.January, "styczeń": time.January,
	"lutego": time.February, "luty": time.February,
	"marca": time.March, "marzec": time.March,
	"kwietnia": time.April, "kwiecień": time.April,
	"maja": time.May, "maj": time.May,
	"czerwca": time.June, "czerwiec": time.June,
	"lipca": time.July, "lipiec": time.July,
	"sierpnia": time.August, "sierpień": time.August,
	"września": time.September, "wrzesień": time.September,
	"października": time.October, "październik": time.October,
	"listopada": time.November, "listopad": time.November,
	"grudnia": time.December, "grudzień": time.December,
}

var polishLower = cases.Lower(language.Polish)

// parsePolishDate parses "2 października 1952" style dates.
func parsePolishDate(text string) (time.Time, bool) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(fields[0])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := polishMonths[polishLower.String(fields[1])]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return time.Time{}, false
	}
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || date.Month() != month {
		return time.Time{}, false
	}
	return date, true
}

// parseISODate accepts the yyyy-mm-dd form used in itemprop content.
func parseISODate(text string) (time.Time, bool) {
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
