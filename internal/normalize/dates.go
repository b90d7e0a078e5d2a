package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// DateLayouts are tried in order; the first that parses wins.
var DateLayouts = []string{
	isoDate,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2006/01/02",
}

var (
	spanishMonths = map[string]time.Month{
		"enero": time.January, "febrero": time.February, "marzo": time.March,
		"abril": time.April, "mayo": time.May, "junio": time.June,
		"julio": time.July, "agosto": time.August, "septiembre": time.September,
		"setiembre": time.September, "octubre": time.October,
		"noviembre": time.November, "diciembre": time.December,
	}

	reSpanishLong = regexp.MustCompile(`(?i)\b(\d{1,2})\s+de\s+([a-záéíóúñ]+)\s+de(?:l)?\s+(\d{4})\b`)
	reDMYToken    = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	reISOToken    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// NormalizeDate returns s as YYYY-MM-DD. Unparseable input reports false.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), true
		}
	}
	if m := reSpanishLong.FindStringSubmatch(s); m != nil {
		if month, ok := spanishMonths[strings.ToLower(m[2])]; ok {
			if d, ok := civil(m[3], int(month), m[1]); ok {
				return d, true
			}
		}
	}
	// a date embedded in longer text, e.g. "14/08/2025, 10:00 horas"
	if m := reISOToken.FindStringSubmatch(s); m != nil {
		if d, ok := civilParts(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	if m := reDMYToken.FindStringSubmatch(s); m != nil {
		if d, ok := civilParts(m[3], m[2], m[1]); ok {
			return d, true
		}
	}
	return "", false
}

func civilParts(year, month, day string) (string, bool) {
	mo, err := strconv.Atoi(month)
	if err != nil {
		return "", false
	}
	return civil(year, mo, day)
}

// civil rejects dates that time.Date would roll over, like 31/02.
func civil(year string, month int, day string) (string, bool) {
	y, err1 := strconv.Atoi(year)
	d, err2 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || month < 1 || month > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(month), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != month {
		return "", false
	}
	return t.Format(isoDate), true
}
