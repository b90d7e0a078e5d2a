package normalize

import (
	"strconv"
	"strings"
)

// ParseAmount reads a printed amount such as "$1,500,000.00 M.N." or
// "1.234,50". Signs are ignored, so the result is never negative. A string
// without digits reports false; "0" is a known zero.
func ParseAmount(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	num := strings.Trim(b.String(), ".,")
	if num == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(num, ",")
	lastDot := strings.LastIndex(num, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// the right-most separator is the decimal one
		if lastComma > lastDot {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case lastComma >= 0:
		if thousandsOnly(num, ",") {
			num = strings.ReplaceAll(num, ",", "")
		} else {
			num = strings.Replace(num, ",", ".", 1)
		}
	case lastDot >= 0:
		if thousandsOnly(num, ".") {
			num = strings.ReplaceAll(num, ".", "")
		}
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

// thousandsOnly reports whether sep, the only separator kind in num, groups
// thousands: it repeats, or it appears once with exactly three digits after
// it and a non-zero integer part before it ("1.500", "1,500" but not "0.500").
func thousandsOnly(num, sep string) bool {
	if strings.Count(num, sep) > 1 {
		return true
	}
	i := strings.Index(num, sep)
	return len(num)-i-1 == 3 && strings.TrimLeft(num[:i], "0") != ""
}

var currencySynonyms = map[string]string{
	"mxn":             "MXN",
	"mxp":             "MXN",
	"m.n.":            "MXN",
	"m.n":             "MXN",
	"mn":              "MXN",
	"pesos":           "MXN",
	"peso":            "MXN",
	"peso mexicano":   "MXN",
	"pesos mexicanos": "MXN",
	"moneda nacional": "MXN",
	"usd":             "USD",
	"us$":             "USD",
	"dolar":           "USD",
	"dólar":           "USD",
	"dolares":         "USD",
	"dólares":         "USD",
	"eur":             "EUR",
	"euro":            "EUR",
	"euros":           "EUR",
}

// CanonicalCurrency maps common spellings to ISO 4217 codes. Unknown values report false.
func CanonicalCurrency(s string) (string, bool) {
	k := strings.ToLower(collapse(s))
	if k == "" {
		return "", false
	}
	if c, ok := currencySynonyms[k]; ok {
		return c, true
	}
	if len(k) == 3 && isASCIIAlpha(k) {
		return strings.ToUpper(k), true
	}
	return "", false
}

// CanonicalCharacter folds the procedure character to nacional,
// internacional or internacional_tratados. Other values are lower-cased.
func CanonicalCharacter(s string) string {
	k := strings.ToLower(collapse(s))
	switch {
	case k == "":
		return ""
	case strings.Contains(k, "tratado"):
		return "internacional_tratados"
	case strings.Contains(k, "internacional"):
		return "internacional"
	case strings.Contains(k, "nacional"):
		return "nacional"
	}
	return k
}

// collapse trims and folds runs of whitespace into one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isASCIIAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
