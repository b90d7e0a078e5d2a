package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Strategy is one way of finding a field value in notice text.
type Strategy struct {
	Name string
	Find func(text string) (string, bool)
}

// FirstOf runs the chain in order and returns the first non-empty value.
// A strategy that panics counts as a miss.
func FirstOf(text string, chain []Strategy) (value, name string, ok bool) {
	for _, s := range chain {
		if v, hit := run(s, text); hit {
			return v, s.Name, true
		}
	}
	return "", "", false
}

func run(s Strategy, text string) (v string, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = "", false
		}
	}()
	if s.Find == nil {
		return "", false
	}
	v, ok = s.Find(text)
	v = cleanValue(v)
	return v, ok && v != ""
}

// Pattern returns the first capture group of re, or the whole match when re
// has no groups.
func Pattern(name string, re *regexp.Regexp) Strategy {
	return Strategy{Name: name, Find: func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		if len(m) > 1 {
			for _, g := range m[1:] {
				if strings.TrimSpace(g) != "" {
					return g, true
				}
			}
			return "", false
		}
		return m[0], true
	}}
}

// KeywordRule maps a pattern to a fixed value.
type KeywordRule struct {
	Pattern *regexp.Regexp
	Value   string
}

// Keywords returns the value of the first rule whose pattern occurs in the text.
func Keywords(name string, rules ...KeywordRule) Strategy {
	return Strategy{Name: name, Find: func(text string) (string, bool) {
		for _, r := range rules {
			if r.Pattern.MatchString(text) {
				return r.Value, true
			}
		}
		return "", false
	}}
}

// UpperLine returns the nth (1-based) line written entirely in upper case,
// skipping lines that match any of skip.
func UpperLine(name string, nth int, skip ...*regexp.Regexp) Strategy {
	return Strategy{Name: name, Find: func(text string) (string, bool) {
		seen := 0
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if !isUpperLine(line) || matchesAny(line, skip) {
				continue
			}
			seen++
			if seen == nth {
				return line, true
			}
		}
		return "", false
	}}
}

func isUpperLine(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 4
}

func matchesAny(s string, res []*regexp.Regexp) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// cleanValue collapses whitespace and trims separators left by labels.
func cleanValue(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	return strings.Trim(v, " :;,.-–")
}
