package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
)

// placeholders a model uses instead of null
var nullish = map[string]struct{}{
	"":          {},
	"null":      {},
	"none":      {},
	"n/a":       {},
	"na":        {},
	"no aplica": {},
	"-":         {},
}

// NormalizeAndSanitizeJSON
// - Strips markdown code fences around the object
// - Coerces numbers and booleans to strings
// - Turns blank / "null"-like strings and nested values into null
// - Removes unknown keys and adds missing ones as null
func NormalizeAndSanitizeJSON(raw []byte, fields []string, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(StripCodeFences(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}

	changed := make([]string, 0, 8)
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}

	for _, k := range fields {
		v, ok := m[k]
		if !ok {
			m[k] = nil
			changed = append(changed, k+"(missing)")
			continue
		}
		switch t := v.(type) {
		case nil:
		case string:
			s := strings.TrimSpace(t)
			if _, isNull := nullish[strings.ToLower(s)]; isNull {
				m[k] = nil
				changed = append(changed, k+"(empty)")
			} else if s != t {
				m[k] = s
			}
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
			changed = append(changed, k+"(number)")
		case bool:
			m[k] = strconv.FormatBool(t)
			changed = append(changed, k+"(bool)")
		default:
			// objects and arrays have no string form we can trust
			m[k] = nil
			changed = append(changed, k+"(type)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "changed", changed)
	}
	return out, changed, nil
}
