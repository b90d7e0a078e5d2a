package llm

// BuildNoticeJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Every field is a nullable string and every field is required, so the model
// must answer each key explicitly.
func BuildNoticeJSONSchema(fields []string) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		props[f] = nullableString()
		required = append(required, f)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}
