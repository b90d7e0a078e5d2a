package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
)

// StripCodeFences removes a surrounding ```json ... ``` fence, if any.
func StripCodeFences(raw []byte) []byte {
	b := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	b = bytes.TrimPrefix(b, []byte("```"))
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 && !bytes.ContainsAny(b[:nl], "{[") {
		b = b[nl+1:]
	} else {
		b = bytes.TrimPrefix(b, []byte("json"))
	}
	b = bytes.TrimSuffix(bytes.TrimSpace(b), []byte("```"))
	return bytes.TrimSpace(b)
}

// DecodeNoticeResponse validates a model answer against the notice schema.
// When lenient is set, one sanitize pass is tried before giving up. The
// returned bytes are the JSON that finally validated.
func DecodeNoticeResponse(content []byte, fields []string, lenient bool, logger *slog.Logger) (NoticeFields, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schema := BuildNoticeJSONSchema(fields)

	doc := content
	if err := ValidateJSONAgainstSchema(schema, doc); err != nil {
		if !lenient {
			logger.Error("llm.extract.schema_validation_failed", "error", err, "content", string(content))
			return nil, content, fmt.Errorf("%w: %v", common.ErrOracleResponse, err)
		}
		cleaned, changed, sErr := NormalizeAndSanitizeJSON(content, fields, logger)
		if sErr != nil {
			logger.Error("llm.extract.sanitize_failed", "error", sErr)
			return nil, content, fmt.Errorf("%w: %v", common.ErrOracleResponse, sErr)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			logger.Error("llm.extract.schema_validation_failed", "error", vErr, "content", string(cleaned))
			return nil, cleaned, fmt.Errorf("%w: %v", common.ErrOracleResponse, vErr)
		}
		logger.Warn("llm.extract.lenient_sanitize_applied", "changed", changed)
		doc = cleaned
	}

	var out NoticeFields
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, doc, fmt.Errorf("%w: unmarshal fields: %v", common.ErrOracleResponse, err)
	}
	return out, doc, nil
}
