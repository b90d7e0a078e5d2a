package llm

import (
	"context"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
)

// NoticeFields is the oracle answer: one entry per requested field, nil when absent.
type NoticeFields map[string]*string

// NoticeRequest asks the oracle to fill the fixed field set from one notice block.
type NoticeRequest struct {
	Text     string   // block text, already bounded by the caller
	Fields   []string // requested field names, in schema order
	Source   string
	RefTag   string
	Language string // defaults to "es"
}

// Oracle is the extraction oracle the field extractor depends on.
type Oracle interface {
	ExtractNotice(ctx context.Context, req NoticeRequest) (NoticeFields, []byte /*rawJSON*/, error)
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(ctx context.Context, req NoticeRequest) (NoticeFields, []byte, error)

func (f OracleFunc) ExtractNotice(ctx context.Context, req NoticeRequest) (NoticeFields, []byte, error) {
	return f(ctx, req)
}

// Unavailable is the oracle used when no provider is configured. Every call fails.
var Unavailable Oracle = OracleFunc(func(context.Context, NoticeRequest) (NoticeFields, []byte, error) {
	return nil, nil, common.NewAppError("ORACLE_UNAVAILABLE", "no extraction oracle configured", common.ErrOracleDown)
})
