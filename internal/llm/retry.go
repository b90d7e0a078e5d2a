package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
)

// RetryConfig bounds how often a failed oracle call is repeated.
type RetryConfig struct {
	MaxAttempts int           // total attempts, >= 1
	Backoff     time.Duration // delay before the second attempt, doubled afterwards
}

type retrying struct {
	next   Oracle
	cfg    RetryConfig
	logger *slog.Logger
}

// WithRetry wraps o so that transient failures and malformed answers are
// retried up to cfg.MaxAttempts times in total.
func WithRetry(o Oracle, cfg RetryConfig, logger *slog.Logger) Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &retrying{next: o, cfg: cfg, logger: logger}
}

func (r *retrying) ExtractNotice(ctx context.Context, req NoticeRequest) (NoticeFields, []byte, error) {
	delay := r.cfg.Backoff
	var (
		fields NoticeFields
		raw    []byte
		err    error
	)
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		fields, raw, err = r.next.ExtractNotice(ctx, req)
		if err == nil || !shouldRetry(err) || attempt == r.cfg.MaxAttempts {
			return fields, raw, err
		}
		r.logger.Warn("llm.retry", "attempt", attempt, "max_attempts", r.cfg.MaxAttempts, "error", err, "backoff_ms", delay.Milliseconds())
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, raw, ctx.Err()
			case <-t.C:
			}
			delay *= 2
		}
	}
	return fields, raw, err
}

func shouldRetry(err error) bool {
	if errors.Is(err, common.ErrOracleDown) {
		return false
	}
	if errors.Is(err, common.ErrOracleResponse) {
		return true
	}
	return IsRetryable(err)
}
