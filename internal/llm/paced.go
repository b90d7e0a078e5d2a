package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

type paced struct {
	next    Oracle
	limiter *rate.Limiter
}

// NewPaced spaces calls to o at least minDelay apart across all callers
// sharing the returned oracle. A non-positive minDelay disables pacing.
func NewPaced(o Oracle, minDelay time.Duration) Oracle {
	if minDelay <= 0 {
		return o
	}
	return &paced{next: o, limiter: rate.NewLimiter(rate.Every(minDelay), 1)}
}

func (p *paced) ExtractNotice(ctx context.Context, req NoticeRequest) (NoticeFields, []byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	return p.next.ExtractNotice(ctx, req)
}
