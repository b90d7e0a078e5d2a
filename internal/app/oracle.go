package app

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/llm"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/llm/vertex"
)

// NewOracle builds the configured extraction oracle wrapped as
// cache → retry → pacing → provider. Provider "none" returns a nil oracle,
// which leaves the extractor on the rule tier. The returned close func may be nil.
func NewOracle(ctx context.Context, cfg *common.Config, logger *slog.Logger) (llm.Oracle, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		base    llm.Oracle
		model   string
		closers []func() error
		cached  bool
	)
	switch cfg.LLM.Provider {
	case "", "none":
		logger.Warn("llm.oracle.disabled", "reason", "LLM_PROVIDER=none")
		return nil, nil, nil
	case "openai":
		if cfg.LLM.APIKey == "" {
			logger.Warn("llm.oracle.disabled", "reason", "OpenAI API key not configured")
			return nil, nil, nil
		}
		c := openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			Lenient:     cfg.LLM.Lenient,
		}, logger)
		base, model = c, c.Model()
	case "vertex":
		c, err := vertex.NewClient(ctx, vertex.Config{
			ProjectID:   cfg.Vertex.ProjectID,
			Region:      cfg.Vertex.Region,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Lenient:     cfg.LLM.Lenient,
		}, logger)
		if err != nil {
			return nil, nil, common.NewAppError("ORACLE_INIT", "vertex client", err)
		}
		base, model = c, c.Model()
		closers = append(closers, c.Close)
	default:
		return nil, nil, common.NewAppError("CONFIG_ERROR", "unknown LLM_PROVIDER "+cfg.LLM.Provider, common.ErrInvalidInput)
	}

	o := llm.NewPaced(base, cfg.LLM.MinDelay)
	o = llm.WithRetry(o, llm.RetryConfig{MaxAttempts: cfg.LLM.MaxAttempts, Backoff: cfg.LLM.MinDelay}, logger)

	if cfg.Redis.Addr != "" {
		rc, err := llm.NewRedisCache(ctx, llm.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			// the cache is optional; run uncached
			logger.Warn("llm.cache.unavailable", "addr", cfg.Redis.Addr, "error", err)
		} else {
			o = llm.NewCachedOracle(o, rc, model, cfg.Redis.TTL, logger)
			closers = append(closers, rc.Close)
			cached = true
		}
	}

	logger.Info("llm.oracle.ready", "provider", cfg.LLM.Provider, "model", model, "cached", cached)
	return o, func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}, nil
}
