package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/app"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/extract"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: extract-notice <notice.txt> [source] [min_required]")
		os.Exit(2)
	}
	text, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("read notice", "path", os.Args[1], "error", err)
		os.Exit(2)
	}
	source := "dof"
	if len(os.Args) >= 3 {
		source = os.Args[2]
	}

	if err := common.LoadDotEnv(); err != nil {
		logger.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()
	if len(os.Args) >= 4 {
		if n, err := strconv.Atoi(os.Args[3]); err == nil && n > 0 {
			cfg.Gazette.MinRequiredFields = n
		}
	}

	ctx := context.Background()
	oracle, closeOracle, err := app.NewOracle(ctx, cfg, logger)
	if err != nil {
		logger.Error("oracle init failed", "error", err)
		os.Exit(1)
	}
	if closeOracle != nil {
		defer func() { _ = closeOracle() }()
	}

	ex := extract.NewExtractor(extract.Config{
		MinRequiredFields: cfg.Gazette.MinRequiredFields,
		MaxOracleChars:    cfg.LLM.MaxChars,
	}, oracle, logger)

	start := time.Now()
	rec := ex.Extract(ctx, source, &entity.NoticeBlock{Index: 0, Pages: []int{1}, Text: string(text)})
	logger.Info("extract.notice.done",
		"provenance", rec.Provenance,
		"filled", rec.Filled(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		logger.Error("encode", "error", err)
		os.Exit(1)
	}
}
