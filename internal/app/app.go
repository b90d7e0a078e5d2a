// Package app wires configuration into a ready processor: store, oracle,
// extractor, normalizer and artifact sink.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/artifact"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/extract"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/gazette"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/normalize"
	processor "github.com/joseph-ayodele/licitaciones-tracker/internal/pipeline"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/repository"
)

// App holds the long-lived components of one process.
type App struct {
	Config    *common.Config
	Store     *repository.Store
	Repo      repository.LicitacionRepository
	Extractor *extract.Extractor
	Processor *processor.Processor

	closers []func() error
	logger  *slog.Logger
}

// Options override parts of the loaded configuration.
type Options struct {
	InMemory    bool   // force the in-memory SQLite store
	ArtifactDir string // overrides Artifacts.Dir when set
}

// Build opens the store and assembles the processor. Close releases everything.
func Build(ctx context.Context, cfg *common.Config, opts Options, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	a := &App{Config: cfg, logger: logger}

	dbCfg := repository.ConfigFrom(cfg.Database)
	if opts.InMemory {
		dbCfg.InMemory = true
	}
	st, err := repository.Open(ctx, dbCfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = st
	a.closers = append(a.closers, func() error { st.Close(); return nil })
	a.Repo = repository.NewLicitacionRepository(st, logger)

	oracle, closeOracle, err := NewOracle(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeOracle != nil {
		a.closers = append(a.closers, closeOracle)
	}

	tables, err := normalize.LoadTables(cfg.MappingsDir)
	if err != nil {
		a.Close()
		return nil, err
	}
	norm, err := normalize.New(tables, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	sink, err := NewSink(ctx, cfg.Artifacts, opts.ArtifactDir, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Extractor = extract.NewExtractor(extract.Config{
		MinRequiredFields: cfg.Gazette.MinRequiredFields,
		MaxOracleChars:    cfg.LLM.MaxChars,
	}, oracle, logger)

	a.Processor, err = processor.NewProcessor(logger, processor.Deps{
		Locator:    gazette.NewLocator(gazette.LocatorConfig{IndexScanPages: cfg.Gazette.IndexScanPages}, logger),
		Splitter:   gazette.NewSplitter(gazette.SplitterConfig{MinBlockChars: cfg.Gazette.MinBlockChars}),
		Extractor:  a.Extractor,
		Normalizer: norm,
		Repo:       a.Repo,
		Sink:       sink,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("app.build.ok",
		"dialect", st.Dialect(),
		"oracle", cfg.LLM.Provider,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("app.close.failed", "error", err)
	}
}

// NewSink picks S3 when a bucket is configured, else the local directory.
// An empty directory and no bucket discards artifacts.
func NewSink(ctx context.Context, cfg common.ArtifactConfig, dirOverride string, logger *slog.Logger) (artifact.Sink, error) {
	if cfg.S3Bucket != "" {
		return artifact.NewS3Sink(ctx, artifact.S3Config{
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
			Region: cfg.S3Region,
		}, logger)
	}
	dir := cfg.Dir
	if dirOverride != "" {
		dir = dirOverride
	}
	if dir == "" {
		return artifact.Discard{}, nil
	}
	return artifact.NewFSSink(dir, logger), nil
}
