package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/app"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/async"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/ingest"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/server"
)

func main() {
	if err := common.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()
	if cfg.Server.PollInterval <= 0 {
		cfg.Server.PollInterval = 15 * time.Minute
	}

	// Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{}, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := os.MkdirAll(cfg.Server.InboxDir, 0o755); err != nil {
		logger.Error("failed to create inbox", "dir", cfg.Server.InboxDir, "error", err)
		os.Exit(1)
	}
	u := ingest.NewUsecase(ingest.NewDirectory(cfg.Server.InboxDir, logger), a.Processor, cfg.Gazette.Workers, logger)

	// one run at a time; triggers arriving mid-run collapse into the next one
	runs := async.NewRunQueue(func(ctx context.Context, job async.Job) error {
		run, stats, err := u.IngestDirectory(common.WithRunID(ctx, job.TraceID), ingest.Window{})
		if err != nil {
			return err
		}
		logger.Info("ingest.run.done",
			"reason", job.Reason,
			"run_id", run.RunID,
			"units_ok", run.UnitsOK, "units_failed", run.UnitsBad,
			"inserted", run.Inserted, "skipped", run.Skipped, "failed", run.Failed,
			"unchanged", stats.Unchanged,
		)
		return nil
	}, logger, async.WithRunTimeout(cfg.Server.PollInterval*4), async.WithBaseContext(ctx))

	// Health service
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	hs := server.NewHealthServer(a.Store, server.HealthConfig{}, logger)
	go func() {
		if err := hs.Serve(ctx, lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:    []string{cfg.Server.InboxDir},
		Debounce: 2 * time.Second,
		Logger:   logger,
	})
	if err != nil {
		// polling still covers the inbox
		logger.Warn("watcher unavailable, polling only", "error", err)
	}

	_ = runs.Enqueue(ctx, async.Job{Reason: "startup"})
	tick := time.NewTicker(cfg.Server.PollInterval)
	defer tick.Stop()
	logger.Info("licitacionesd started", "inbox", cfg.Server.InboxDir, "poll_interval", cfg.Server.PollInterval.String())

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-tick.C:
			_ = runs.Enqueue(ctx, async.Job{Reason: "poll"})
		case p, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			_ = runs.Enqueue(ctx, async.Job{Reason: "watch", Path: p})
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.Warn("watcher error", "error", err)
		}
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	// returns once the worker is gone; the deferred a.Close runs after it
	runs.Shutdown(shutdownCtx)
	logger.Info("stopped.")
}
