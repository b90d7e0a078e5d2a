package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/app"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/export"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/ingest"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		inbox     = flag.String("inbox", "", "inbox directory with gazette .txt and portal .json files (required)")
		source    = flag.String("source", "", "gazette source; walks every issue in -from..-to instead of scanning the inbox")
		editions  = flag.String("editions", "matutina,vespertina", "comma-separated editions for -source")
		fromStr   = flag.String("from", "", "from date YYYY-MM-DD")
		toStr     = flag.String("to", "", "to date YYYY-MM-DD")
		workers   = flag.Int("workers", 0, "parallel documents (default GAZETTE_WORKERS)")
		inmem     = flag.Bool("inmem", false, "use in-memory SQLite database")
		artifacts = flag.String("artifacts", "", "directory for per-document JSON artifacts (default ARTIFACT_DIR)")
		xlsx      = flag.String("xlsx", "", "write stored records in -from..-to to this XLSX file")
	)
	flag.Parse()

	if *inbox == "" {
		printError("Error: --inbox is required\n")
		os.Exit(1)
	}
	from, err := parseDay(*fromStr)
	if err != nil {
		printError("Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}
	to, err := parseDay(*toStr)
	if err != nil {
		printError("Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}
	if *source != "" && (from.IsZero() || to.IsZero()) {
		printError("Error: --source needs both --from and --to\n")
		os.Exit(1)
	}

	if err := common.LoadDotEnv(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.InMemory = true
	}
	if *workers > 0 {
		cfg.Gazette.Workers = *workers
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{InMemory: *inmem, ArtifactDir: *artifacts}, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	dir := ingest.NewDirectory(*inbox, logger)

	var run entity.RunReport
	if *source != "" {
		logger.Info("starting date range", "source", *source, "from", *fromStr, "to", *toStr)
		run, err = a.Processor.ProcessDateRange(ctx, *source, from, to, splitList(*editions), dir, cfg.Gazette.Workers)
		if err != nil {
			logger.Error("date range failed", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("starting ingestion", "inbox", *inbox)
		u := ingest.NewUsecase(dir, a.Processor, cfg.Gazette.Workers, logger)
		var stats ingest.DirStats
		run, stats, err = u.IngestDirectory(ctx, ingest.Window{From: from, To: to})
		if err != nil {
			logger.Error("failed to ingest directory", "error", err)
			os.Exit(1)
		}
		logger.Info("ingestion complete",
			"scanned", stats.Scanned,
			"matched", stats.Matched,
			"succeeded", stats.Succeeded,
			"failed", stats.Failed)
	}

	if *xlsx != "" {
		logger.Info("exporting to XLSX", "output", *xlsx)
		b, err := export.NewService(a.Repo, logger).ExportXLSX(ctx, repository.ListFilter{
			Source: *source,
			From:   *fromStr,
			To:     *toStr,
		})
		if err != nil {
			logger.Error("failed to export licitaciones", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsx, b, 0o644); err != nil {
			logger.Error("failed to write output file", "error", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		logger.Error("failed to print report", "error", err)
		os.Exit(1)
	}
	if run.UnitsBad > 0 {
		os.Exit(3)
	}
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
