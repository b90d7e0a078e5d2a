package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
	processor "github.com/joseph-ayodele/licitaciones-tracker/internal/pipeline"
)

// Window limits gazette issues by date; zero bounds are open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) contains(day time.Time) bool {
	if !w.From.IsZero() && day.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && day.After(w.To) {
		return false
	}
	return true
}

// Usecase feeds inbox files through the processor. Files already processed
// with the same modification time are skipped on later runs.
type Usecase struct {
	Dir       *Directory
	Processor *processor.Processor
	Workers   int
	logger    *slog.Logger

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewUsecase(dir *Directory, p *processor.Processor, workers int, logger *slog.Logger) *Usecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &Usecase{Dir: dir, Processor: p, Workers: workers, logger: logger, seen: map[string]time.Time{}}
}

// IngestDirectory scans the inbox and processes every new or changed file
// inside the window. The run report covers gazette issues and portal pages.
func (u *Usecase) IngestDirectory(ctx context.Context, w Window) (entity.RunReport, DirStats, error) {
	start := time.Now()
	files, stats, err := u.Dir.Scan(ctx)
	if err != nil {
		return entity.RunReport{}, stats, err
	}

	var (
		docs       []*entity.Document
		docFiles   []InboxFile
		portals    []InboxFile
		unreadable []entity.BatchReport
	)
	for _, f := range files {
		if u.unchanged(f) {
			stats.Unchanged++
			continue
		}
		switch f.Kind {
		case KindGazette:
			if !w.contains(f.IssueDate) {
				continue
			}
			doc, err := ReadDocument(f)
			if err != nil {
				stats.Failed++
				unreadable = append(unreadable, failedUnit(f, err))
				continue
			}
			docs = append(docs, doc)
			docFiles = append(docFiles, f)
		case KindPortal:
			portals = append(portals, f)
		}
	}

	run := u.Processor.ProcessDocuments(ctx, docs, u.Workers)
	for i, rep := range run.Units {
		u.settle(docFiles[i], rep, &stats)
	}
	for _, rep := range unreadable {
		run.Add(rep)
	}

	for _, f := range portals {
		if ctx.Err() != nil {
			break
		}
		recs, err := ReadPortalPage(f.Path)
		if err != nil {
			stats.Failed++
			run.Add(failedUnit(f, err))
			continue
		}
		rep, err := u.Processor.ProcessPortalPage(common.WithUnit(ctx, f.Unit()), string(f.Source), recs)
		if err != nil {
			u.logger.Warn("ingest.portal.rejected", "path", f.Path, "error", err)
		}
		run.Add(rep)
		u.settle(f, rep, &stats)
	}

	u.logger.Info("ingest.directory.done",
		"root", u.Dir.Root,
		"scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "unchanged", stats.Unchanged, "failed", stats.Failed,
		"inserted", run.Inserted, "skipped", run.Skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return run, stats, nil
}

// settle marks a file as seen unless its unit failed outright.
func (u *Usecase) settle(f InboxFile, rep entity.BatchReport, stats *DirStats) {
	if rep.Status == string(constants.UnitFailed) {
		stats.Failed++
		return
	}
	stats.Succeeded++
	u.mu.Lock()
	u.seen[f.Path] = f.ModTime
	u.mu.Unlock()
}

func (u *Usecase) unchanged(f InboxFile) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	t, ok := u.seen[f.Path]
	return ok && t.Equal(f.ModTime)
}

func failedUnit(f InboxFile, err error) entity.BatchReport {
	return entity.BatchReport{
		Unit:   f.Unit(),
		Source: string(f.Source),
		Status: string(constants.UnitFailed),
		Errors: []string{err.Error()},
	}
}
