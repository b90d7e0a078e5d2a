package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/artifact"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/extract"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/gazette"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/identity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/normalize"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/repository"
)

// DocumentLoader fetches one gazette issue. It returns common.ErrNotPublished
// when no issue exists for that date and edition.
type DocumentLoader interface {
	Load(ctx context.Context, source string, date time.Time, edition string) (*entity.Document, error)
}

// Deps are the collaborators of a Processor. Locator, Splitter and Sink get
// defaults when nil.
type Deps struct {
	Locator    *gazette.Locator
	Splitter   *gazette.Splitter
	Extractor  *extract.Extractor
	Normalizer *normalize.Normalizer
	Repo       repository.LicitacionRepository
	Sink       artifact.Sink
}

// Processor runs page index → locator → splitter → extractor → normalizer →
// store for gazette documents, and normalizer → store for portal pages.
type Processor struct {
	Logger     *slog.Logger
	locator    *gazette.Locator
	splitter   *gazette.Splitter
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	repo       repository.LicitacionRepository
	sink       artifact.Sink
}

func NewProcessor(logger *slog.Logger, d Deps) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if d.Extractor == nil || d.Normalizer == nil || d.Repo == nil {
		return nil, common.NewAppError("PIPELINE_CONFIG", "extractor, normalizer and repository are required", common.ErrInvalidInput)
	}
	if d.Locator == nil {
		d.Locator = gazette.NewLocator(gazette.LocatorConfig{}, logger)
	}
	if d.Splitter == nil {
		d.Splitter = gazette.NewSplitter(gazette.SplitterConfig{})
	}
	if d.Sink == nil {
		d.Sink = artifact.Discard{}
	}
	return &Processor{
		Logger:     logger,
		locator:    d.Locator,
		splitter:   d.Splitter,
		extractor:  d.Extractor,
		normalizer: d.Normalizer,
		repo:       d.Repo,
		sink:       d.Sink,
	}, nil
}

// ProcessDocument runs the gazette chain for one issue. The report is always
// returned; the error is non-nil only when there is no document text at all.
func (p *Processor) ProcessDocument(ctx context.Context, doc *entity.Document) (entity.BatchReport, *entity.DocumentArtifact, error) {
	start := time.Now()
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		rep := entity.BatchReport{Status: string(constants.UnitFailed), Errors: []string{common.ErrNoInput.Error()}}
		if doc != nil {
			rep.Unit, rep.Source = doc.Key(), doc.Source
		}
		return rep, nil, common.ErrNoInput
	}
	rep := entity.BatchReport{Unit: doc.Key(), Source: doc.Source}
	log := p.Logger.With("unit", rep.Unit, "run_id", common.RunIDFromContext(ctx))

	idx := gazette.BuildPageIndex(doc.Text)
	rng := p.locator.Locate(idx)
	section := entity.SectionInfo{Start: rng.Start, End: rng.End, Method: string(rng.Method), Degraded: rng.Degraded}
	rep.Section = &section
	if rng.Degraded {
		rep.Errors = append(rep.Errors, "section not found, processed whole document")
	}

	blocks := p.splitter.Split(idx, rng)
	rep.Blocks = len(blocks)
	log.Info("pipeline.document.split",
		"pages", idx.Len(), "malformed_markers", idx.Malformed(),
		"section_start", rng.Start, "section_end", rng.End, "method", rng.Method,
		"blocks", len(blocks),
	)

	var (
		recs     []*entity.Licitacion
		prestats entity.InsertStats
	)
	for i := range blocks {
		if err := ctx.Err(); err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("cancelled before block %d: %v", i, err))
			break
		}
		cand := p.extractor.Extract(ctx, doc.Source, &blocks[i])
		if cand.Provenance == string(constants.ProvenanceOracle) {
			rep.OracleAssisted++
		}
		rec, err := p.normalizer.NormalizeCandidate(doc, cand)
		if err != nil {
			prestats.Attempted++
			prestats.Failed++
			prestats.Errors = append(prestats.Errors, entity.RecordError{Index: i, Error: err.Error()})
			log.Warn("pipeline.normalize.failed", "block", i, "error", err)
			continue
		}
		identity.Assign(rec)
		recs = append(recs, rec)
	}

	rep.ApplyStats(prestats)
	rep.ApplyStats(p.persist(ctx, recs, log))

	art := &entity.DocumentArtifact{
		Source:    doc.Source,
		IssueDate: doc.IssueDate.Format("2006-01-02"),
		Edition:   doc.Edition,
		URL:       doc.URL,
		Section:   section,
		Records:   recs,
	}
	if loc, err := p.sink.Put(ctx, art); err != nil {
		log.Warn("pipeline.artifact.failed", "error", err)
		rep.Errors = append(rep.Errors, "artifact: "+err.Error())
	} else if loc != "" {
		log.Debug("pipeline.artifact.ok", "location", loc)
	}

	rep.Status = string(unitStatus(rep))
	rep.ElapsedMS = time.Since(start).Milliseconds()
	log.Info("pipeline.document.done",
		"status", rep.Status,
		"attempted", rep.Attempted, "inserted", rep.Inserted,
		"skipped", rep.Skipped, "failed", rep.Failed,
		"oracle_assisted", rep.OracleAssisted,
		"elapsed_ms", rep.ElapsedMS,
	)
	return rep, art, nil
}

// ProcessPortalPage normalizes and stores one page of native portal records.
func (p *Processor) ProcessPortalPage(ctx context.Context, source string, records []map[string]any) (entity.BatchReport, error) {
	start := time.Now()
	unit := common.UnitFromContext(ctx)
	if unit == "" {
		unit = source
	}
	rep := entity.BatchReport{Unit: unit, Source: source}
	if len(records) == 0 {
		rep.Status = string(constants.UnitFailed)
		rep.Errors = []string{common.ErrNoInput.Error()}
		return rep, common.ErrNoInput
	}
	log := p.Logger.With("unit", unit, "run_id", common.RunIDFromContext(ctx))

	var (
		recs     []*entity.Licitacion
		prestats entity.InsertStats
	)
	for i, native := range records {
		if err := ctx.Err(); err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("cancelled before record %d: %v", i, err))
			break
		}
		rec, err := p.normalizer.NormalizeRecord(source, native)
		if err != nil {
			prestats.Attempted++
			prestats.Failed++
			prestats.Errors = append(prestats.Errors, entity.RecordError{Index: i, Error: err.Error()})
			continue
		}
		identity.Assign(rec)
		recs = append(recs, rec)
	}
	rep.ApplyStats(prestats)
	rep.ApplyStats(p.persist(ctx, recs, log))

	rep.Status = string(unitStatus(rep))
	rep.ElapsedMS = time.Since(start).Milliseconds()
	log.Info("pipeline.portal.done",
		"status", rep.Status, "records", len(records),
		"attempted", rep.Attempted, "inserted", rep.Inserted,
		"skipped", rep.Skipped, "failed", rep.Failed,
		"elapsed_ms", rep.ElapsedMS,
	)
	return rep, nil
}

// persist stores recs and folds the side channel of duplicates into the stored rows.
func (p *Processor) persist(ctx context.Context, recs []*entity.Licitacion, log *slog.Logger) entity.InsertStats {
	if len(recs) == 0 {
		return entity.InsertStats{}
	}
	st := p.repo.InsertBatch(ctx, recs)
	for _, i := range st.Duplicates {
		rec := recs[i]
		if err := p.repo.MergeExtra(ctx, rec.Source, rec.ContentHash, rec.Extra); err != nil {
			log.Warn("pipeline.extra.merge_failed", "content_hash", rec.ContentHash, "error", err)
		}
	}
	return st
}

// ProcessDocuments processes docs with at most workers in flight. Each
// document runs start to finish on one goroutine; unit order follows docs.
func (p *Processor) ProcessDocuments(ctx context.Context, docs []*entity.Document, workers int) entity.RunReport {
	run := newRunReport(ctx)
	units := make([]entity.BatchReport, len(docs))
	p.runDocuments(ctx, docs, workers, units)
	for _, u := range units {
		run.Add(u)
	}
	return run
}

func (p *Processor) runDocuments(ctx context.Context, docs []*entity.Document, workers int, into []entity.BatchReport) {
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			rep, _, err := p.ProcessDocument(ctx, doc)
			if err != nil {
				p.Logger.Warn("pipeline.document.rejected", "index", i, "error", err)
			}
			into[i] = rep
			return nil
		})
	}
	_ = g.Wait()
}

// ProcessDateRange loads and processes every (day, edition) pair in
// [from, to]. Unpublished issues are counted as missing, load errors as failed units.
func (p *Processor) ProcessDateRange(ctx context.Context, source string, from, to time.Time, editions []string, loader DocumentLoader, workers int) (entity.RunReport, error) {
	run := newRunReport(ctx)
	from, to = truncateDay(from), truncateDay(to)
	if to.Before(from) {
		return run, common.NewAppError("INVALID_RANGE", fmt.Sprintf("to %s is before from %s", to.Format("2006-01-02"), from.Format("2006-01-02")), common.ErrInvalidInput)
	}
	if loader == nil {
		return run, common.NewAppError("PIPELINE_CONFIG", "nil document loader", common.ErrInvalidInput)
	}
	if len(editions) == 0 {
		editions = []string{string(constants.EditionMatutina)}
	}

	var (
		units []entity.BatchReport
		docs  []*entity.Document
		slots []int
	)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			break
		}
		for _, ed := range editions {
			key := source + ":" + day.Format("2006-01-02") + ":" + ed
			doc, err := loader.Load(ctx, source, day, ed)
			switch {
			case errors.Is(err, common.ErrNotPublished):
				units = append(units, entity.BatchReport{Unit: key, Source: source, Status: string(constants.UnitMissing)})
			case err != nil:
				p.Logger.Warn("pipeline.load.failed", "unit", key, "error", err)
				units = append(units, entity.BatchReport{Unit: key, Source: source, Status: string(constants.UnitFailed), Errors: []string{err.Error()}})
			default:
				slots = append(slots, len(units))
				units = append(units, entity.BatchReport{})
				docs = append(docs, doc)
			}
		}
	}

	done := make([]entity.BatchReport, len(docs))
	p.runDocuments(ctx, docs, workers, done)
	for i, slot := range slots {
		units[slot] = done[i]
	}
	for _, u := range units {
		run.Add(u)
	}
	p.Logger.Info("pipeline.range.done",
		"source", source, "from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"),
		"units", len(run.Units), "missing", run.Missing,
		"inserted", run.Inserted, "skipped", run.Skipped, "failed", run.Failed,
	)
	return run, nil
}

func newRunReport(ctx context.Context) entity.RunReport {
	id := common.RunIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	return entity.RunReport{RunID: id}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// unitStatus is OK when nothing failed, PARTIAL when some records were
// stored or skipped despite failures, FAILED otherwise.
func unitStatus(r entity.BatchReport) constants.UnitStatus {
	switch {
	case r.Failed == 0:
		return constants.UnitOK
	case r.Inserted+r.Skipped > 0:
		return constants.UnitPartial
	default:
		return constants.UnitFailed
	}
}
