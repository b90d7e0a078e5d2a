package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/artifact"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/extract"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/normalize"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/repository"
)

const (
	noticeOne = "SECRETARIA DE SALUD\nLICITACION PUBLICA NACIONAL LA-012M7B997-E15-2025\nObjeto de la Licitacion: Adquisicion de material de curacion\n(R.- 123456)"
	noticeTwo = "COMISION FEDERAL DE ELECTRICIDAD\nLICITACION PUBLICA INTERNACIONAL LO-018TOQ054-E80-2025\nObjeto de la Licitacion: Mantenimiento de subestaciones\n(R.- 123457)"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func pages(bodies ...string) string {
	var b strings.Builder
	for i, body := range bodies {
		fmt.Fprintf(&b, "[PAGE %d]\n%s\n", i+1, body)
	}
	return b.String()
}

func twoPageDoc(day time.Time) *entity.Document {
	return &entity.Document{
		Source:    "dof",
		IssueDate: day,
		Edition:   "matutina",
		Text:      pages("tender notices ........ 2\nother notices ........ (none)", noticeOne+"\n"+noticeTwo),
	}
}

func newTestProcessor(t *testing.T, sink artifact.Sink) (*Processor, repository.LicitacionRepository) {
	t.Helper()
	st, err := repository.Open(context.Background(), repository.Config{InMemory: true}, discard())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)
	repo := repository.NewLicitacionRepository(st, discard())
	norm, err := normalize.New(nil, discard())
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}
	p, err := NewProcessor(discard(), Deps{
		Extractor:  extract.NewExtractor(extract.Config{}, nil, discard()),
		Normalizer: norm,
		Repo:       repo,
		Sink:       sink,
	})
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return p, repo
}

func TestProcessDocumentTwoPageScenario(t *testing.T) {
	dir := t.TempDir()
	p, repo := newTestProcessor(t, artifact.NewFSSink(dir, discard()))
	ctx := context.Background()
	day := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)

	rep, art, err := p.ProcessDocument(ctx, twoPageDoc(day))
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	if rep.Attempted != 2 || rep.Inserted != 2 || rep.Skipped != 0 || rep.Failed != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Status != string(constants.UnitOK) || rep.Blocks != 2 {
		t.Fatalf("status=%s blocks=%d", rep.Status, rep.Blocks)
	}
	if rep.Section == nil || rep.Section.Method != string(constants.LocateIndex) || rep.Section.Start != 2 {
		t.Fatalf("section = %+v", rep.Section)
	}
	if len(art.Records) != 2 || art.Records[0].ContentHash == art.Records[1].ContentHash {
		t.Fatalf("records must have distinct identities")
	}
	if _, err := os.Stat(filepath.Join(dir, "dof", "2025-08-14_matutina.json")); err != nil {
		t.Fatalf("artifact not written: %v", err)
	}

	again, _, err := p.ProcessDocument(ctx, twoPageDoc(day))
	if err != nil {
		t.Fatal(err)
	}
	if again.Attempted != 2 || again.Inserted != 0 || again.Skipped != 2 || again.Status != string(constants.UnitOK) {
		t.Fatalf("rerun report = %+v", again)
	}
	if n, _ := repo.Count(ctx, "dof"); n != 2 {
		t.Fatalf("stored = %d, want 2", n)
	}
}

func TestProcessDocumentNoticesWithoutProcedureNumber(t *testing.T) {
	p, repo := newTestProcessor(t, nil)
	ctx := context.Background()
	marina := "SECRETARIA DE MARINA\nAVISO DE LICITACION PUBLICA\nSe invita a los interesados a consultar las bases en la oficina de adquisiciones.\n(R.- 500001)\n" +
		"SECRETARIA DE MARINA\nAVISO DE LICITACION PUBLICA\nSe invita a los interesados a consultar las bases en el portal de compras del gobierno.\n(R.- 500002)"
	doc := func() *entity.Document {
		return &entity.Document{
			Source:    "dof",
			IssueDate: time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC),
			Edition:   "matutina",
			Text:      pages("tender notices ........ 2\nother notices ........ (none)", marina),
		}
	}

	rep, art, err := p.ProcessDocument(ctx, doc())
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	if rep.Blocks != 2 || rep.Inserted != 2 || rep.Skipped != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if len(art.Records) != 2 || art.Records[0].ContentHash == art.Records[1].ContentHash {
		t.Fatalf("same-agency notices without a procedure number collapsed into one identity")
	}
	for _, r := range art.Records {
		if r.ProcedureNumber != nil {
			t.Fatalf("unexpected procedure number %q", *r.ProcedureNumber)
		}
		if r.Extra[constants.ExtraPublishedOnSource] != constants.PublishedFromIssue {
			t.Fatalf("issue date substitution not recorded: %v", r.Extra)
		}
	}
	if n, _ := repo.Count(ctx, "dof"); n != 2 {
		t.Fatalf("stored = %d, want 2", n)
	}

	again, _, err := p.ProcessDocument(ctx, doc())
	if err != nil {
		t.Fatal(err)
	}
	if again.Inserted != 0 || again.Skipped != 2 {
		t.Fatalf("rerun report = %+v", again)
	}
}

func TestProcessDocumentWithoutInput(t *testing.T) {
	p, _ := newTestProcessor(t, nil)
	rep, _, err := p.ProcessDocument(context.Background(), &entity.Document{Source: "dof"})
	if !errors.Is(err, common.ErrNoInput) {
		t.Fatalf("err = %v", err)
	}
	if rep.Status != string(constants.UnitFailed) {
		t.Fatalf("status = %s", rep.Status)
	}
	if _, _, err := p.ProcessDocument(context.Background(), nil); !errors.Is(err, common.ErrNoInput) {
		t.Fatalf("nil doc err = %v", err)
	}
}

func TestProcessDocumentDegradedSection(t *testing.T) {
	p, _ := newTestProcessor(t, nil)
	doc := &entity.Document{
		Source:    "dof",
		IssueDate: time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
		Edition:   "matutina",
		Text:      pages("sin indice", noticeOne),
	}
	rep, _, err := p.ProcessDocument(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Section == nil || !rep.Section.Degraded || rep.Inserted != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestProcessPortalPage(t *testing.T) {
	p, repo := newTestProcessor(t, nil)
	ctx := common.WithUnit(context.Background(), "comprasmx:page-1")
	records := []map[string]any{
		{"numero_procedimiento": "LA-1", "dependencia": map[string]any{"nombre": "IMSS"}, "importe_estimado": 10.5},
		{"numero_procedimiento": "LA-2", "dependencia": map[string]any{"nombre": "IMSS"}},
		{"numero_procedimiento": "LA-1", "dependencia": map[string]any{"nombre": "IMSS"}, "nota": "segunda vista"},
	}
	rep, err := p.ProcessPortalPage(ctx, "comprasmx", records)
	if err != nil {
		t.Fatalf("ProcessPortalPage: %v", err)
	}
	if rep.Unit != "comprasmx:page-1" || rep.Attempted != 3 || rep.Inserted != 2 || rep.Skipped != 1 {
		t.Fatalf("report = %+v", rep)
	}

	// the duplicate contributes its extra keys to the stored row
	recs, err := repo.List(ctx, repository.ListFilter{Source: "comprasmx"})
	if err != nil {
		t.Fatal(err)
	}
	var merged bool
	for _, r := range recs {
		if entity.StrOrEmpty(r.ProcedureNumber) == "LA-1" && r.Extra["nota"] == "segunda vista" {
			merged = true
		}
	}
	if !merged {
		t.Fatalf("extra of duplicate not merged")
	}

	if _, err := p.ProcessPortalPage(ctx, "comprasmx", nil); !errors.Is(err, common.ErrNoInput) {
		t.Fatalf("empty page err = %v", err)
	}
}

func TestProcessPortalPageUnknownSourceFails(t *testing.T) {
	p, _ := newTestProcessor(t, nil)
	rep, err := p.ProcessPortalPage(context.Background(), "otro", []map[string]any{{"a": 1}})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Failed != 1 || rep.Status != string(constants.UnitFailed) || len(rep.Errors) != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

type fakeLoader struct{ missing map[string]bool }

func (f fakeLoader) Load(_ context.Context, source string, day time.Time, edition string) (*entity.Document, error) {
	key := day.Format("2006-01-02") + ":" + edition
	if f.missing[key] {
		return nil, common.ErrNotPublished
	}
	if edition == "vespertina" {
		return nil, errors.New("download failed")
	}
	return twoPageDoc(day), nil
}

func TestProcessDateRange(t *testing.T) {
	p, _ := newTestProcessor(t, nil)
	from := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 2)
	loader := fakeLoader{missing: map[string]bool{"2025-08-15:matutina": true}}

	run, err := p.ProcessDateRange(context.Background(), "dof", from, to, []string{"matutina", "vespertina"}, loader, 2)
	if err != nil {
		t.Fatalf("ProcessDateRange: %v", err)
	}
	if len(run.Units) != 6 || run.Missing != 1 || run.UnitsBad != 3 || run.UnitsOK != 2 {
		t.Fatalf("run = %+v", run)
	}
	// the same notices appear on both days, so the second day only skips
	if run.Inserted != 2 || run.Skipped != 2 || run.Failed != 0 {
		t.Fatalf("totals = %+v", run)
	}
	if run.Units[0].Unit != "dof:2025-08-14:matutina" || run.Units[2].Status != string(constants.UnitMissing) {
		t.Fatalf("unit order = %+v", run.Units)
	}
	if run.RunID == "" {
		t.Fatalf("missing run id")
	}

	if _, err := p.ProcessDateRange(context.Background(), "dof", to, from, nil, loader, 1); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("reversed range err = %v", err)
	}
}

func TestProcessDocumentsKeepsOrder(t *testing.T) {
	p, _ := newTestProcessor(t, nil)
	docs := []*entity.Document{
		twoPageDoc(time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)),
		nil,
		twoPageDoc(time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)),
	}
	run := p.ProcessDocuments(context.Background(), docs, 3)
	if len(run.Units) != 3 || run.Units[1].Status != string(constants.UnitFailed) {
		t.Fatalf("units = %+v", run.Units)
	}
	if run.Inserted+run.Skipped != 4 || run.Inserted != 2 {
		t.Fatalf("totals = %+v", run)
	}
}
