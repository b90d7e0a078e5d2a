package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/identity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func open(t *testing.T, b []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 1 || got[0] != sheet {
		t.Fatalf("sheets = %v", got)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestWorkbook(t *testing.T) {
	recs := []*entity.Licitacion{
		{Source: "dof", ProcedureNumber: ptr("LA-1"), Title: ptr(strings.Repeat("a", 300)), EstimatedAmount: ptr(0.0), AmountKnown: true, Currency: ptr("MXN")},
		{Source: "comprasmx", ProcedureNumber: ptr("E-2"), PublishedOn: ptr("2025-08-14")},
	}
	b, err := Workbook(recs)
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	rows := open(t, b)
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "Fuente" || rows[0][10] != "Monto estimado" || len(rows[0]) != len(headers) {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][1] != "LA-1" || len([]rune(rows[1][2])) != 250 || rows[1][10] != "0" {
		t.Fatalf("first row = %v", rows[1])
	}
	// unknown amount leaves the cell blank
	if len(rows[2]) > 10 && rows[2][10] != "" {
		t.Fatalf("unknown amount written: %q", rows[2][10])
	}
	if rows[2][7] != "2025-08-14" {
		t.Fatalf("published = %q", rows[2][7])
	}
}

func TestExportXLSXFiltersBySource(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := repository.Open(ctx, repository.Config{InMemory: true}, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	repo := repository.NewLicitacionRepository(st, logger)

	for _, r := range []*entity.Licitacion{
		{Source: "dof", ProcedureNumber: ptr("LA-1"), BuyingEntity: ptr("IMSS"), PublishedOn: ptr("2025-08-14")},
		{Source: "dof", ProcedureNumber: ptr("LA-2"), BuyingEntity: ptr("IMSS"), PublishedOn: ptr("2025-08-15")},
		{Source: "tianguis", ProcedureNumber: ptr("T-1"), BuyingEntity: ptr("SEDUVI"), PublishedOn: ptr("2025-08-14")},
	} {
		identity.Assign(r)
		if _, err := repo.InsertIfAbsent(ctx, r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	b, err := NewService(repo, logger).ExportXLSX(ctx, repository.ListFilter{Source: "dof"})
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	rows := open(t, b)
	if len(rows) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	for _, row := range rows[1:] {
		if row[0] != "dof" {
			t.Fatalf("unexpected source row %v", row)
		}
	}
}
