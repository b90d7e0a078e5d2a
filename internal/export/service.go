package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/repository"
)

const sheet = "Licitaciones"

// Service produces XLSX workbooks of stored tenders.
type Service struct {
	repo   repository.LicitacionRepository
	logger *slog.Logger
}

func NewService(repo repository.LicitacionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportXLSX returns an XLSX workbook (as bytes) for the records matching f.
// If only From is provided -> From..today (inclusive).
func (s *Service) ExportXLSX(ctx context.Context, f repository.ListFilter) ([]byte, error) {
	start := time.Now()
	if f.From != "" && f.To == "" {
		f.To = time.Now().UTC().Format("2006-01-02")
	}

	recs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query licitaciones: %w", err)
	}

	buf, err := Workbook(recs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"source", f.Source,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

var headers = []string{
	"Fuente",
	"Número de procedimiento",
	"Título",
	"Dependencia",
	"Unidad compradora",
	"Tipo de procedimiento",
	"Carácter",
	"Publicación",
	"Apertura",
	"Fallo",
	"Monto estimado",
	"Moneda",
	"Entidad federativa",
	"Liga",
}

// Workbook renders recs onto a single "Licitaciones" sheet.
func Workbook(recs []*entity.Licitacion) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// rename the default sheet so the workbook has exactly one
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.Source)
		write(2, entity.StrOrEmpty(r.ProcedureNumber))
		write(3, truncate(entity.StrOrEmpty(r.Title), 250))
		write(4, entity.StrOrEmpty(r.BuyingEntity))
		write(5, entity.StrOrEmpty(r.BuyingUnit))
		write(6, entity.StrOrEmpty(r.ProcedureType))
		write(7, entity.StrOrEmpty(r.Character))
		write(8, entity.StrOrEmpty(r.PublishedOn))
		write(9, entity.StrOrEmpty(r.OpeningOn))
		write(10, entity.StrOrEmpty(r.AwardOn))
		// unknown amounts stay blank, a known zero is written
		if r.AmountKnown && r.EstimatedAmount != nil {
			write(11, *r.EstimatedAmount)
		}
		write(12, entity.StrOrEmpty(r.Currency))
		write(13, entity.StrOrEmpty(r.FederalEntity))
		write(14, entity.StrOrEmpty(r.OriginalURL))
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "B", "B", 26) // procedure number
	_ = f.SetColWidth(sheet, "C", "C", 60) // title
	_ = f.SetColWidth(sheet, "D", "E", 36) // entity, unit
	_ = f.SetColWidth(sheet, "H", "J", 12) // dates
	_ = f.SetColWidth(sheet, "K", "K", 16) // amount
	_ = f.SetColWidth(sheet, "N", "N", 60) // url

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
