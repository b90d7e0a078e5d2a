package normalize

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
)

var fixedNow = time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

func str(s string) *string { return &s }

func TestNormalizeDateRoundTrip(t *testing.T) {
	inputs := []string{
		"2025-08-14",
		"14/08/2025",
		"14-08-2025",
		"2025-08-14T10:00:00Z",
		"2025-08-14T10:00:00-06:00",
		"2025-08-14T10:00:00",
		"2025-08-14 10:00:00",
		"14/08/2025 10:00",
		"2025/08/14",
		"14 de agosto de 2025",
		"14 DE AGOSTO DEL 2025",
		"14/08/2025, 10:00 horas",
		"el día 2025-08-14 a las 10:00",
	}
	for _, in := range inputs {
		got, ok := NormalizeDate(in)
		if !ok || got != "2025-08-14" {
			t.Errorf("NormalizeDate(%q) = %q, %v", in, got, ok)
		}
	}
}

func TestNormalizeDateRejects(t *testing.T) {
	for _, in := range []string{"", "No habra visita", "31/02/2025", "32 de agosto de 2025", "14 de agostoo de 2025"} {
		if got, ok := NormalizeDate(in); ok {
			t.Errorf("NormalizeDate(%q) = %q, want failure", in, got)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		want  float64
		known bool
	}{
		{"$1,500,000.00 M.N.", 1500000, true},
		{"1.234.567,89", 1234567.89, true},
		{"12,5", 12.5, true},
		{"1,500", 1500, true},
		{"1.500", 1500, true},
		{"$ 12.500 pesos", 12500, true},
		{"1.50", 1.5, true},
		{"1,50", 1.5, true},
		{"0.500", 0.5, true},
		{"0,500", 0.5, true},
		{"2.5", 2.5, true},
		{"-300.50", 300.5, true},
		{"0", 0, true},
		{"$ 0.00", 0, true},
		{"sin monto", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseAmount(c.in)
		if ok != c.known || got != c.want {
			t.Errorf("ParseAmount(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.known)
		}
	}
}

func TestCanonicalValues(t *testing.T) {
	if c, ok := CanonicalCurrency(" M.N. "); !ok || c != "MXN" {
		t.Errorf("M.N. -> %q %v", c, ok)
	}
	if c, ok := CanonicalCurrency("Dólares"); !ok || c != "USD" {
		t.Errorf("Dólares -> %q %v", c, ok)
	}
	if _, ok := CanonicalCurrency("moneda rara"); ok {
		t.Errorf("unknown currency accepted")
	}
	if got := CanonicalCharacter("Internacional bajo la cobertura de Tratados"); got != "internacional_tratados" {
		t.Errorf("character = %q", got)
	}
	if got := CanonicalCharacter("NACIONAL"); got != "nacional" {
		t.Errorf("character = %q", got)
	}
}

func TestNormalizeCandidate(t *testing.T) {
	n := newTestNormalizer(t)
	doc := &entity.Document{Source: "dof", IssueDate: time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC), Edition: "matutina", URL: "https://dof.example/nota"}
	cand := &entity.CandidateRecord{
		Fields: map[string]*string{
			constants.FieldNumeroProcedimiento: str("LA-012NCD001-E15-2025"),
			constants.FieldTitulo:              str("Adquisicion  de material"),
			constants.FieldEntidadCompradora:   str("SECRETARIA DE SALUD"),
			constants.FieldFechaApertura:       str("27/08/2025, 10:00 horas"),
			constants.FieldFechaVisita:         str("No habra visita"),
			constants.FieldMontoEstimado:       str("$1,500,000.00"),
			constants.FieldMoneda:              str("MXN"),
			constants.FieldCaracter:            str("nacional"),
			constants.FieldEstatus:             nil,
		},
		Provenance: string(constants.ProvenanceRule),
		Block:      &entity.NoticeBlock{Text: "texto", RefTag: "123456", Pages: []int{2}},
	}

	rec, err := n.NormalizeCandidate(doc, cand)
	if err != nil {
		t.Fatalf("NormalizeCandidate: %v", err)
	}
	if rec.Source != "dof" || entity.StrOrEmpty(rec.ProcedureNumber) != "LA-012NCD001-E15-2025" {
		t.Fatalf("rec = %+v", rec)
	}
	if entity.StrOrEmpty(rec.Title) != "Adquisicion de material" {
		t.Errorf("title = %q", entity.StrOrEmpty(rec.Title))
	}
	if entity.StrOrEmpty(rec.OpeningOn) != "2025-08-27" {
		t.Errorf("opening = %q", entity.StrOrEmpty(rec.OpeningOn))
	}
	if entity.StrOrEmpty(rec.PublishedOn) != "2025-08-14" {
		t.Errorf("published should default to the issue date, got %q", entity.StrOrEmpty(rec.PublishedOn))
	}
	if rec.EstimatedAmount == nil || *rec.EstimatedAmount != 1500000 || !rec.AmountKnown {
		t.Errorf("amount = %v known=%v", rec.EstimatedAmount, rec.AmountKnown)
	}
	if rec.Status != nil {
		t.Errorf("status should be nil")
	}
	if rec.Extra[constants.FieldFechaVisita] != "No habra visita" {
		t.Errorf("unmapped field not in extra: %v", rec.Extra)
	}
	if rec.Extra["ref_tag"] != "123456" {
		t.Errorf("ref tag not in extra: %v", rec.Extra)
	}
	if !rec.CapturedAt.Equal(fixedNow) {
		t.Errorf("captured_at = %v", rec.CapturedAt)
	}
	if entity.StrOrEmpty(rec.OriginalURL) != doc.URL {
		t.Errorf("url = %q", entity.StrOrEmpty(rec.OriginalURL))
	}

	var raw map[string]any
	if err := json.Unmarshal(rec.Raw, &raw); err != nil {
		t.Fatalf("raw: %v", err)
	}
	if raw["text"] != "texto" || raw["ref_tag"] != "123456" || raw["provenance"] != "rule" {
		t.Errorf("raw = %v", raw)
	}
}

func TestNormalizePortalRecord(t *testing.T) {
	n := newTestNormalizer(t)
	native := map[string]any{
		"codigo_expediente":    "E-123",
		"uuid_procedimiento":   "0b6d6a3c-5d1e-4a6a-9f58-2f3f0e1c2b7a",
		"nombre_procedimiento": "Servicio de limpieza",
		"dependencia":          map[string]any{"nombre": "IMSS", "siglas": "IMSS"},
		"fecha_publicacion":    "2025-08-14T09:30:00-06:00",
		"importe_estimado":     0.0,
		"moneda":               "pesos",
		"caracter":             "Internacional",
		"partidas":             []any{"33901"},
	}
	rec, err := n.NormalizeRecord("comprasmx", native)
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if entity.StrOrEmpty(rec.ProcedureNumber) != "E-123" {
		t.Errorf("procedure = %q", entity.StrOrEmpty(rec.ProcedureNumber))
	}
	if entity.StrOrEmpty(rec.BuyingEntity) != "IMSS" {
		t.Errorf("dotted path not resolved: %q", entity.StrOrEmpty(rec.BuyingEntity))
	}
	if entity.StrOrEmpty(rec.PublishedOn) != "2025-08-14" {
		t.Errorf("published = %q", entity.StrOrEmpty(rec.PublishedOn))
	}
	if rec.EstimatedAmount == nil || *rec.EstimatedAmount != 0 || !rec.AmountKnown {
		t.Errorf("explicit zero must be a known amount: %v %v", rec.EstimatedAmount, rec.AmountKnown)
	}
	if entity.StrOrEmpty(rec.Currency) != "MXN" || entity.StrOrEmpty(rec.Character) != "internacional" {
		t.Errorf("currency=%q character=%q", entity.StrOrEmpty(rec.Currency), entity.StrOrEmpty(rec.Character))
	}
	if _, ok := rec.Extra["partidas"]; !ok {
		t.Errorf("unmapped field missing from extra: %v", rec.Extra)
	}
	if _, ok := rec.Extra["dependencia"]; ok {
		t.Errorf("mapped root key leaked into extra")
	}
	if rec.Extra["dependencia.siglas"] != "IMSS" {
		t.Errorf("unmapped member of a mapped object dropped: %v", rec.Extra)
	}
	if _, ok := rec.Extra["dependencia.nombre"]; ok {
		t.Errorf("mapped member copied into extra")
	}
	if !strings.Contains(string(rec.Raw), "partidas") {
		t.Errorf("raw payload incomplete: %s", rec.Raw)
	}
}

func TestNormalizeRecordNestedLeftovers(t *testing.T) {
	n := newTestNormalizer(t)
	native := map[string]any{
		"codigo_expediente": "E-124",
		"Dependencia": map[string]any{
			"Nombre":    "CFE",
			"domicilio": map[string]any{"ciudad": "CDMX"},
		},
		"unidad_compradora":    map[string]any{"nombre": "Gerencia", "clave": "018TOQ"},
		"proveedor_adjudicado": "sin adjudicar",
		"importe_estimado":     1234.567,
	}
	rec, err := n.NormalizeRecord("comprasmx", native)
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if entity.StrOrEmpty(rec.BuyingEntity) != "CFE" {
		t.Errorf("case-folded dotted path not resolved: %q", entity.StrOrEmpty(rec.BuyingEntity))
	}
	ciudad, ok := rec.Extra["Dependencia.domicilio"].(map[string]any)
	if !ok || ciudad["ciudad"] != "CDMX" {
		t.Errorf("nested leftover missing: %v", rec.Extra)
	}
	if _, ok := rec.Extra["unidad_compradora.clave"]; ok {
		t.Errorf("key mapped as a whole should not be split into extra")
	}
	if rec.Extra["proveedor_adjudicado"] != "sin adjudicar" {
		t.Errorf("non-object value under a dotted mapping dropped: %v", rec.Extra)
	}
	if rec.EstimatedAmount == nil || *rec.EstimatedAmount != 1234.567 {
		t.Errorf("numeric amount = %v", rec.EstimatedAmount)
	}
}

func TestNormalizeRecordMissingAmount(t *testing.T) {
	n := newTestNormalizer(t)
	rec, err := n.NormalizeRecord("tianguis", map[string]any{"Nombre del procedimiento": "Obra", "monto estimado": "por definir"})
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if rec.EstimatedAmount != nil || rec.AmountKnown {
		t.Fatalf("unparseable amount must be unknown")
	}
	if rec.Extra["estimated_amount_raw"] != "por definir" {
		t.Fatalf("raw amount not kept: %v", rec.Extra)
	}
}

func TestNormalizeRecordUnknownSource(t *testing.T) {
	n := newTestNormalizer(t)
	if _, err := n.NormalizeRecord("otro", map[string]any{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadTablesOverride(t *testing.T) {
	dir := t.TempDir()
	table := "source: tianguis\nmappings:\n  - native: clave\n    slot: procedure_number\n"
	if err := os.WriteFile(filepath.Join(dir, "tianguis.yaml"), []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}
	tables, err := LoadTables(dir)
	if err != nil {
		t.Fatalf("LoadTables: %v", err)
	}
	if got := tables[constants.SourceTianguis].Mappings; len(got) != 1 || got[0].Native != "clave" {
		t.Fatalf("override not applied: %+v", got)
	}
	if tables[constants.SourceComprasMX] == nil || tables[constants.SourceDOF] == nil {
		t.Fatalf("embedded tables missing")
	}
}

func TestParseTableRejectsUnknownSlot(t *testing.T) {
	_, err := ParseTable([]byte("source: dof\nmappings:\n  - native: x\n    slot: not_a_slot\n"))
	if err == nil || !strings.Contains(err.Error(), "unknown slot") {
		t.Fatalf("err = %v", err)
	}
}
