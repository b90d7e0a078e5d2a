package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/identity"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func str(s string) *string { return &s }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), Config{InMemory: true}, discard())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func sample(num, published string) *entity.Licitacion {
	amount := 0.0
	rec := &entity.Licitacion{
		Source:          "dof",
		ProcedureNumber: str(num),
		Title:           str("Adquisición de medicamentos"),
		BuyingEntity:    str("SECRETARIA DE SALUD"),
		PublishedOn:     str(published),
		EstimatedAmount: &amount,
		AmountKnown:     true,
		Currency:        str("MXN"),
		CapturedAt:      time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC),
		Raw:             json.RawMessage(`{"text":"aviso"}`),
		Extra:           map[string]any{"ref_tag": "123"},
	}
	identity.Assign(rec)
	return rec
}

func TestInsertIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewLicitacionRepository(openTestStore(t), discard())

	rec := sample("LA-012NCD001-E15-2025", "2025-08-14")
	inserted, err := repo.InsertIfAbsent(ctx, rec)
	if err != nil || !inserted {
		t.Fatalf("first insert = %v, %v", inserted, err)
	}
	dup := sample("LA-012NCD001-E15-2025", "2025-08-14")
	inserted, err = repo.InsertIfAbsent(ctx, dup)
	if err != nil || inserted {
		t.Fatalf("second insert = %v, %v; want skipped", inserted, err)
	}
	n, err := repo.Count(ctx, "dof")
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestInsertBatchStats(t *testing.T) {
	ctx := context.Background()
	repo := NewLicitacionRepository(openTestStore(t), discard())

	bad := sample("LA-3", "2025-08-14")
	bad.Currency = str("pesos")
	recs := []*entity.Licitacion{
		sample("LA-1", "2025-08-14"),
		sample("LA-2", "2025-08-14"),
		sample("LA-1", "2025-08-14"),
		bad,
	}
	st := repo.InsertBatch(ctx, recs)
	if st.Attempted != 4 || st.Inserted != 2 || st.Skipped != 1 || st.Failed != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if len(st.Errors) != 1 || st.Errors[0].Index != 3 {
		t.Fatalf("errors = %+v", st.Errors)
	}

	again := repo.InsertBatch(ctx, recs[:3])
	if again.Inserted != 0 || again.Skipped != 3 {
		t.Fatalf("rerun stats = %+v", again)
	}
}

func TestGetByIdentityRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewLicitacionRepository(openTestStore(t), discard())
	rec := sample("LA-9", "2025-08-14")
	if _, err := repo.InsertIfAbsent(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByIdentity(ctx, "dof", rec.ContentHash)
	if err != nil {
		t.Fatalf("GetByIdentity: %v", err)
	}
	if got.ID != rec.ID || entity.StrOrEmpty(got.Title) != "Adquisición de medicamentos" {
		t.Fatalf("got = %+v", got)
	}
	if entity.StrOrEmpty(got.PublishedOn) != "2025-08-14" {
		t.Fatalf("published = %q", entity.StrOrEmpty(got.PublishedOn))
	}
	if got.EstimatedAmount == nil || *got.EstimatedAmount != 0 || !got.AmountKnown {
		t.Fatalf("amount = %v known=%v", got.EstimatedAmount, got.AmountKnown)
	}
	if got.Description != nil || got.OpeningOn != nil {
		t.Fatalf("absent values should stay nil")
	}
	if !got.CapturedAt.Equal(rec.CapturedAt) {
		t.Fatalf("captured_at = %v", got.CapturedAt)
	}
	if got.Extra["ref_tag"] != "123" {
		t.Fatalf("extra = %v", got.Extra)
	}

	_, err = repo.GetByIdentity(ctx, "dof", identity.ContentHash(sample("other", "2025-08-14")))
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestMergeExtraKeepsExisting(t *testing.T) {
	ctx := context.Background()
	repo := NewLicitacionRepository(openTestStore(t), discard())
	rec := sample("LA-5", "2025-08-14")
	if _, err := repo.InsertIfAbsent(ctx, rec); err != nil {
		t.Fatal(err)
	}

	if err := repo.MergeExtra(ctx, "dof", rec.ContentHash, map[string]any{"ref_tag": "999", "edition": "vespertina"}); err != nil {
		t.Fatalf("MergeExtra: %v", err)
	}
	got, err := repo.GetByIdentity(ctx, "dof", rec.ContentHash)
	if err != nil {
		t.Fatal(err)
	}
	if got.Extra["ref_tag"] != "123" || got.Extra["edition"] != "vespertina" {
		t.Fatalf("extra = %v", got.Extra)
	}

	err = repo.MergeExtra(ctx, "dof", identity.ContentHash(sample("missing", "2025-08-14")), map[string]any{"a": 1})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestListAndCounts(t *testing.T) {
	ctx := context.Background()
	repo := NewLicitacionRepository(openTestStore(t), discard())
	portal := sample("E-1", "2025-08-20")
	portal.Source = "comprasmx"
	identity.Assign(portal)
	for _, r := range []*entity.Licitacion{sample("LA-1", "2025-08-01"), sample("LA-2", "2025-08-14"), portal} {
		if _, err := repo.InsertIfAbsent(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := repo.List(ctx, ListFilter{From: "2025-08-10", To: "2025-08-31"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 || entity.StrOrEmpty(recs[0].ProcedureNumber) != "LA-2" {
		t.Fatalf("list = %d records", len(recs))
	}
	recs, err = repo.List(ctx, ListFilter{Source: "dof", Limit: 1})
	if err != nil || len(recs) != 1 || entity.StrOrEmpty(recs[0].ProcedureNumber) != "LA-1" {
		t.Fatalf("limited list = %v, %v", recs, err)
	}

	counts, err := repo.CountBySource(ctx)
	if err != nil {
		t.Fatalf("CountBySource: %v", err)
	}
	if counts["dof"] != 2 || counts["comprasmx"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	if n, _ := repo.Count(ctx, ""); n != 3 {
		t.Fatalf("total = %d", n)
	}
}

func TestWithStoreCloses(t *testing.T) {
	var seen *Store
	err := WithStore(context.Background(), Config{InMemory: true}, discard(), func(s *Store) error {
		seen = s
		return s.HealthCheck(context.Background(), time.Second)
	})
	if err != nil {
		t.Fatalf("WithStore: %v", err)
	}
	if err := seen.DB().Ping(); err == nil {
		t.Fatalf("store should be closed after WithStore returns")
	}
}
