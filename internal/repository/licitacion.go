package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/identity"
)

var columns = []string{
	"id", "source", "content_hash", "procedure_number", "source_uuid", "title",
	"description", "buying_entity", "buying_unit", "procedure_type", "contracting_type",
	"procedure_character", "status", "published_on", "opening_on", "award_on",
	"clarification_on", "estimated_amount", "amount_known", "currency",
	"awarded_supplier", "original_url", "captured_at", "federal_entity",
	"municipality", "raw_payload", "extra", "created_at", "updated_at",
}

// ListFilter narrows List. Dates are inclusive YYYY-MM-DD bounds on published_on.
type ListFilter struct {
	Source string
	From   string
	To     string
	Limit  int
	Offset int
}

type LicitacionRepository interface {
	InsertIfAbsent(ctx context.Context, rec *entity.Licitacion) (bool, error)
	InsertBatch(ctx context.Context, recs []*entity.Licitacion) entity.InsertStats
	MergeExtra(ctx context.Context, source, contentHash string, extra map[string]any) error
	GetByIdentity(ctx context.Context, source, contentHash string) (*entity.Licitacion, error)
	List(ctx context.Context, f ListFilter) ([]*entity.Licitacion, error)
	Count(ctx context.Context, source string) (int, error)
	CountBySource(ctx context.Context) (map[string]int, error)
}

type licitacionRepository struct {
	store  *Store
	now    func() time.Time
	logger *slog.Logger
}

func NewLicitacionRepository(store *Store, logger *slog.Logger) LicitacionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &licitacionRepository{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

func (r *licitacionRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.store.dialect)
}

// InsertIfAbsent stores rec unless a row with the same (source, content_hash)
// exists. It reports false for such a duplicate.
func (r *licitacionRepository) InsertIfAbsent(ctx context.Context, rec *entity.Licitacion) (bool, error) {
	if rec == nil {
		return false, common.NewAppError("INVALID_RECORD", "nil record", common.ErrInvalidInput)
	}
	if rec.ContentHash == "" {
		identity.Assign(rec)
	}
	if err := validateRecord(rec); err != nil {
		return false, err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	values, err := r.values(rec)
	if err != nil {
		return false, err
	}
	query, args := r.builder().Insert(tableLicitaciones).
		Columns(columns...).
		Values(values...).
		OnConflict(entsql.ConflictColumns("source", "content_hash"), entsql.DoNothing()).
		Query()

	var res sql.Result
	if err := r.store.drv.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("repository.insert.failed", "source", rec.Source, "content_hash", rec.ContentHash, "error", err)
		return false, common.NewAppError("DB_INSERT", "insert licitacion", errors.Join(common.ErrDatabase, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, common.NewAppError("DB_INSERT", "rows affected", errors.Join(common.ErrDatabase, err))
	}
	if n == 0 {
		r.logger.Debug("repository.insert.skipped", "source", rec.Source, "content_hash", rec.ContentHash)
		return false, nil
	}
	r.logger.Debug("repository.insert.ok", "source", rec.Source, "content_hash", rec.ContentHash)
	return true, nil
}

// InsertBatch inserts every record on its own, continuing past failures.
func (r *licitacionRepository) InsertBatch(ctx context.Context, recs []*entity.Licitacion) entity.InsertStats {
	var st entity.InsertStats
	for i, rec := range recs {
		st.Attempted++
		if err := ctx.Err(); err != nil {
			st.Failed++
			st.Errors = append(st.Errors, entity.RecordError{Index: i, Error: err.Error()})
			continue
		}
		inserted, err := r.InsertIfAbsent(ctx, rec)
		switch {
		case err != nil:
			st.Failed++
			re := entity.RecordError{Index: i, Error: err.Error()}
			if rec != nil {
				re.ContentHash = rec.ContentHash
			}
			st.Errors = append(st.Errors, re)
		case inserted:
			st.Inserted++
		default:
			st.Skipped++
			st.Duplicates = append(st.Duplicates, i)
		}
	}
	return st
}

// MergeExtra adds keys from extra that the stored row does not already have.
func (r *licitacionRepository) MergeExtra(ctx context.Context, source, contentHash string, extra map[string]any) error {
	if len(extra) == 0 {
		return nil
	}
	tx, err := r.store.drv.Tx(ctx)
	if err != nil {
		return common.NewAppError("DB_TX", "begin", errors.Join(common.ErrDatabase, err))
	}
	rollback := func(err error) error {
		if rerr := tx.Rollback(); rerr != nil {
			r.logger.Warn("repository.tx.rollback_failed", "error", rerr)
		}
		return err
	}

	query, args := r.builder().Select("extra").
		From(entsql.Table(tableLicitaciones)).
		Where(entsql.And(entsql.EQ("source", source), entsql.EQ("content_hash", contentHash))).
		Query()
	var rows entsql.Rows
	if err := tx.Query(ctx, query, args, &rows); err != nil {
		return rollback(common.NewAppError("DB_QUERY", "select extra", errors.Join(common.ErrDatabase, err)))
	}
	var (
		current []byte
		found   bool
	)
	if rows.Next() {
		found = true
		err = rows.Scan(&current)
	}
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return rollback(common.NewAppError("DB_QUERY", "scan extra", errors.Join(common.ErrDatabase, err)))
	}
	if !found {
		return rollback(common.NewAppError("NOT_FOUND", fmt.Sprintf("licitacion %s/%s", source, contentHash), common.ErrNotFound))
	}

	merged := map[string]any{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &merged); err != nil {
			return rollback(common.NewAppError("DB_DECODE", "decode extra", err))
		}
	}
	added := 0
	for k, v := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
			added++
		}
	}
	if added == 0 {
		return rollback(nil)
	}
	b, err := json.Marshal(merged)
	if err != nil {
		return rollback(common.NewAppError("DB_ENCODE", "encode extra", err))
	}

	query, args = r.builder().Update(tableLicitaciones).
		Set("extra", string(b)).
		Set("updated_at", r.timeArg(r.now())).
		Where(entsql.And(entsql.EQ("source", source), entsql.EQ("content_hash", contentHash))).
		Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return rollback(common.NewAppError("DB_UPDATE", "update extra", errors.Join(common.ErrDatabase, err)))
	}
	if err := tx.Commit(); err != nil {
		return common.NewAppError("DB_TX", "commit", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Debug("repository.extra.merged", "source", source, "content_hash", contentHash, "added", added)
	return nil
}

func (r *licitacionRepository) GetByIdentity(ctx context.Context, source, contentHash string) (*entity.Licitacion, error) {
	sel := r.builder().Select(columns...).
		From(entsql.Table(tableLicitaciones)).
		Where(entsql.And(entsql.EQ("source", source), entsql.EQ("content_hash", contentHash)))
	recs, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("licitacion %s/%s", source, contentHash), common.ErrNotFound)
	}
	return recs[0], nil
}

func (r *licitacionRepository) List(ctx context.Context, f ListFilter) ([]*entity.Licitacion, error) {
	sel := r.builder().Select(columns...).From(entsql.Table(tableLicitaciones))
	var preds []*entsql.Predicate
	if f.Source != "" {
		preds = append(preds, entsql.EQ("source", f.Source))
	}
	if f.From != "" {
		preds = append(preds, entsql.GTE("published_on", f.From))
	}
	if f.To != "" {
		preds = append(preds, entsql.LTE("published_on", f.To))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	sel = sel.OrderBy("published_on", "captured_at", "id")
	if f.Limit > 0 {
		sel = sel.Limit(f.Limit)
	}
	if f.Offset > 0 {
		sel = sel.Offset(f.Offset)
	}
	recs, err := r.query(ctx, sel)
	if err != nil {
		r.logger.Error("failed to list licitaciones", "source", f.Source, "error", err)
		return nil, err
	}
	return recs, nil
}

// Count returns the number of stored rows, for one source or all when source is empty.
func (r *licitacionRepository) Count(ctx context.Context, source string) (int, error) {
	sel := r.builder().Select(entsql.Count("*")).From(entsql.Table(tableLicitaciones))
	if source != "" {
		sel = sel.Where(entsql.EQ("source", source))
	}
	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.store.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, common.NewAppError("DB_QUERY", "count", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()
	n := 0
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, common.NewAppError("DB_QUERY", "scan count", errors.Join(common.ErrDatabase, err))
		}
	}
	return n, rows.Err()
}

func (r *licitacionRepository) CountBySource(ctx context.Context) (map[string]int, error) {
	query, args := r.builder().Select("source", entsql.Count("*")).
		From(entsql.Table(tableLicitaciones)).
		GroupBy("source").
		Query()
	var rows entsql.Rows
	if err := r.store.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, common.NewAppError("DB_QUERY", "count by source", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			src string
			n   int
		)
		if err := rows.Scan(&src, &n); err != nil {
			return nil, common.NewAppError("DB_QUERY", "scan count", errors.Join(common.ErrDatabase, err))
		}
		out[src] = n
	}
	return out, rows.Err()
}

func (r *licitacionRepository) query(ctx context.Context, sel *entsql.Selector) ([]*entity.Licitacion, error) {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.store.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, common.NewAppError("DB_QUERY", "select licitaciones", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()
	var out []*entity.Licitacion
	for rows.Next() {
		rec, err := scanRecord(&rows)
		if err != nil {
			return nil, common.NewAppError("DB_QUERY", "scan licitacion", errors.Join(common.ErrDatabase, err))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_QUERY", "iterate licitaciones", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}

func (r *licitacionRepository) values(rec *entity.Licitacion) ([]any, error) {
	raw := string(rec.Raw)
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	extra := "{}"
	if len(rec.Extra) > 0 {
		b, err := json.Marshal(rec.Extra)
		if err != nil {
			return nil, common.NewAppError("DB_ENCODE", "encode extra", err)
		}
		extra = string(b)
	}
	captured := rec.CapturedAt
	if captured.IsZero() {
		captured = r.now()
	}
	now := r.now()
	var amount any
	if rec.EstimatedAmount != nil {
		amount = *rec.EstimatedAmount
	}
	return []any{
		rec.ID.String(), rec.Source, rec.ContentHash,
		nullable(rec.ProcedureNumber), nullable(rec.SourceUUID), nullable(rec.Title),
		nullable(rec.Description), nullable(rec.BuyingEntity), nullable(rec.BuyingUnit),
		nullable(rec.ProcedureType), nullable(rec.ContractingType), nullable(rec.Character),
		nullable(rec.Status), nullable(rec.PublishedOn), nullable(rec.OpeningOn),
		nullable(rec.AwardOn), nullable(rec.ClarificationOn), amount, rec.AmountKnown,
		nullable(rec.Currency), nullable(rec.AwardedSupplier), nullable(rec.OriginalURL),
		r.timeArg(captured), nullable(rec.FederalEntity), nullable(rec.Municipality),
		raw, extra, r.timeArg(now), r.timeArg(now),
	}, nil
}

// timeArg binds timestamps natively on Postgres and as RFC 3339 text on SQLite.
func (r *licitacionRepository) timeArg(t time.Time) any {
	if r.store.dialect == dialect.SQLite {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

func validateRecord(rec *entity.Licitacion) error {
	v := common.NewValidator().
		Field("source", rec.Source, common.Required, common.MaxLength(32)).
		Field("content_hash", rec.ContentHash, common.HexHash).
		Field("procedure_number", rec.ProcedureNumber, common.MaxLength(128)).
		Field("title", rec.Title, common.MaxLength(2000)).
		Field("buying_entity", rec.BuyingEntity, common.MaxLength(500)).
		Field("currency", rec.Currency, common.CurrencyCode)
	if err := v.Error(); err != nil {
		return common.NewAppError("INVALID_RECORD", "licitacion failed validation", err)
	}
	return nil
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
