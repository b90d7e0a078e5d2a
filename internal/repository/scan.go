package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// scanRecord reads one row selected with the columns list, in order.
// Dates and timestamps arrive as time.Time from Postgres and as text from
// SQLite, so they are scanned loosely and converted here.
func scanRecord(rows *entsql.Rows) (*entity.Licitacion, error) {
	var (
		rec                                         entity.Licitacion
		id                                          string
		published, opening, award, clarification    any
		captured, created, updated                  any
		amount                                      sql.NullFloat64
		raw, extra                                  []byte
		number, suuid, title, desc, entityName      sql.NullString
		unit, ptype, ctype, character, status       sql.NullString
		currency, supplier, url, federal, municipio sql.NullString
	)
	err := rows.Scan(
		&id, &rec.Source, &rec.ContentHash, &number, &suuid, &title,
		&desc, &entityName, &unit, &ptype, &ctype,
		&character, &status, &published, &opening, &award,
		&clarification, &amount, &rec.AmountKnown, &currency,
		&supplier, &url, &captured, &federal,
		&municipio, &raw, &extra, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id %q: %w", id, err)
	}

	rec.ProcedureNumber = optString(number)
	rec.SourceUUID = optString(suuid)
	rec.Title = optString(title)
	rec.Description = optString(desc)
	rec.BuyingEntity = optString(entityName)
	rec.BuyingUnit = optString(unit)
	rec.ProcedureType = optString(ptype)
	rec.ContractingType = optString(ctype)
	rec.Character = optString(character)
	rec.Status = optString(status)
	rec.Currency = optString(currency)
	rec.AwardedSupplier = optString(supplier)
	rec.OriginalURL = optString(url)
	rec.FederalEntity = optString(federal)
	rec.Municipality = optString(municipio)

	rec.PublishedOn = optDate(published)
	rec.OpeningOn = optDate(opening)
	rec.AwardOn = optDate(award)
	rec.ClarificationOn = optDate(clarification)
	if amount.Valid {
		f := amount.Float64
		rec.EstimatedAmount = &f
	}

	rec.CapturedAt = asTime(captured)
	rec.CreatedAt = asTime(created)
	rec.UpdatedAt = asTime(updated)

	if len(raw) > 0 {
		rec.Raw = json.RawMessage(append([]byte(nil), raw...))
	}
	rec.Extra = map[string]any{}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &rec.Extra); err != nil {
			return nil, fmt.Errorf("decode extra: %w", err)
		}
	}
	return &rec, nil
}

func optString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func optDate(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		s = t.Format("2006-01-02")
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		s = fmt.Sprint(t)
	}
	if len(s) > 10 {
		s = s[:10]
	}
	return &s
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	}
	return time.Time{}
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
