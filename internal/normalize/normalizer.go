package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
)

// Normalizer maps gazette candidates and portal records onto entity.Licitacion.
type Normalizer struct {
	tables map[constants.Source]*Table
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock sets the clock used for CapturedAt.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// New builds a normalizer over the given tables. A nil map loads the embedded tables.
func New(tables map[constants.Source]*Table, logger *slog.Logger, opts ...Option) (*Normalizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tables == nil {
		var err error
		if tables, err = LoadTables(""); err != nil {
			return nil, err
		}
	}
	n := &Normalizer{tables: tables, now: time.Now, logger: logger}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// gazettePayload is the verbatim native form of a gazette candidate.
type gazettePayload struct {
	Source       string             `json:"source"`
	IssueDate    string             `json:"issue_date,omitempty"`
	Edition      string             `json:"edition,omitempty"`
	Text         string             `json:"text"`
	RefTag       string             `json:"ref_tag,omitempty"`
	Pages        []int              `json:"pages,omitempty"`
	Fields       map[string]*string `json:"fields"`
	Provenance   string             `json:"provenance"`
	FieldSources map[string]string  `json:"field_sources,omitempty"`
	OracleError  string             `json:"oracle_error,omitempty"`
}

// NormalizeCandidate maps one extracted gazette notice. The issue date stands
// in for the publication date when the notice does not print one.
func (n *Normalizer) NormalizeCandidate(doc *entity.Document, c *entity.CandidateRecord) (*entity.Licitacion, error) {
	if doc == nil || c == nil {
		return nil, common.NewAppError("NORMALIZE_ERROR", "nil document or candidate", common.ErrInvalidInput)
	}
	src, ok := constants.CanonicalizeSource(doc.Source)
	if !ok {
		src = constants.SourceDOF
	}

	payload := gazettePayload{
		Source:       string(src),
		Edition:      doc.Edition,
		Fields:       c.Fields,
		Provenance:   c.Provenance,
		FieldSources: c.FieldSources,
		OracleError:  c.OracleError,
	}
	if !doc.IssueDate.IsZero() {
		payload.IssueDate = doc.IssueDate.Format(isoDate)
	}
	if c.Block != nil {
		payload.Text = c.Block.Text
		payload.RefTag = c.Block.RefTag
		payload.Pages = c.Block.Pages
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode raw payload: %w", err)
	}

	native := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		if v != nil {
			native[k] = *v
		}
	}

	rec, err := n.normalize(src, native, raw)
	if err != nil {
		return nil, err
	}
	if rec.PublishedOn == nil && payload.IssueDate != "" {
		d := payload.IssueDate
		rec.PublishedOn = &d
		rec.Extra[constants.ExtraPublishedOnSource] = constants.PublishedFromIssue
	}
	if rec.OriginalURL == nil && doc.URL != "" {
		u := doc.URL
		rec.OriginalURL = &u
	}
	if c.Block != nil && c.Block.RefTag != "" {
		rec.Extra[constants.ExtraRefTag] = c.Block.RefTag
	}
	if payload.Edition != "" {
		rec.Extra[constants.ExtraEdition] = payload.Edition
	}
	return rec, nil
}

// NormalizeRecord maps one native portal record.
func (n *Normalizer) NormalizeRecord(source string, native map[string]any) (*entity.Licitacion, error) {
	src, ok := constants.CanonicalizeSource(source)
	if !ok {
		return nil, common.NewAppError("NORMALIZE_ERROR", "unknown source "+source, common.ErrInvalidInput)
	}
	if native == nil {
		return nil, common.NewAppError("NORMALIZE_ERROR", "nil native record", common.ErrInvalidInput)
	}
	raw, err := json.Marshal(native)
	if err != nil {
		return nil, fmt.Errorf("encode raw payload: %w", err)
	}
	return n.normalize(src, native, raw)
}

func (n *Normalizer) normalize(src constants.Source, native map[string]any, raw json.RawMessage) (*entity.Licitacion, error) {
	table, ok := n.tables[src]
	if !ok {
		return nil, common.NewAppError("NORMALIZE_ERROR", "no mapping table for source "+string(src), common.ErrInvalidInput)
	}

	values := map[constants.Slot]string{}
	consumed := map[string]struct{}{}
	nested := map[string][]string{}
	var amount *float64
	for _, m := range table.Mappings {
		if root, rest := splitPath(native, m.Native); rest == "" {
			consumed[root] = struct{}{}
		} else {
			nested[root] = append(nested[root], rest)
		}
		if _, done := values[m.Slot]; done {
			continue
		}
		v, ok := lookup(native, m.Native)
		if !ok {
			continue
		}
		if s := collapse(scalarString(v)); s != "" {
			values[m.Slot] = s
			if f, isNum := nativeNumber(v); isNum && m.Slot == constants.SlotEstimatedAmount {
				amount = &f
			}
		}
	}

	rec := &entity.Licitacion{
		ID:         uuid.New(),
		Source:     string(src),
		CapturedAt: n.now().UTC(),
		Raw:        raw,
		Extra:      map[string]any{},
	}
	for k, v := range native {
		if _, ok := consumed[k]; ok {
			continue
		}
		obj, isObj := v.(map[string]any)
		if read, ok := nested[k]; ok && isObj {
			keepUnread(rec.Extra, k, obj, read)
			continue
		}
		rec.Extra[k] = v
	}

	for slot, v := range values {
		if slot == constants.SlotEstimatedAmount && amount != nil {
			rec.EstimatedAmount, rec.AmountKnown = amount, true
			continue
		}
		n.assign(rec, slot, v)
	}
	return rec, nil
}

func (n *Normalizer) assign(rec *entity.Licitacion, slot constants.Slot, v string) {
	if slot.IsDateSlot() {
		d, ok := NormalizeDate(v)
		if !ok {
			n.logger.Debug("normalize.date.unparsed", "slot", slot, "value", v)
			rec.Extra[string(slot)+"_raw"] = v
			return
		}
		v = d
	}
	p := &v
	switch slot {
	case constants.SlotProcedureNumber:
		rec.ProcedureNumber = p
	case constants.SlotSourceUUID:
		rec.SourceUUID = p
	case constants.SlotTitle:
		rec.Title = p
	case constants.SlotDescription:
		rec.Description = p
	case constants.SlotBuyingEntity:
		rec.BuyingEntity = p
	case constants.SlotBuyingUnit:
		rec.BuyingUnit = p
	case constants.SlotProcedureType:
		rec.ProcedureType = p
	case constants.SlotContractingType:
		rec.ContractingType = p
	case constants.SlotCharacter:
		c := CanonicalCharacter(v)
		rec.Character = &c
	case constants.SlotStatus:
		rec.Status = p
	case constants.SlotPublishedOn:
		rec.PublishedOn = p
	case constants.SlotOpeningOn:
		rec.OpeningOn = p
	case constants.SlotAwardOn:
		rec.AwardOn = p
	case constants.SlotClarificationOn:
		rec.ClarificationOn = p
	case constants.SlotEstimatedAmount:
		if f, ok := ParseAmount(v); ok {
			rec.EstimatedAmount = &f
			rec.AmountKnown = true
		} else {
			rec.Extra["estimated_amount_raw"] = v
		}
	case constants.SlotCurrency:
		if c, ok := CanonicalCurrency(v); ok {
			rec.Currency = &c
		} else {
			rec.Extra["currency_raw"] = v
		}
	case constants.SlotAwardedSupplier:
		rec.AwardedSupplier = p
	case constants.SlotOriginalURL:
		rec.OriginalURL = p
	case constants.SlotFederalEntity:
		rec.FederalEntity = p
	case constants.SlotMunicipality:
		rec.Municipality = p
	}
}

// scalarString renders JSON scalars; objects and arrays yield "".
// nativeNumber reads JSON numbers as amounts without going through ParseAmount.
func nativeNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	return math.Abs(f), true
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}
	return ""
}
