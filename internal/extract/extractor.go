package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/llm"
)

const (
	sourceRulePrefix = "rule:"
	sourceOracle     = "oracle"
)

// Config tunes the two extraction tiers.
type Config struct {
	Rules             Rules    // default DefaultRules()
	Fields            []string // default constants.GazetteFields()
	RequiredFields    []string // default constants.DefaultRequiredFields
	MinRequiredFields int      // default 3
	MaxOracleChars    int      // default 4000
}

// Extractor turns a notice block into a candidate record: rules first, and
// the oracle only when the rules leave too many required fields empty.
type Extractor struct {
	cfg    Config
	oracle llm.Oracle
	logger *slog.Logger
}

// NewExtractor builds an extractor. A nil oracle disables the oracle tier.
func NewExtractor(cfg Config, oracle llm.Oracle, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules()
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = constants.GazetteFields()
	}
	if len(cfg.RequiredFields) == 0 {
		cfg.RequiredFields = constants.DefaultRequiredFields
	}
	if cfg.MinRequiredFields <= 0 {
		cfg.MinRequiredFields = 3
	}
	if cfg.MaxOracleChars <= 0 {
		cfg.MaxOracleChars = 4000
	}
	return &Extractor{cfg: cfg, oracle: oracle, logger: logger}
}

// Extract never fails: misses are nil fields, oracle trouble is recorded in
// OracleError and the rule-tier result is kept.
func (e *Extractor) Extract(ctx context.Context, source string, block *entity.NoticeBlock) *entity.CandidateRecord {
	rec := e.applyRules(block.Text)
	rec.Block = block

	covered := e.coverage(rec)
	if covered >= e.cfg.MinRequiredFields || e.oracle == nil {
		return rec
	}

	log := e.logger.With("block", block.Index, "ref_tag", block.RefTag)
	if err := ctx.Err(); err != nil {
		rec.OracleError = err.Error()
		return rec
	}

	text, cut := llm.TruncateRunes(block.Text, e.cfg.MaxOracleChars)
	start := time.Now()
	log.Info("extract.oracle.start", "covered", covered, "min_required", e.cfg.MinRequiredFields, "text_len", len(text), "truncated", cut)

	answer, _, err := e.oracle.ExtractNotice(ctx, llm.NoticeRequest{
		Text:     text,
		Fields:   e.cfg.Fields,
		Source:   source,
		RefTag:   block.RefTag,
		Language: "es",
	})
	if err != nil {
		rec.OracleError = err.Error()
		log.Warn("extract.oracle.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return rec
	}

	filled := 0
	for _, f := range e.cfg.Fields {
		if rec.Fields[f] != nil {
			continue
		}
		v, ok := answer[f]
		if !ok || v == nil {
			continue
		}
		s := cleanValue(*v)
		if s == "" {
			continue
		}
		rec.Fields[f] = &s
		rec.FieldSources[f] = sourceOracle
		filled++
	}
	rec.Provenance = string(constants.ProvenanceOracle)
	log.Info("extract.oracle.ok", "filled", filled, "elapsed_ms", time.Since(start).Milliseconds())
	return rec
}

func (e *Extractor) applyRules(text string) *entity.CandidateRecord {
	rec := &entity.CandidateRecord{
		Fields:       make(map[string]*string, len(e.cfg.Fields)),
		FieldSources: map[string]string{},
		Provenance:   string(constants.ProvenanceRule),
	}
	for _, f := range e.cfg.Fields {
		rec.Fields[f] = nil
		v, name, ok := FirstOf(text, e.cfg.Rules[f])
		if !ok {
			continue
		}
		rec.Fields[f] = &v
		rec.FieldSources[f] = sourceRulePrefix + name
	}
	return rec
}

func (e *Extractor) coverage(rec *entity.CandidateRecord) int {
	n := 0
	for _, f := range e.cfg.RequiredFields {
		if v := rec.Fields[f]; v != nil && strings.TrimSpace(*v) != "" {
			n++
		}
	}
	return n
}
