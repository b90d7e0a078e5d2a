package entity

import "github.com/joseph-ayodele/licitaciones-tracker/constants"

// InsertStats is the outcome of a batch insert.
type InsertStats struct {
	Attempted int           `json:"attempted"`
	Inserted  int           `json:"inserted"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Errors    []RecordError `json:"errors,omitempty"`

	// Duplicates holds the batch indexes of skipped records.
	Duplicates []int `json:"-"`
}

// RecordError ties a failure to the record it happened on.
type RecordError struct {
	Index       int    `json:"index"`
	ContentHash string `json:"content_hash,omitempty"`
	Error       string `json:"error"`
}

// Add folds other into s.
func (s *InsertStats) Add(other InsertStats) {
	s.Attempted += other.Attempted
	s.Inserted += other.Inserted
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Errors = append(s.Errors, other.Errors...)
}

// BatchReport summarizes one unit: a gazette document or one page of portal records.
type BatchReport struct {
	Unit           string       `json:"unit"`
	Source         string       `json:"source"`
	Status         string       `json:"status"`
	Attempted      int          `json:"attempted"`
	Inserted       int          `json:"inserted"`
	Skipped        int          `json:"skipped"`
	Failed         int          `json:"failed"`
	Blocks         int          `json:"blocks,omitempty"`
	OracleAssisted int          `json:"oracle_assisted,omitempty"`
	Section        *SectionInfo `json:"section,omitempty"`
	Errors         []string     `json:"errors,omitempty"`
	ElapsedMS      int64        `json:"elapsed_ms"`
}

// ApplyStats copies insert counters into the report.
func (r *BatchReport) ApplyStats(s InsertStats) {
	r.Attempted += s.Attempted
	r.Inserted += s.Inserted
	r.Skipped += s.Skipped
	r.Failed += s.Failed
	for _, e := range s.Errors {
		r.Errors = append(r.Errors, e.Error)
	}
}

// RunReport aggregates every unit of one orchestrator invocation.
type RunReport struct {
	RunID     string        `json:"run_id"`
	Units     []BatchReport `json:"units"`
	Missing   int           `json:"missing"`
	Attempted int           `json:"attempted"`
	Inserted  int           `json:"inserted"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	UnitsOK   int           `json:"units_ok"`
	UnitsBad  int           `json:"units_failed"`
}

// Add appends a unit report and updates the totals.
func (r *RunReport) Add(u BatchReport) {
	r.Units = append(r.Units, u)
	r.Attempted += u.Attempted
	r.Inserted += u.Inserted
	r.Skipped += u.Skipped
	r.Failed += u.Failed
	switch u.Status {
	case string(constants.UnitMissing):
		r.Missing++
	case string(constants.UnitFailed):
		r.UnitsBad++
	default:
		r.UnitsOK++
	}
}
