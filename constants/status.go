package constants

// Provenance records which extraction tier produced a candidate record.
type Provenance string

const (
	ProvenanceRule   Provenance = "rule"
	ProvenanceOracle Provenance = "oracle-assisted"
)

// LocateMethod tells how the tender-notice page range was found.
type LocateMethod string

const (
	LocateIndex         LocateMethod = "index"          // table of contents entry
	LocateContentScan   LocateMethod = "content-scan"   // section heading found in page text
	LocateWholeDocument LocateMethod = "whole-document" // degraded fallback
)

// UnitStatus is the outcome of one batch unit (a document or a portal page).
type UnitStatus string

// Stable values (surfaced in run reports).
const (
	UnitOK      UnitStatus = "OK"      // every attempted record inserted or skipped
	UnitPartial UnitStatus = "PARTIAL" // some records failed
	UnitFailed  UnitStatus = "FAILED"  // nothing could be stored, or the unit aborted
	UnitMissing UnitStatus = "MISSING" // no document published for that date/edition
)
