package entity

import (
	"time"
)

// Document is one gazette issue as handed over by the fetcher.
type Document struct {
	Source    string    `json:"source"`
	IssueDate time.Time `json:"issue_date"`
	Edition   string    `json:"edition"`
	Text      string    `json:"-"`
	URL       string    `json:"url,omitempty"`
}

// Key identifies the document in logs and reports.
func (d *Document) Key() string {
	return d.Source + ":" + d.IssueDate.Format("2006-01-02") + ":" + d.Edition
}

// NoticeBlock is the span of section text believed to hold one notice.
type NoticeBlock struct {
	Index  int    `json:"index"`
	Pages  []int  `json:"pages"`
	Text   string `json:"text"`
	RefTag string `json:"ref_tag,omitempty"`
	Start  int    `json:"start"` // byte offset in the section text
	End    int    `json:"end"`
}

// CandidateRecord is the raw output of field extraction for one block.
type CandidateRecord struct {
	Fields       map[string]*string `json:"fields"`
	Provenance   string             `json:"provenance"`
	FieldSources map[string]string  `json:"field_sources,omitempty"`
	OracleError  string             `json:"oracle_error,omitempty"`
	Block        *NoticeBlock       `json:"-"`
}

// Filled counts non-nil fields.
func (c *CandidateRecord) Filled() int {
	n := 0
	for _, v := range c.Fields {
		if v != nil {
			n++
		}
	}
	return n
}

// Get returns the field value or "" when absent.
func (c *CandidateRecord) Get(field string) string {
	if v, ok := c.Fields[field]; ok && v != nil {
		return *v
	}
	return ""
}

// SectionInfo describes where the tender notices were found inside a document.
type SectionInfo struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Method   string `json:"method"`
	Degraded bool   `json:"degraded"`
}

// DocumentArtifact is the per-document archive written next to the store.
type DocumentArtifact struct {
	Source    string        `json:"source"`
	IssueDate string        `json:"issue_date"`
	Edition   string        `json:"edition"`
	URL       string        `json:"url,omitempty"`
	Section   SectionInfo   `json:"section"`
	Records   []*Licitacion `json:"records"`
}
