package ingest

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
)

// FileKind tells gazette issues from portal record pages.
type FileKind string

const (
	KindGazette FileKind = "gazette"
	KindPortal  FileKind = "portal"
)

// InboxFile is a recognised inbox entry.
//
//	gazette: <source>_<YYYY-MM-DD>_<edition>.txt
//	portal:  <source>_<anything>.json
type InboxFile struct {
	Path      string
	Kind      FileKind
	Source    constants.Source
	IssueDate time.Time // gazette only
	Edition   constants.Edition
	ModTime   time.Time
}

// Unit is the batch unit key used in reports.
func (f InboxFile) Unit() string {
	if f.Kind == KindGazette {
		return string(f.Source) + ":" + f.IssueDate.Format("2006-01-02") + ":" + string(f.Edition)
	}
	return string(f.Source) + ":" + filepath.Base(f.Path)
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Unchanged uint32
	Failed    uint32
}

var reGazetteName = regexp.MustCompile(`^([a-z]+)_(\d{4}-\d{2}-\d{2})_([a-z]+)$`)

// ParseName recognises an inbox file name. Unknown sources, bad dates and
// unknown editions report false.
func ParseName(path string) (InboxFile, bool) {
	base := filepath.Base(path)
	ext := constants.NormalizeExt(filepath.Ext(base))
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	switch ext {
	case "txt":
		m := reGazetteName.FindStringSubmatch(stem)
		if m == nil {
			return InboxFile{}, false
		}
		src, ok := constants.CanonicalizeSource(m[1])
		if !ok || src.IsPortal() {
			return InboxFile{}, false
		}
		day, err := time.Parse("2006-01-02", m[2])
		if err != nil {
			return InboxFile{}, false
		}
		ed, ok := constants.CanonicalizeEdition(m[3])
		if !ok {
			return InboxFile{}, false
		}
		return InboxFile{Path: path, Kind: KindGazette, Source: src, IssueDate: day, Edition: ed}, true
	case "json":
		prefix, _, found := strings.Cut(stem, "_")
		if !found {
			return InboxFile{}, false
		}
		src, ok := constants.CanonicalizeSource(prefix)
		if !ok || !src.IsPortal() {
			return InboxFile{}, false
		}
		return InboxFile{Path: path, Kind: KindPortal, Source: src}, true
	}
	return InboxFile{}, false
}

// GazetteName builds the inbox file name for an issue.
func GazetteName(source string, day time.Time, edition string) string {
	return strings.ToLower(source) + "_" + day.Format("2006-01-02") + "_" + strings.ToLower(edition) + ".txt"
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
