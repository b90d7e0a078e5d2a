package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
)

// Directory is a local inbox of gazette texts and portal JSON pages.
type Directory struct {
	Root       string
	SkipHidden bool
	logger     *slog.Logger
}

func NewDirectory(root string, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{Root: root, SkipHidden: true, logger: logger}
}

// Scan walks the inbox and returns recognised files ordered by kind, date and name.
// Unreadable entries are counted as failed and the walk continues.
func (d *Directory) Scan(ctx context.Context) ([]InboxFile, DirStats, error) {
	if strings.TrimSpace(d.Root) == "" {
		return nil, DirStats{}, errors.New("inbox root is required")
	}

	var files []InboxFile
	var stats DirStats

	err := filepath.WalkDir(d.Root, func(path string, e fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			d.logger.Warn("ingest.scan.error", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if d.SkipHidden && path != d.Root && IsHidden(path) {
			if e.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if e.IsDir() {
			return nil
		}
		if _, ok := constants.AllowedExtensions[constants.NormalizeExt(filepath.Ext(path))]; !ok {
			return nil
		}
		f, ok := ParseName(path)
		if !ok {
			d.logger.Debug("ingest.scan.unrecognised", "path", path)
			return nil
		}
		if info, err := e.Info(); err == nil {
			f.ModTime = info.ModTime()
		}
		stats.Matched++
		files = append(files, f)
		return nil
	})
	if err != nil {
		return files, stats, fmt.Errorf("walk: %w", err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.Kind != b.Kind {
			return a.Kind == KindGazette
		}
		if !a.IssueDate.Equal(b.IssueDate) {
			return a.IssueDate.Before(b.IssueDate)
		}
		return a.Path < b.Path
	})
	return files, stats, nil
}

// Load reads <root>/<source>_<date>_<edition>.txt. A missing file means the
// issue was not published.
func (d *Directory) Load(ctx context.Context, source string, day time.Time, edition string) (*entity.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(d.Root, GazetteName(source, day, edition))
	f, ok := ParseName(path)
	if !ok {
		return nil, common.NewAppError("INVALID_INPUT", "unsupported gazette "+source+"/"+edition, common.ErrInvalidInput)
	}
	doc, err := ReadDocument(f)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrNotPublished
	}
	return doc, err
}

// ReadDocument loads a gazette text file.
func ReadDocument(f InboxFile) (*entity.Document, error) {
	if f.Kind != KindGazette {
		return nil, common.NewAppError("INVALID_INPUT", f.Path+" is not a gazette file", common.ErrInvalidInput)
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return &entity.Document{
		Source:    string(f.Source),
		IssueDate: f.IssueDate,
		Edition:   string(f.Edition),
		Text:      string(b),
	}, nil
}

// ReadPortalPage loads a JSON page of native records: either a bare array
// or an object with a "records" array.
func ReadPortalPage(path string) ([]map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodePortalPage(b)
}

// DecodePortalPage decodes a portal page. Numbers are kept as json.Number.
func DecodePortalPage(b []byte) ([]map[string]any, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, common.ErrNoInput
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	if b[0] == '[' {
		var recs []map[string]any
		if err := dec.Decode(&recs); err != nil {
			return nil, common.NewAppError("INVALID_INPUT", "decode portal page", err)
		}
		return recs, nil
	}
	var env struct {
		Records []map[string]any `json:"records"`
	}
	if err := dec.Decode(&env); err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "decode portal page", err)
	}
	if env.Records == nil {
		return nil, common.NewAppError("INVALID_INPUT", `portal page has no "records" array`, common.ErrInvalidInput)
	}
	return env.Records, nil
}
