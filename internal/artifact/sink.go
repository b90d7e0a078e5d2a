package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
)

// Sink archives per-document artifacts and returns where each one went.
type Sink interface {
	Put(ctx context.Context, art *entity.DocumentArtifact) (string, error)
}

// Key is the relative location of an artifact: <source>/<issue_date>_<edition>.json.
func Key(art *entity.DocumentArtifact) string {
	edition := art.Edition
	if edition == "" {
		edition = "unica"
	}
	return path.Join(art.Source, art.IssueDate+"_"+edition+".json")
}

func encode(art *entity.DocumentArtifact) ([]byte, error) {
	b, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return b, nil
}

// FSSink writes artifacts below a local directory.
type FSSink struct {
	dir    string
	logger *slog.Logger
}

func NewFSSink(dir string, logger *slog.Logger) *FSSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSSink{dir: dir, logger: logger}
}

// Dir is the root directory artifacts are written under.
func (s *FSSink) Dir() string { return s.dir }

func (s *FSSink) Put(ctx context.Context, art *entity.DocumentArtifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := encode(art)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.dir, filepath.FromSlash(Key(art)))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	// write then rename so readers never see a partial file
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename artifact: %w", err)
	}
	s.logger.Debug("artifact.fs.ok", "path", dst, "records", len(art.Records))
	return dst, nil
}

// Discard drops artifacts.
type Discard struct{}

func (Discard) Put(context.Context, *entity.DocumentArtifact) (string, error) { return "", nil }
