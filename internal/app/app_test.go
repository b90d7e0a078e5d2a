package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"entgo.io/ent/dialect"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/artifact"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewOracleNone(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.LLM.Provider = "none"
	o, closeFn, err := NewOracle(context.Background(), cfg, discard())
	if err != nil || o != nil || closeFn != nil {
		t.Fatalf("none provider = %v, %v, %v", o, closeFn != nil, err)
	}

	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = ""
	if o, _, _ := NewOracle(context.Background(), cfg, discard()); o != nil {
		t.Fatalf("openai without key should disable the oracle")
	}

	cfg.LLM.Provider = "claude"
	if _, _, err := NewOracle(context.Background(), cfg, discard()); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("unknown provider err = %v", err)
	}
}

func TestNewOracleOpenAIUncached(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "sk-test"
	cfg.Redis.Addr = ""
	o, closeFn, err := NewOracle(context.Background(), cfg, discard())
	if err != nil || o == nil {
		t.Fatalf("openai = %v, %v", o, err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewSink(t *testing.T) {
	ctx := context.Background()
	s, err := NewSink(ctx, common.ArtifactConfig{}, "", discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(artifact.Discard); !ok {
		t.Fatalf("empty config sink = %T", s)
	}
	dir := t.TempDir()
	s, err = NewSink(ctx, common.ArtifactConfig{Dir: "./artifacts"}, dir, discard())
	if err != nil {
		t.Fatal(err)
	}
	if fs, ok := s.(*artifact.FSSink); !ok || fs.Dir() != dir {
		t.Fatalf("override sink = %#v", s)
	}
}

func TestBuildInMemory(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.LLM.Provider = "none"
	cfg.Redis.Addr = ""
	cfg.Artifacts = common.ArtifactConfig{}

	a, err := Build(context.Background(), cfg, Options{InMemory: true}, discard())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()
	if a.Store.Dialect() != dialect.SQLite || a.Processor == nil || a.Repo == nil {
		t.Fatalf("app = %+v", a)
	}
	if n, err := a.Repo.Count(context.Background(), ""); err != nil || n != 0 {
		t.Fatalf("count = %d, %v", n, err)
	}
}
