package common

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_INMEM", "true")
	t.Setenv("LLM_PROVIDER", "NONE")
	t.Setenv("ORACLE_MIN_DELAY", "250ms")
	t.Setenv("GAZETTE_WORKERS", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := LoadConfig()
	if !cfg.Database.InMemory || cfg.LLM.Provider != "none" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.LLM.MinDelay != 250*time.Millisecond {
		t.Fatalf("min delay = %v", cfg.LLM.MinDelay)
	}
	if cfg.Gazette.Workers != 2 {
		t.Fatalf("bad int should fall back to default, got %d", cfg.Gazette.Workers)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("level = %v", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{InMemory: true},
			LLM:      LLMConfig{Provider: "openai", MaxAttempts: 1},
			Gazette:  GazetteConfig{Workers: 1},
		}
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("openai without key should only disable the oracle: %v", err)
	}

	cases := map[string]func(*Config){
		"no dsn":         func(c *Config) { c.Database.InMemory = false },
		"bad provider":   func(c *Config) { c.LLM.Provider = "claude" },
		"vertex project": func(c *Config) { c.LLM.Provider = "vertex" },
		"attempts":       func(c *Config) { c.LLM.MaxAttempts = 0 },
		"workers":        func(c *Config) { c.Gazette.Workers = 0 },
	}
	for name, mutate := range cases {
		c := base()
		mutate(c)
		err := c.Validate()
		if !errors.Is(err, ErrInvalidInput) || ErrorCode(err) != "CONFIG_ERROR" {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("LICIT_TEST_A=from-file\nLICIT_TEST_B=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LICIT_TEST_A", "from-env")
	t.Cleanup(func() { os.Unsetenv("LICIT_TEST_B") })

	if err := LoadDotEnv(p, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if os.Getenv("LICIT_TEST_A") != "from-env" || os.Getenv("LICIT_TEST_B") != "from-file" {
		t.Fatalf("A=%q B=%q", os.Getenv("LICIT_TEST_A"), os.Getenv("LICIT_TEST_B"))
	}
}
