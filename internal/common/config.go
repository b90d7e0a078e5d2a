package common

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	LLM       LLMConfig
	Vertex    VertexConfig
	Redis     RedisConfig
	Gazette   GazetteConfig
	Artifacts ArtifactConfig
	// MappingsDir overrides the embedded per-source mapping tables when set.
	MappingsDir string
	LogLevel    slog.Level
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	InMemory         bool
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds daemon-related configuration
type ServerConfig struct {
	GRPCAddr     string
	InboxDir     string
	PollInterval time.Duration
}

// LLMConfig holds extraction-oracle configuration
type LLMConfig struct {
	Provider    string // openai | vertex | none
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	MaxChars    int
	MaxAttempts int
	MinDelay    time.Duration
	Lenient     bool
}

// VertexConfig holds Vertex AI (Gemini) configuration
type VertexConfig struct {
	ProjectID string
	Region    string
}

// RedisConfig holds the oracle response cache configuration; empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// GazetteConfig holds segmentation and extraction tuning
type GazetteConfig struct {
	IndexScanPages    int
	MinBlockChars     int
	MinRequiredFields int
	Workers           int
}

// ArtifactConfig selects where per-document JSON artifacts go
type ArtifactConfig struct {
	Dir      string
	S3Bucket string
	S3Prefix string
	S3Region string
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return WrapError(err, "load "+p)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			InMemory:         getEnvAsBool("DB_INMEM", false),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:     getEnv("GRPC_ADDR", ":8080"),
			InboxDir:     getEnv("INBOX_DIR", "./inbox"),
			PollInterval: getEnvAsDuration("POLL_INTERVAL", 15*time.Minute),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			MaxChars:    getEnvAsInt("ORACLE_MAX_CHARS", 4000),
			MaxAttempts: getEnvAsInt("ORACLE_MAX_ATTEMPTS", 2),
			MinDelay:    getEnvAsDuration("ORACLE_MIN_DELAY", 1500*time.Millisecond),
			Lenient:     getEnvAsBool("ORACLE_LENIENT", true),
		},
		Vertex: VertexConfig{
			ProjectID: getEnv("GOOGLE_CLOUD_PROJECT_ID", ""),
			Region:    getEnv("VERTEX_AI_REGION", "us-central1"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("ORACLE_CACHE_TTL", 30*24*time.Hour),
		},
		Gazette: GazetteConfig{
			IndexScanPages:    getEnvAsInt("GAZETTE_INDEX_SCAN_PAGES", 10),
			MinBlockChars:     getEnvAsInt("GAZETTE_MIN_BLOCK_CHARS", 60),
			MinRequiredFields: getEnvAsInt("GAZETTE_MIN_REQUIRED_FIELDS", 3),
			Workers:           getEnvAsInt("GAZETTE_WORKERS", 2),
		},
		Artifacts: ArtifactConfig{
			Dir:      getEnv("ARTIFACT_DIR", "./artifacts"),
			S3Bucket: getEnv("ARTIFACT_S3_BUCKET", ""),
			S3Prefix: getEnv("ARTIFACT_S3_PREFIX", "licitaciones/"),
			S3Region: getEnv("AWS_REGION", ""),
		},
		MappingsDir: getEnv("MAPPINGS_DIR", ""),
		LogLevel:    getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(value)); err == nil {
			return lvl
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" && !c.Database.InMemory {
		return NewAppError("CONFIG_ERROR", "DB_URL is required unless DB_INMEM is set", ErrInvalidInput)
	}
	v := NewValidator().
		Field("LLM_PROVIDER", c.LLM.Provider, OneOf("openai", "vertex", "none"))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	// a missing OpenAI key only disables the oracle tier
	if c.LLM.Provider == "vertex" && c.Vertex.ProjectID == "" {
		return NewAppError("CONFIG_ERROR", "GOOGLE_CLOUD_PROJECT_ID is required for LLM_PROVIDER=vertex", ErrInvalidInput)
	}
	if c.LLM.MaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "ORACLE_MAX_ATTEMPTS must be >= 1", ErrInvalidInput)
	}
	if c.Gazette.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "GAZETTE_WORKERS must be >= 1", ErrInvalidInput)
	}
	return nil
}
