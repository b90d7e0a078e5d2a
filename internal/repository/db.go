package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
)

type Config struct {
	DSN              string
	InMemory         bool
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom maps the application database settings.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		DSN:              c.DSN,
		InMemory:         c.InMemory,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// Store is an open database handle. It is never shared through a global;
// callers pass it explicitly and close it when done.
type Store struct {
	drv     *entsql.Driver
	pool    *pgxpool.Pool
	dialect string
	logger  *slog.Logger
}

// Dialect returns dialect.Postgres or dialect.SQLite.
func (s *Store) Dialect() string { return s.dialect }

// DB exposes the underlying database/sql handle.
func (s *Store) DB() *sql.DB { return s.drv.DB() }

// Open connects to Postgres, or to a private in-memory SQLite database when
// cfg.InMemory is set, and applies the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		st  *Store
		err error
	)
	if cfg.InMemory {
		st, err = openSQLite(logger)
	} else {
		st, err = openPostgres(ctx, cfg, logger)
	}
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, st); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, common.NewAppError("DB_CONFIG", "empty DSN", common.ErrInvalidInput)
	}
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database DSN", "error", err)
		return nil, common.NewAppError("DB_CONFIG", "parse DSN", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "licitaciones-tracker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError("DB_CONNECT", "open pool", errors.Join(common.ErrDatabase, err))
	}

	db := stdlib.OpenDBFromPool(pool)
	drv := entsql.OpenDB(dialect.Postgres, db)

	logger.Info("successfully connected to database")
	return &Store{drv: drv, pool: pool, dialect: dialect.Postgres, logger: logger}, nil
}

func openSQLite(logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, common.NewAppError("DB_CONNECT", "open sqlite", errors.Join(common.ErrDatabase, err))
	}
	// every connection to :memory: is its own database
	db.SetMaxOpenConns(1)
	logger.Info("using in-memory database", "dialect", dialect.SQLite)
	return &Store{drv: entsql.OpenDB(dialect.SQLite, db), dialect: dialect.SQLite, logger: logger}, nil
}

// Close closes the database connections gracefully
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.logger.Info("closing database connections")
	if s.drv != nil {
		if err := s.drv.Close(); err != nil {
			s.logger.Error("failed to close database driver", "error", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	s.logger.Info("database connections closed")
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	s.logger.Debug("pinging database")
	var err error
	if s.pool != nil {
		err = s.pool.Ping(ctx)
	} else {
		err = s.drv.DB().PingContext(ctx)
	}
	if err != nil {
		return common.NewAppError("DB_PING", "database ping failed", errors.Join(common.ErrDatabase, err))
	}
	s.logger.Debug("database ping successful")
	return nil
}

// WithStore opens a store, runs fn and always closes the store afterwards.
func WithStore(ctx context.Context, cfg Config, logger *slog.Logger, fn func(*Store) error) error {
	st, err := Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
