package repository

import (
	"context"
	"errors"

	"entgo.io/ent/dialect"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
)

const tableLicitaciones = "licitaciones"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS licitaciones (
	id               UUID PRIMARY KEY,
	source           TEXT NOT NULL,
	content_hash     CHAR(64) NOT NULL,
	procedure_number TEXT,
	source_uuid      TEXT,
	title            TEXT,
	description      TEXT,
	buying_entity    TEXT,
	buying_unit      TEXT,
	procedure_type   TEXT,
	contracting_type TEXT,
	procedure_character TEXT,
	status           TEXT,
	published_on     DATE,
	opening_on       DATE,
	award_on         DATE,
	clarification_on DATE,
	estimated_amount NUMERIC(18,2),
	amount_known     BOOLEAN NOT NULL DEFAULT FALSE,
	currency         CHAR(3),
	awarded_supplier TEXT,
	original_url     TEXT,
	captured_at      TIMESTAMPTZ NOT NULL,
	federal_entity   TEXT,
	municipality     TEXT,
	raw_payload      JSONB NOT NULL DEFAULT '{}'::jsonb,
	extra            JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS licitaciones_source_content_hash_key ON licitaciones (source, content_hash)`,
	`CREATE INDEX IF NOT EXISTS licitaciones_published_on_idx ON licitaciones (published_on)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS licitaciones (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	content_hash     TEXT NOT NULL,
	procedure_number TEXT,
	source_uuid      TEXT,
	title            TEXT,
	description      TEXT,
	buying_entity    TEXT,
	buying_unit      TEXT,
	procedure_type   TEXT,
	contracting_type TEXT,
	procedure_character TEXT,
	status           TEXT,
	published_on     TEXT,
	opening_on       TEXT,
	award_on         TEXT,
	clarification_on TEXT,
	estimated_amount REAL,
	amount_known     INTEGER NOT NULL DEFAULT 0,
	currency         TEXT,
	awarded_supplier TEXT,
	original_url     TEXT,
	captured_at      TEXT NOT NULL,
	federal_entity   TEXT,
	municipality     TEXT,
	raw_payload      TEXT NOT NULL DEFAULT '{}',
	extra            TEXT NOT NULL DEFAULT '{}',
	created_at       TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS licitaciones_source_content_hash_key ON licitaciones (source, content_hash)`,
	`CREATE INDEX IF NOT EXISTS licitaciones_published_on_idx ON licitaciones (published_on)`,
}

// Migrate creates the licitaciones table and its indexes when missing.
func Migrate(ctx context.Context, s *Store) error {
	stmts := postgresSchema
	if s.dialect == dialect.SQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			s.logger.Error("repository.migrate.failed", "error", err)
			return common.NewAppError("DB_MIGRATE", "apply schema", errors.Join(common.ErrDatabase, err))
		}
	}
	s.logger.Debug("repository.migrate.done", "dialect", s.dialect, "statements", len(stmts))
	return nil
}
