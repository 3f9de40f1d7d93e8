package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fleetdocs/internal/logger"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_commit_reports",
		SQL: `CREATE TABLE IF NOT EXISTS commit_reports (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  session_id  TEXT        NOT NULL,
  module      TEXT        NOT NULL CHECK (module IN ('driver', 'vehicle')),
  entity_id   TEXT        NOT NULL,
  succeeded   INTEGER     NOT NULL CHECK (succeeded >= 0),
  failed      INTEGER     NOT NULL CHECK (failed >= 0),
  started_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL
);`,
	},
	{
		Name: "create_table_commit_report_items",
		SQL: `CREATE TABLE IF NOT EXISTS commit_report_items (
  report_id        UUID    NOT NULL REFERENCES commit_reports (id) ON DELETE CASCADE,
  position         INTEGER NOT NULL,
  kind             TEXT    NOT NULL,
  document_id      TEXT    NOT NULL DEFAULT '',
  document_type_id TEXT    NOT NULL DEFAULT '',
  filename         TEXT    NOT NULL DEFAULT '',
  error            TEXT    NOT NULL DEFAULT '',
  PRIMARY KEY (report_id, position)
);`,
	},
	{
		Name: "create_index_commit_reports_entity",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_commit_reports_entity ON commit_reports (module, entity_id);`,
	},
	{
		Name: "create_index_commit_reports_finished_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_commit_reports_finished_at ON commit_reports (finished_at);`,
	},
}

// EnsureMigrated creates the commit report schema unless the
// commit_reports table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, dbHost string) error {
	start := time.Now()
	log := logger.Get().With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("status", "starting").Msg("db_migration_check")

	var exists bool
	query := "SELECT to_regclass('public.commit_reports') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().Err(err).
			Str("status", "error").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("db_migration_failed")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("db_migration_skip")
		return nil
	}

	log.Info().Str("status", "in_progress").Msg("db_migration_start")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().Err(err).
				Str("status", "error").
				Str("migration_step", step.Name).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Msg("db_migration_failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("db_migration_step")
	}

	log.Info().
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("db_migration_success")
	return nil
}
