package storeinfra

import (
	"context"

	"github.com/uptrace/bun"
)

// Schema bootstrap for the sqlite dialect (dev and test). The postgres
// schema is owned by the external migration layer and is not created here.
//
// cached_results: the partial unique index over the business key is the sole
// concurrency arbiter. It covers only non-retired rows so that an expired row
// can stay physically present while a fresh insert takes over the key.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS cached_results (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id         TEXT    NOT NULL,
		analysis_type      TEXT    NOT NULL,
		content_version    INTEGER NOT NULL,
		content_hash       TEXT    NOT NULL,
		results            TEXT,
		processing_time_ms INTEGER NOT NULL DEFAULT 0,
		tokens_used        INTEGER NOT NULL DEFAULT 0,
		model_used         TEXT    NOT NULL DEFAULT '',
		cache_hit_count    INTEGER NOT NULL DEFAULT 0,
		retired            INTEGER NOT NULL DEFAULT 0,
		created_at         TIMESTAMP NOT NULL,
		expires_at         TIMESTAMP
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_cached_results_live_key
		ON cached_results(session_id, analysis_type, content_hash)
		WHERE retired = 0;`,
	`CREATE INDEX IF NOT EXISTS idx_cached_results_session
		ON cached_results(session_id, created_at DESC);`,

	`CREATE TABLE IF NOT EXISTS steps (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id           TEXT    NOT NULL,
		content_version      INTEGER NOT NULL,
		step_number          INTEGER NOT NULL DEFAULT 0,
		step_order           INTEGER NOT NULL DEFAULT 0,
		content              TEXT,
		formula              TEXT,
		symbolic_form        TEXT,
		variables_before     TEXT,
		variables_after      TEXT,
		variables_introduced TEXT,
		is_valid             INTEGER,
		validation_details   TEXT,
		errors               TEXT,
		warnings             TEXT,
		next_step_hint       TEXT,
		start_pos            INTEGER NOT NULL DEFAULT 0,
		end_pos              INTEGER NOT NULL DEFAULT 0,
		created_at           TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_steps_scope
		ON steps(session_id, content_version, step_order);`,

	`CREATE TABLE IF NOT EXISTS tree_nodes (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id            TEXT    NOT NULL,
		content_version       INTEGER NOT NULL,
		node_id               TEXT    NOT NULL,
		node_type             TEXT    NOT NULL DEFAULT 'intermediate',
		content               TEXT,
		symbolic_form         TEXT,
		description           TEXT,
		level                 INTEGER NOT NULL DEFAULT 0,
		position              TEXT,
		depends_on            TEXT,
		required_by           TEXT,
		status                TEXT    NOT NULL DEFAULT 'incomplete',
		completion_percentage REAL,
		reasoning             TEXT,
		formula_used          TEXT,
		created_at            TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tree_nodes_scope
		ON tree_nodes(session_id, content_version, level, id);`,

	`CREATE TABLE IF NOT EXISTS debug_snapshots (
		id                     INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id             TEXT    NOT NULL,
		breakpoint_step_id     INTEGER,
		breakpoint_step_number INTEGER,
		execution_trace        TEXT,
		current_state          TEXT,
		insights               TEXT,
		warnings               TEXT,
		next_actions           TEXT,
		created_at             TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_debug_snapshots_session
		ON debug_snapshots(session_id, created_at DESC);`,
}

// InitSchema creates the sqlite tables and indexes if they do not exist.
func InitSchema(ctx context.Context, db *bun.DB) error {
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
