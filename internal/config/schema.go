package config

import "database/sql"

// migration is one idempotent schema step. Version numbers are applied in
// ascending order inside a single transaction each, tracked in
// schema_migrations so a restart never re-applies a step that already
// succeeded.
type migration struct {
	Version int
	Name    string
	Up      func(tx *sql.Tx) error
}

var migrations = []migration{
	{1, "initial_schema", migrateInitialSchema},
	{2, "deadline_records", migrateDeadlineRecords},
}

func migrateInitialSchema(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS environments (
			name TEXT PRIMARY KEY,
			host TEXT NOT NULL,
			credential_ref TEXT NOT NULL,
			is_current INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			name TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL DEFAULT '',
			client_id TEXT NOT NULL DEFAULT '',
			client_secret TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS tokens (
			environment_name TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			token_type TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entity_mappings (
			singular TEXT PRIMARY KEY,
			plural TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS migrations (
			name TEXT PRIMARY KEY,
			source_env TEXT NOT NULL,
			target_env TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			last_used TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS comparisons (
			migration_name TEXT NOT NULL REFERENCES migrations(name),
			source_entity TEXT NOT NULL,
			target_entity TEXT NOT NULL,
			PRIMARY KEY (migration_name, source_entity, target_entity)
		)`,
		`CREATE TABLE IF NOT EXISTS field_mappings (
			migration_name TEXT NOT NULL,
			source_entity TEXT NOT NULL,
			target_entity TEXT NOT NULL,
			source_field TEXT NOT NULL,
			target_field TEXT NOT NULL,
			PRIMARY KEY (migration_name, source_entity, target_entity, source_field)
		)`,
		`CREATE TABLE IF NOT EXISTS prefix_mappings (
			migration_name TEXT NOT NULL,
			source_entity TEXT NOT NULL,
			target_entity TEXT NOT NULL,
			source_prefix TEXT NOT NULL,
			target_prefix TEXT NOT NULL,
			PRIMARY KEY (migration_name, source_entity, target_entity, source_prefix)
		)`,
		`CREATE TABLE IF NOT EXISTS examples (
			migration_name TEXT NOT NULL,
			source_entity TEXT NOT NULL,
			target_entity TEXT NOT NULL,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (migration_name, source_entity, target_entity, source_id)
		)`,
		`CREATE TABLE IF NOT EXISTS view_mappings (
			migration_name TEXT NOT NULL,
			source_entity TEXT NOT NULL,
			target_entity TEXT NOT NULL,
			kind TEXT NOT NULL, -- 'column' | 'filter' | 'sort'
			source_attribute TEXT NOT NULL,
			target_attribute TEXT NOT NULL,
			PRIMARY KEY (migration_name, source_entity, target_entity, kind, source_attribute)
		)`,
		`CREATE TABLE IF NOT EXISTS queue_items (
			id TEXT PRIMARY KEY,
			operations_json TEXT NOT NULL,
			metadata_json TEXT NOT NULL,
			status TEXT NOT NULL,
			priority INTEGER NOT NULL,
			result_json TEXT,
			was_interrupted INTEGER NOT NULL DEFAULT 0,
			interrupted_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS queue_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			auto_play INTEGER NOT NULL DEFAULT 0,
			max_concurrent INTEGER NOT NULL DEFAULT 3,
			filter TEXT NOT NULL DEFAULT 'all',
			sort_mode TEXT NOT NULL DEFAULT 'priority'
		)`,
		`CREATE TABLE IF NOT EXISTS options (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrateDeadlineRecords(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS deadline_records (
		id TEXT PRIMARY KEY,
		entity TEXT NOT NULL,
		record_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date TIMESTAMP NOT NULL,
		source TEXT NOT NULL,
		imported_at TIMESTAMP NOT NULL,
		raw_row_hash TEXT NOT NULL DEFAULT '',
		UNIQUE (entity, record_id)
	)`)
	return err
}
