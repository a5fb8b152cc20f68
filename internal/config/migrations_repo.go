package config

import (
	"context"
	"database/sql"
	"time"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// SaveMigration upserts a SavedMigration and fully replaces its nested
// comparisons/mappings, deleting the old nested rows first in dependency
// order (view_mappings/examples/prefix/field -> comparisons) before
// reinserting, so a re-save never leaves orphaned rows from a previous
// shape of the same migration.
func (s *Store) SaveMigration(ctx context.Context, m types.SavedMigration) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO migrations (name, source_env, target_env, created_at, last_used)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET
				source_env = excluded.source_env,
				target_env = excluded.target_env,
				last_used = excluded.last_used
		`, m.Name, m.SourceEnv, m.TargetEnv, valueOrNow(m.CreatedAt, now), now)
		if err != nil {
			return wrapDBError("save migration", err)
		}

		if err := deleteNestedComparisons(ctx, tx, m.Name); err != nil {
			return err
		}

		for _, c := range m.Comparisons {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO comparisons (migration_name, source_entity, target_entity) VALUES (?, ?, ?)
			`, m.Name, c.SourceEntity, c.TargetEntity); err != nil {
				return wrapDBError("save comparison", err)
			}
			if err := saveComparisonChildren(ctx, tx, m.Name, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func valueOrNow(t time.Time, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func saveComparisonChildren(ctx context.Context, tx *sql.Tx, migrationName string, c types.SavedComparison) error {
	for _, fm := range c.FieldMappings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO field_mappings (migration_name, source_entity, target_entity, source_field, target_field)
			VALUES (?, ?, ?, ?, ?)
		`, migrationName, c.SourceEntity, c.TargetEntity, fm.SourceField, fm.TargetField); err != nil {
			return wrapDBError("save field mapping", err)
		}
	}
	for _, pm := range c.PrefixMappings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO prefix_mappings (migration_name, source_entity, target_entity, source_prefix, target_prefix)
			VALUES (?, ?, ?, ?, ?)
		`, migrationName, c.SourceEntity, c.TargetEntity, pm.SourcePrefix, pm.TargetPrefix); err != nil {
			return wrapDBError("save prefix mapping", err)
		}
	}
	for _, ex := range c.Examples {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO examples (migration_name, source_entity, target_entity, source_id, target_id, label)
			VALUES (?, ?, ?, ?, ?, ?)
		`, migrationName, c.SourceEntity, c.TargetEntity, ex.SourceID, ex.TargetID, ex.Label); err != nil {
			return wrapDBError("save example", err)
		}
	}
	for _, vc := range c.ViewColumns {
		if err := insertViewMapping(ctx, tx, migrationName, c, "column", vc.SourceColumn, vc.TargetColumn); err != nil {
			return err
		}
	}
	for _, vf := range c.ViewFilters {
		if err := insertViewMapping(ctx, tx, migrationName, c, "filter", vf.SourceAttribute, vf.TargetAttribute); err != nil {
			return err
		}
	}
	for _, vs := range c.ViewSorts {
		if err := insertViewMapping(ctx, tx, migrationName, c, "sort", vs.SourceAttribute, vs.TargetAttribute); err != nil {
			return err
		}
	}
	return nil
}

func insertViewMapping(ctx context.Context, tx *sql.Tx, migrationName string, c types.SavedComparison, kind, src, tgt string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO view_mappings (migration_name, source_entity, target_entity, kind, source_attribute, target_attribute)
		VALUES (?, ?, ?, ?, ?, ?)
	`, migrationName, c.SourceEntity, c.TargetEntity, kind, src, tgt)
	return wrapDBError("save view mapping", err)
}

// deleteNestedComparisons deletes all child rows for a migration in
// dependency order: view_mappings/examples/prefix_mappings/field_mappings
// first, then comparisons themselves.
func deleteNestedComparisons(ctx context.Context, tx *sql.Tx, migrationName string) error {
	tables := []string{"view_mappings", "examples", "prefix_mappings", "field_mappings", "comparisons"}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE migration_name = ?`, migrationName); err != nil {
			return wrapDBError("delete nested "+table, err)
		}
	}
	return nil
}

// ListMigrations returns all SavedMigrations (with nested comparisons)
// ordered lexicographically by name.
func (s *Store) ListMigrations(ctx context.Context) ([]types.SavedMigration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM migrations ORDER BY name ASC`)
	if err != nil {
		return nil, wrapDBError("list migrations", err)
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, wrapDBError("scan migration name", err)
		}
		names = append(names, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("iterate migrations", err)
	}

	out := make([]types.SavedMigration, 0, len(names))
	for _, n := range names {
		m, err := s.GetMigration(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// GetMigration fetches one SavedMigration with all nested comparisons/mappings.
func (s *Store) GetMigration(ctx context.Context, name string) (types.SavedMigration, error) {
	var m types.SavedMigration
	m.Name = name
	err := s.db.QueryRowContext(ctx, `SELECT source_env, target_env, created_at, last_used FROM migrations WHERE name = ?`, name).
		Scan(&m.SourceEnv, &m.TargetEnv, &m.CreatedAt, &m.LastUsed)
	if err != nil {
		return types.SavedMigration{}, wrapDBError("get migration", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_entity, target_entity FROM comparisons WHERE migration_name = ? ORDER BY source_entity, target_entity`, name)
	if err != nil {
		return types.SavedMigration{}, wrapDBError("list comparisons", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c types.SavedComparison
		if err := rows.Scan(&c.SourceEntity, &c.TargetEntity); err != nil {
			return types.SavedMigration{}, wrapDBError("scan comparison", err)
		}
		if err := s.loadComparisonChildren(ctx, name, &c); err != nil {
			return types.SavedMigration{}, err
		}
		m.Comparisons = append(m.Comparisons, c)
	}
	return m, wrapDBError("iterate comparisons", rows.Err())
}

func (s *Store) loadComparisonChildren(ctx context.Context, migrationName string, c *types.SavedComparison) error {
	fmRows, err := s.db.QueryContext(ctx, `
		SELECT source_field, target_field FROM field_mappings
		WHERE migration_name = ? AND source_entity = ? AND target_entity = ? ORDER BY source_field
	`, migrationName, c.SourceEntity, c.TargetEntity)
	if err != nil {
		return wrapDBError("list field mappings", err)
	}
	for fmRows.Next() {
		var fm types.FieldMapping
		fm.SourceEntity, fm.TargetEntity = c.SourceEntity, c.TargetEntity
		if err := fmRows.Scan(&fm.SourceField, &fm.TargetField); err != nil {
			fmRows.Close()
			return wrapDBError("scan field mapping", err)
		}
		c.FieldMappings = append(c.FieldMappings, fm)
	}
	fmRows.Close()
	if err := fmRows.Err(); err != nil {
		return wrapDBError("iterate field mappings", err)
	}

	pmRows, err := s.db.QueryContext(ctx, `
		SELECT source_prefix, target_prefix FROM prefix_mappings
		WHERE migration_name = ? AND source_entity = ? AND target_entity = ? ORDER BY source_prefix
	`, migrationName, c.SourceEntity, c.TargetEntity)
	if err != nil {
		return wrapDBError("list prefix mappings", err)
	}
	for pmRows.Next() {
		var pm types.PrefixMapping
		pm.SourceEntity, pm.TargetEntity = c.SourceEntity, c.TargetEntity
		if err := pmRows.Scan(&pm.SourcePrefix, &pm.TargetPrefix); err != nil {
			pmRows.Close()
			return wrapDBError("scan prefix mapping", err)
		}
		c.PrefixMappings = append(c.PrefixMappings, pm)
	}
	pmRows.Close()
	if err := pmRows.Err(); err != nil {
		return wrapDBError("iterate prefix mappings", err)
	}

	exRows, err := s.db.QueryContext(ctx, `
		SELECT source_id, target_id, label FROM examples
		WHERE migration_name = ? AND source_entity = ? AND target_entity = ? ORDER BY source_id
	`, migrationName, c.SourceEntity, c.TargetEntity)
	if err != nil {
		return wrapDBError("list examples", err)
	}
	for exRows.Next() {
		var ex types.ExamplePair
		ex.SourceEntity, ex.TargetEntity = c.SourceEntity, c.TargetEntity
		if err := exRows.Scan(&ex.SourceID, &ex.TargetID, &ex.Label); err != nil {
			exRows.Close()
			return wrapDBError("scan example", err)
		}
		c.Examples = append(c.Examples, ex)
	}
	exRows.Close()
	if err := exRows.Err(); err != nil {
		return wrapDBError("iterate examples", err)
	}

	vmRows, err := s.db.QueryContext(ctx, `
		SELECT kind, source_attribute, target_attribute FROM view_mappings
		WHERE migration_name = ? AND source_entity = ? AND target_entity = ? ORDER BY kind, source_attribute
	`, migrationName, c.SourceEntity, c.TargetEntity)
	if err != nil {
		return wrapDBError("list view mappings", err)
	}
	defer vmRows.Close()
	for vmRows.Next() {
		var kind, src, tgt string
		if err := vmRows.Scan(&kind, &src, &tgt); err != nil {
			return wrapDBError("scan view mapping", err)
		}
		switch kind {
		case "column":
			c.ViewColumns = append(c.ViewColumns, types.ViewColumnMapping{SourceColumn: src, TargetColumn: tgt})
		case "filter":
			c.ViewFilters = append(c.ViewFilters, types.ViewFilterMapping{SourceAttribute: src, TargetAttribute: tgt})
		case "sort":
			c.ViewSorts = append(c.ViewSorts, types.ViewSortMapping{SourceAttribute: src, TargetAttribute: tgt})
		}
	}
	return wrapDBError("iterate view mappings", vmRows.Err())
}

// DeleteMigration deletes a migration and its nested comparisons in
// dependency order.
func (s *Store) DeleteMigration(ctx context.Context, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteNestedComparisons(ctx, tx, name); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM migrations WHERE name = ?`, name)
		if err != nil {
			return wrapDBError("delete migration", err)
		}
		return requireAffected(res, "delete migration")
	})
}

// RenameMigration renames a migration and cascades the new name to every
// nested table.
func (s *Store) RenameMigration(ctx context.Context, oldName, newName string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE migrations SET name = ? WHERE name = ?`, newName, oldName)
		if err != nil {
			return wrapDBError("rename migration", err)
		}
		if err := requireAffected(res, "rename migration"); err != nil {
			return err
		}
		for _, table := range []string{"comparisons", "field_mappings", "prefix_mappings", "examples", "view_mappings"} {
			if _, err := tx.ExecContext(ctx, `UPDATE `+table+` SET migration_name = ? WHERE migration_name = ?`, newName, oldName); err != nil {
				return wrapDBError("cascade rename "+table, err)
			}
		}
		return nil
	})
}
