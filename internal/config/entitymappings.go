package config

import (
	"context"
	"database/sql"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// AddEntityMapping upserts the plural collection name for a singular entity.
func (s *Store) AddEntityMapping(ctx context.Context, m types.EntityMapping) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entity_mappings (singular, plural) VALUES (?, ?)
			ON CONFLICT (singular) DO UPDATE SET plural = excluded.plural
		`, m.Singular, m.Plural)
		return wrapDBError("add entity mapping", err)
	})
}

// GetEntityMapping resolves singular -> plural.
func (s *Store) GetEntityMapping(ctx context.Context, singular string) (types.EntityMapping, error) {
	var m types.EntityMapping
	m.Singular = singular
	err := s.db.QueryRowContext(ctx, `SELECT plural FROM entity_mappings WHERE singular = ?`, singular).Scan(&m.Plural)
	return m, wrapDBError("get entity mapping", err)
}

// Plural resolves singular -> plural the same way GetEntityMapping does, in
// the shape operation.PluralResolver expects — *Store satisfies that
// interface structurally without either package importing the other.
func (s *Store) Plural(ctx context.Context, singular string) (string, error) {
	m, err := s.GetEntityMapping(ctx, singular)
	if err != nil {
		return "", err
	}
	return m.Plural, nil
}

// ListEntityMappings returns all mappings ordered lexicographically by singular name.
func (s *Store) ListEntityMappings(ctx context.Context) ([]types.EntityMapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT singular, plural FROM entity_mappings ORDER BY singular ASC`)
	if err != nil {
		return nil, wrapDBError("list entity mappings", err)
	}
	defer rows.Close()

	var out []types.EntityMapping
	for rows.Next() {
		var m types.EntityMapping
		if err := rows.Scan(&m.Singular, &m.Plural); err != nil {
			return nil, wrapDBError("scan entity mapping", err)
		}
		out = append(out, m)
	}
	return out, wrapDBError("iterate entity mappings", rows.Err())
}
