package config

import (
	"context"
	"database/sql"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// AddEnvironment inserts a new environment. Fails with types.ErrConflict if
// name is already taken.
func (s *Store) AddEnvironment(ctx context.Context, env types.Environment) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO environments (name, host, credential_ref, is_current) VALUES (?, ?, ?, 0)`,
			env.Name, env.Host, env.CredentialRef)
		return wrapDBError("add environment", err)
	})
}

// DeleteEnvironment removes an environment and any token cached for it.
func (s *Store) DeleteEnvironment(ctx context.Context, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE environment_name = ?`, name); err != nil {
			return wrapDBError("delete environment tokens", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM environments WHERE name = ?`, name)
		if err != nil {
			return wrapDBError("delete environment", err)
		}
		return requireAffected(res, "delete environment")
	})
}

// RenameEnvironment renames env, preserving its current/host/credential state.
func (s *Store) RenameEnvironment(ctx context.Context, oldName, newName string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE environments SET name = ? WHERE name = ?`, newName, oldName)
		if err != nil {
			return wrapDBError("rename environment", err)
		}
		if err := requireAffected(res, "rename environment"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE tokens SET environment_name = ? WHERE environment_name = ?`, newName, oldName)
		return wrapDBError("rename environment tokens", err)
	})
}

// ListEnvironments returns all environments ordered lexicographically by name.
func (s *Store) ListEnvironments(ctx context.Context) ([]types.Environment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, host, credential_ref FROM environments ORDER BY name ASC`)
	if err != nil {
		return nil, wrapDBError("list environments", err)
	}
	defer rows.Close()

	var out []types.Environment
	for rows.Next() {
		var e types.Environment
		if err := rows.Scan(&e.Name, &e.Host, &e.CredentialRef); err != nil {
			return nil, wrapDBError("scan environment", err)
		}
		out = append(out, e)
	}
	return out, wrapDBError("iterate environments", rows.Err())
}

// GetEnvironment fetches one environment by name.
func (s *Store) GetEnvironment(ctx context.Context, name string) (types.Environment, error) {
	var e types.Environment
	err := s.db.QueryRowContext(ctx, `SELECT name, host, credential_ref FROM environments WHERE name = ?`, name).
		Scan(&e.Name, &e.Host, &e.CredentialRef)
	return e, wrapDBError("get environment", err)
}

// SetCurrent designates name as the current environment, clearing the flag
// on every other row in the same transaction.
func (s *Store) SetCurrent(ctx context.Context, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE environments SET is_current = 0`); err != nil {
			return wrapDBError("clear current environment", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE environments SET is_current = 1 WHERE name = ?`, name)
		if err != nil {
			return wrapDBError("set current environment", err)
		}
		return requireAffected(res, "set current environment")
	})
}

// GetCurrent returns the environment currently designated as current.
func (s *Store) GetCurrent(ctx context.Context) (types.Environment, error) {
	var e types.Environment
	err := s.db.QueryRowContext(ctx, `SELECT name, host, credential_ref FROM environments WHERE is_current = 1`).
		Scan(&e.Name, &e.Host, &e.CredentialRef)
	return e, wrapDBError("get current environment", err)
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError(op, err)
	}
	if n == 0 {
		return wrapDBError(op, sql.ErrNoRows)
	}
	return nil
}
