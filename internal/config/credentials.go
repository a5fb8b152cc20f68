package config

import (
	"context"
	"database/sql"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

func credentialKindString(k types.CredentialKind) string {
	switch k {
	case types.CredentialUsernamePassword:
		return "username_password"
	default:
		return "username_password"
	}
}

// AddCredentialSet inserts a new named CredentialSet.
func (s *Store) AddCredentialSet(ctx context.Context, cs types.CredentialSet) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO credentials (name, kind, username, password, client_id, client_secret) VALUES (?, ?, ?, ?, ?, ?)`,
			cs.Name, credentialKindString(cs.Kind), cs.Username, cs.Password, cs.ClientID, cs.ClientSecret)
		return wrapDBError("add credential set", err)
	})
}

// DeleteCredentialSet removes a named CredentialSet. Does not cascade to
// environments referencing it — deleting a still-referenced credential set
// is a user error surfaced by the caller, not silently repaired here.
func (s *Store) DeleteCredentialSet(ctx context.Context, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, name)
		if err != nil {
			return wrapDBError("delete credential set", err)
		}
		return requireAffected(res, "delete credential set")
	})
}

// RenameCredentialSet renames a CredentialSet and cascades the new name to
// every environment currently referencing the old one, in the same
// transaction.
func (s *Store) RenameCredentialSet(ctx context.Context, oldName, newName string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE credentials SET name = ? WHERE name = ?`, newName, oldName)
		if err != nil {
			return wrapDBError("rename credential set", err)
		}
		if err := requireAffected(res, "rename credential set"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE environments SET credential_ref = ? WHERE credential_ref = ?`, newName, oldName)
		return wrapDBError("cascade credential rename", err)
	})
}

// GetCredentialSet fetches one CredentialSet by name.
func (s *Store) GetCredentialSet(ctx context.Context, name string) (types.CredentialSet, error) {
	var cs types.CredentialSet
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, kind, username, password, client_id, client_secret FROM credentials WHERE name = ?`, name).
		Scan(&cs.Name, &kind, &cs.Username, &cs.Password, &cs.ClientID, &cs.ClientSecret)
	cs.Kind = types.CredentialUsernamePassword
	return cs, wrapDBError("get credential set", err)
}

// ListCredentialSets returns all CredentialSets ordered lexicographically by name.
func (s *Store) ListCredentialSets(ctx context.Context) ([]types.CredentialSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, kind, username, password, client_id, client_secret FROM credentials ORDER BY name ASC`)
	if err != nil {
		return nil, wrapDBError("list credential sets", err)
	}
	defer rows.Close()

	var out []types.CredentialSet
	for rows.Next() {
		var cs types.CredentialSet
		var kind string
		if err := rows.Scan(&cs.Name, &kind, &cs.Username, &cs.Password, &cs.ClientID, &cs.ClientSecret); err != nil {
			return nil, wrapDBError("scan credential set", err)
		}
		cs.Kind = types.CredentialUsernamePassword
		out = append(out, cs)
	}
	return out, wrapDBError("iterate credential sets", rows.Err())
}
