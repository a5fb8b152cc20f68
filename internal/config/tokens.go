package config

import (
	"context"
	"database/sql"
	"time"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// SaveToken upserts the cached token for env.
func (s *Store) SaveToken(ctx context.Context, env string, tok types.TokenInfo) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tokens (environment_name, access_token, expires_at, token_type)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (environment_name) DO UPDATE SET
				access_token = excluded.access_token,
				expires_at = excluded.expires_at,
				token_type = excluded.token_type
		`, env, tok.AccessToken, tok.ExpiresAt.UTC(), tok.TokenType)
		return wrapDBError("save token", err)
	})
}

// GetToken returns the token for env, or types.ErrNotFound if absent or
// expired — an expired row is deleted on sight rather than returned, so
// callers never have to separately check Valid() on what they get back.
func (s *Store) GetToken(ctx context.Context, env string) (types.TokenInfo, error) {
	var tok types.TokenInfo
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, expires_at, token_type FROM tokens WHERE environment_name = ?`, env).
		Scan(&tok.AccessToken, &expiresAt, &tok.TokenType)
	if err != nil {
		return types.TokenInfo{}, wrapDBError("get token", err)
	}
	tok.ExpiresAt = expiresAt

	if !tok.Valid(time.Now()) {
		_ = s.DeleteToken(ctx, env)
		return types.TokenInfo{}, wrapDBError("get token", sql.ErrNoRows)
	}
	return tok, nil
}

// DeleteToken removes any cached token for env (used on expiry and explicit logout).
func (s *Store) DeleteToken(ctx context.Context, env string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE environment_name = ?`, env)
		return wrapDBError("delete token", err)
	})
}
