package config

import (
	"context"
	"database/sql"
	"strconv"
)

// optionDefaults is the compiled-in defaulting registry: Get falls back to
// these when a key has never been Set.
var optionDefaults = map[string]string{
	"queue.max_concurrent":            "3",
	"queue.auto_play":                 "false",
	"rate_limit.requests_per_minute":  "600",
	"rate_limit.burst":                "10",
	"retry.max_attempts":              "4",
	"retry.base_delay_ms":             "200",
	"retry.max_delay_ms":              "10000",
	"retry.backoff_multiplier":        "2",
	"retry.jitter":                    "true",
}

// GetOption returns the raw string value for key, falling back to the
// compiled-in default (or "" if key is unknown) when unset.
func (s *Store) GetOption(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM options WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return optionDefaults[key], nil
	}
	return value, wrapDBError("get option", err)
}

// GetOptionBool / GetOptionInt / GetOptionFloat parse the stored or default
// value as the requested type.
func (s *Store) GetOptionBool(ctx context.Context, key string) (bool, error) {
	v, err := s.GetOption(ctx, key)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(v)
}

func (s *Store) GetOptionInt(ctx context.Context, key string) (int, error) {
	v, err := s.GetOption(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (s *Store) GetOptionFloat(ctx context.Context, key string) (float64, error) {
	v, err := s.GetOption(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(v, 64)
}

// SetOption upserts a typed option value.
func (s *Store) SetOption(ctx context.Context, key, value string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO options (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value
		`, key, value)
		return wrapDBError("set option", err)
	})
}
