package config

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// wrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows to types.ErrNotFound and sqlite's unique-constraint error to
// types.ErrConflict, so callers can test for these with errors.Is instead of
// reaching into driver-specific error types.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s: %w", op, types.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func wrapCorrupt(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, types.ErrCorrupt, err)
}
