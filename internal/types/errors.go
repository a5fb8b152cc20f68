// Package types holds the data model shared across the store, client and
// TUI layers: environments, credentials, tokens, mappings, migrations,
// queue items, operations and comparison hierarchy nodes.
package types

import "errors"

// Sentinel errors returned by ConfigStore repositories. Callers compare with
// errors.Is; wrapping preserves the operation context added by each call site.
var (
	// ErrNotFound indicates a named row is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a unique-name collision on insert or rename.
	ErrConflict = errors.New("conflict")
	// ErrCorrupt indicates a blob column failed to deserialize.
	ErrCorrupt = errors.New("corrupt record")
)
