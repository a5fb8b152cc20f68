package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// serializableResult exists because types.OperationResult's Error is an
// `error`, which does not round-trip through encoding/json unassisted.
// types.Operation itself marshals fine since its Query field, though typed
// `any`, always holds a plain JSON-compatible value at rest.
type serializableResult struct {
	Results []serializableOperationResult `json:"results"`
}

type serializableOperationResult struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Data       map[string]any    `json:"data"`
	Error      string            `json:"error,omitempty"`
}

func marshalOperations(ops []types.Operation) (string, error) {
	b, err := json.Marshal(ops)
	return string(b), err
}

func unmarshalOperations(s string) ([]types.Operation, error) {
	var ops []types.Operation
	if s == "" {
		return ops, nil
	}
	err := json.Unmarshal([]byte(s), &ops)
	return ops, err
}

func marshalResult(r *types.QueueResult) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	sr := serializableResult{Results: make([]serializableOperationResult, len(r.Results))}
	for i, res := range r.Results {
		errStr := ""
		if res.Error != nil {
			errStr = res.Error.Error()
		}
		sr.Results[i] = serializableOperationResult{
			StatusCode: res.StatusCode, Headers: res.Headers, Data: res.Data, Error: errStr,
		}
	}
	b, err := json.Marshal(sr)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalResult(ns sql.NullString) (*types.QueueResult, error) {
	if !ns.Valid {
		return nil, nil
	}
	var sr serializableResult
	if err := json.Unmarshal([]byte(ns.String), &sr); err != nil {
		return nil, err
	}
	out := &types.QueueResult{Results: make([]types.OperationResult, len(sr.Results))}
	for i, res := range sr.Results {
		var e error
		if res.Error != "" {
			e = errString(res.Error)
		}
		out.Results[i] = types.OperationResult{
			StatusCode: res.StatusCode, Headers: res.Headers, Data: res.Data, Error: e,
		}
	}
	return out, nil
}

type errString string

func (e errString) Error() string { return string(e) }

func queueStatusString(s types.QueueStatus) string {
	return s.String()
}

func parseQueueStatus(s string) types.QueueStatus {
	switch s {
	case "running":
		return types.QueueRunning
	case "paused":
		return types.QueuePaused
	case "done":
		return types.QueueDone
	case "failed":
		return types.QueueFailed
	default:
		return types.QueuePending
	}
}

// SaveQueueItem upserts a QueueItem. StartedAt is runtime-only and never
// persisted.
func (s *Store) SaveQueueItem(ctx context.Context, item types.QueueItem) error {
	opsJSON, err := marshalOperations(item.Operations)
	if err != nil {
		return err
	}
	metaJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return err
	}
	resultJSON, err := marshalResult(item.Result)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO queue_items (id, operations_json, metadata_json, status, priority, result_json, was_interrupted, interrupted_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				operations_json = excluded.operations_json,
				metadata_json = excluded.metadata_json,
				status = excluded.status,
				priority = excluded.priority,
				result_json = excluded.result_json,
				was_interrupted = excluded.was_interrupted,
				interrupted_at = excluded.interrupted_at
		`, item.ID, opsJSON, string(metaJSON), queueStatusString(item.Status), item.Priority,
			resultJSON, item.WasInterrupted, nullableTime(item.InterruptedAt), item.CreatedAt.UTC())
		return wrapDBError("save queue item", err)
	})
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func scanQueueItem(row interface {
	Scan(dest ...any) error
}) (types.QueueItem, error) {
	var item types.QueueItem
	var opsJSON, metaJSON, statusStr string
	var resultJSON sql.NullString
	var interruptedAt sql.NullTime

	if err := row.Scan(&item.ID, &opsJSON, &metaJSON, &statusStr, &item.Priority,
		&resultJSON, &item.WasInterrupted, &interruptedAt, &item.CreatedAt); err != nil {
		return types.QueueItem{}, err
	}

	ops, err := unmarshalOperations(opsJSON)
	if err != nil {
		return types.QueueItem{}, err
	}
	item.Operations = ops

	if err := json.Unmarshal([]byte(metaJSON), &item.Metadata); err != nil {
		return types.QueueItem{}, err
	}

	result, err := unmarshalResult(resultJSON)
	if err != nil {
		return types.QueueItem{}, err
	}
	item.Result = result

	item.Status = parseQueueStatus(statusStr)
	if interruptedAt.Valid {
		t := interruptedAt.Time
		item.InterruptedAt = &t
	}
	return item, nil
}

// GetQueueItem fetches one QueueItem by id.
func (s *Store) GetQueueItem(ctx context.Context, id string) (types.QueueItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, operations_json, metadata_json, status, priority, result_json, was_interrupted, interrupted_at, created_at
		FROM queue_items WHERE id = ?
	`, id)
	item, err := scanQueueItem(row)
	if err != nil {
		return types.QueueItem{}, wrapDBError("get queue item", err)
	}
	return item, nil
}

// ListQueueItems returns all QueueItems ordered by priority ascending (0 =
// highest), then created_at ascending — the same order the scheduler
// consumes work in.
func (s *Store) ListQueueItems(ctx context.Context) ([]types.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operations_json, metadata_json, status, priority, result_json, was_interrupted, interrupted_at, created_at
		FROM queue_items ORDER BY priority ASC, created_at ASC
	`)
	if err != nil {
		return nil, wrapDBError("list queue items", err)
	}
	defer rows.Close()

	var out []types.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, wrapDBError("scan queue item", err)
		}
		out = append(out, item)
	}
	return out, wrapDBError("iterate queue items", rows.Err())
}

// UpdateQueueItemStatus updates only the status column.
func (s *Store) UpdateQueueItemStatus(ctx context.Context, id string, status types.QueueStatus) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE queue_items SET status = ? WHERE id = ?`, queueStatusString(status), id)
		if err != nil {
			return wrapDBError("update queue item status", err)
		}
		return requireAffected(res, "update queue item status")
	})
}

// UpdateQueueItemPriority updates only the priority column.
func (s *Store) UpdateQueueItemPriority(ctx context.Context, id string, priority int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE queue_items SET priority = ? WHERE id = ?`, priority, id)
		if err != nil {
			return wrapDBError("update queue item priority", err)
		}
		return requireAffected(res, "update queue item priority")
	})
}

// UpdateQueueItemResult sets the result and, if result is non-nil and the
// caller has already transitioned status, leaves status to a separate call —
// status and result are independent columns so partial-failure recording
// doesn't force a premature status transition.
func (s *Store) UpdateQueueItemResult(ctx context.Context, id string, result *types.QueueResult) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE queue_items SET result_json = ? WHERE id = ?`, resultJSON, id)
		if err != nil {
			return wrapDBError("update queue item result", err)
		}
		return requireAffected(res, "update queue item result")
	})
}

// MarkInterrupted sets was_interrupted and interrupted_at for every item
// currently Running, transitioning them to Paused — used by QueueEngine.Recover
// on startup before any new scheduling happens.
func (s *Store) MarkInterrupted(ctx context.Context, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE queue_items SET status = ?, was_interrupted = 1, interrupted_at = ?
			WHERE status = ?
		`, queueStatusString(types.QueuePaused), at.UTC(), queueStatusString(types.QueueRunning))
		return wrapDBError("mark interrupted", err)
	})
}

// ClearInterruption clears the was_interrupted/interrupted_at markers for one
// item, called once it is resumed and the operator has acknowledged the
// interruption.
func (s *Store) ClearInterruption(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE queue_items SET was_interrupted = 0, interrupted_at = NULL WHERE id = ?`, id)
		if err != nil {
			return wrapDBError("clear interruption", err)
		}
		return requireAffected(res, "clear interruption")
	})
}

// DeleteQueueItem removes one item.
func (s *Store) DeleteQueueItem(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
		if err != nil {
			return wrapDBError("delete queue item", err)
		}
		return requireAffected(res, "delete queue item")
	})
}

// ClearQueue deletes every queue item, e.g. for a "clear completed" operator
// action scoped by the caller before calling this.
func (s *Store) ClearQueue(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM queue_items`)
		return wrapDBError("clear queue", err)
	})
}

func queueFilterString(f types.QueueFilter) string {
	switch f {
	case types.QueueFilterPending:
		return "pending"
	case types.QueueFilterRunning:
		return "running"
	case types.QueueFilterPaused:
		return "paused"
	case types.QueueFilterFailed:
		return "failed"
	default:
		return "all"
	}
}

func parseQueueFilter(s string) types.QueueFilter {
	switch s {
	case "pending":
		return types.QueueFilterPending
	case "running":
		return types.QueueFilterRunning
	case "paused":
		return types.QueueFilterPaused
	case "failed":
		return types.QueueFilterFailed
	default:
		return types.QueueFilterAll
	}
}

func queueSortModeString(m types.QueueSortMode) string {
	if m == types.QueueSortCreatedAt {
		return "created_at"
	}
	return "priority"
}

func parseQueueSortMode(s string) types.QueueSortMode {
	if s == "created_at" {
		return types.QueueSortCreatedAt
	}
	return types.QueueSortPriority
}

// GetQueueSettings reads the singleton queue_settings row, seeding it with
// defaults on first access.
func (s *Store) GetQueueSettings(ctx context.Context) (types.QueueSettings, error) {
	var settings types.QueueSettings
	var filterStr, sortStr string
	err := s.db.QueryRowContext(ctx, `SELECT auto_play, max_concurrent, filter, sort_mode FROM queue_settings WHERE id = 1`).
		Scan(&settings.AutoPlay, &settings.MaxConcurrent, &filterStr, &sortStr)
	if err == sql.ErrNoRows {
		settings = types.QueueSettings{AutoPlay: false, MaxConcurrent: 3, Filter: types.QueueFilterAll, SortMode: types.QueueSortPriority}
		if err := s.SetQueueSettings(ctx, settings); err != nil {
			return types.QueueSettings{}, err
		}
		return settings, nil
	}
	if err != nil {
		return types.QueueSettings{}, wrapDBError("get queue settings", err)
	}
	settings.Filter = parseQueueFilter(filterStr)
	settings.SortMode = parseQueueSortMode(sortStr)
	return settings, nil
}

// SetQueueSettings upserts the singleton queue_settings row.
func (s *Store) SetQueueSettings(ctx context.Context, settings types.QueueSettings) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO queue_settings (id, auto_play, max_concurrent, filter, sort_mode)
			VALUES (1, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				auto_play = excluded.auto_play,
				max_concurrent = excluded.max_concurrent,
				filter = excluded.filter,
				sort_mode = excluded.sort_mode
		`, settings.AutoPlay, settings.MaxConcurrent, queueFilterString(settings.Filter), queueSortModeString(settings.SortMode))
		return wrapDBError("set queue settings", err)
	})
}
