package config

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

func deadlineSourceString(s types.DeadlineSource) string {
	return s.String()
}

func parseDeadlineSource(s string) types.DeadlineSource {
	if s == "manual" {
		return types.DeadlineFromManualEntry
	}
	return types.DeadlineFromSpreadsheet
}

// UpsertDeadlineRecord inserts a new DeadlineRecord or updates the existing
// one keyed by (Entity, RecordID). Returns the persisted record's ID and
// whether a row was actually changed — the idempotence check a caller needs
// to report "N ingested, M unchanged".
func (s *Store) UpsertDeadlineRecord(ctx context.Context, rec types.DeadlineRecord) (id string, changed bool, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var existingID, existingHash string
		scanErr := tx.QueryRowContext(ctx, `
			SELECT id, raw_row_hash FROM deadline_records WHERE entity = ? AND record_id = ?
		`, rec.Entity, rec.RecordID).Scan(&existingID, &existingHash)

		switch {
		case scanErr == sql.ErrNoRows:
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			id = rec.ID
			changed = true
			_, execErr := tx.ExecContext(ctx, `
				INSERT INTO deadline_records (id, entity, record_id, description, due_date, source, imported_at, raw_row_hash)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, rec.ID, rec.Entity, rec.RecordID, rec.Description, rec.DueDate.UTC(),
				deadlineSourceString(rec.Source), rec.ImportedAt.UTC(), rec.RawRowHash)
			return wrapDBError("insert deadline record", execErr)

		case scanErr != nil:
			return wrapDBError("lookup deadline record", scanErr)

		default:
			id = existingID
			if existingHash == rec.RawRowHash {
				changed = false
				return nil
			}
			changed = true
			_, execErr := tx.ExecContext(ctx, `
				UPDATE deadline_records
				SET description = ?, due_date = ?, source = ?, imported_at = ?, raw_row_hash = ?
				WHERE id = ?
			`, rec.Description, rec.DueDate.UTC(), deadlineSourceString(rec.Source), rec.ImportedAt.UTC(), rec.RawRowHash, existingID)
			return wrapDBError("update deadline record", execErr)
		}
	})
	return id, changed, err
}

// GetDeadlineRecord fetches one record by (entity, recordID).
func (s *Store) GetDeadlineRecord(ctx context.Context, entity, recordID string) (types.DeadlineRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity, record_id, description, due_date, source, imported_at, raw_row_hash
		FROM deadline_records WHERE entity = ? AND record_id = ?
	`, entity, recordID)
	rec, err := scanDeadlineRecord(row)
	if err != nil {
		return types.DeadlineRecord{}, wrapDBError("get deadline record", err)
	}
	return rec, nil
}

// ListDeadlineRecords returns every record ordered by due_date ascending,
// soonest first.
func (s *Store) ListDeadlineRecords(ctx context.Context) ([]types.DeadlineRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity, record_id, description, due_date, source, imported_at, raw_row_hash
		FROM deadline_records ORDER BY due_date ASC
	`)
	if err != nil {
		return nil, wrapDBError("list deadline records", err)
	}
	defer rows.Close()

	var out []types.DeadlineRecord
	for rows.Next() {
		rec, err := scanDeadlineRecord(rows)
		if err != nil {
			return nil, wrapDBError("scan deadline record", err)
		}
		out = append(out, rec)
	}
	return out, wrapDBError("iterate deadline records", rows.Err())
}

// DeleteDeadlineRecord removes one record by id.
func (s *Store) DeleteDeadlineRecord(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM deadline_records WHERE id = ?`, id)
		if err != nil {
			return wrapDBError("delete deadline record", err)
		}
		return requireAffected(res, "delete deadline record")
	})
}

func scanDeadlineRecord(row interface {
	Scan(dest ...any) error
}) (types.DeadlineRecord, error) {
	var rec types.DeadlineRecord
	var sourceStr string
	if err := row.Scan(&rec.ID, &rec.Entity, &rec.RecordID, &rec.Description,
		&rec.DueDate, &sourceStr, &rec.ImportedAt, &rec.RawRowHash); err != nil {
		return types.DeadlineRecord{}, err
	}
	rec.Source = parseDeadlineSource(sourceStr)
	return rec, nil
}
