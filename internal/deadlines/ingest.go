package deadlines

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// store is the subset of *config.Store this package depends on, narrowed to
// keep ingest.go testable against a fake without importing internal/config
// (which would otherwise be a one-way dependency edge this package doesn't
// need the rest of).
type store interface {
	UpsertDeadlineRecord(ctx context.Context, rec types.DeadlineRecord) (id string, changed bool, err error)
}

// Ingestor reconciles pre-parsed DeadlineRows into persisted
// DeadlineRecords. Parsing the spreadsheet itself is out of scope: rows
// arrive already extracted by an external collaborator.
type Ingestor struct {
	store store
	now   func() time.Time
}

func NewIngestor(s store) *Ingestor {
	return &Ingestor{store: s, now: time.Now}
}

// Result summarizes one IngestRows call: re-ingesting unchanged rows
// produces zero mutations.
type Result struct {
	Changed   int
	Unchanged int
}

// IngestRows reconciles rows into deadline_records, keyed by
// (Entity, RecordID), idempotent on each row's content hash.
func (ing *Ingestor) IngestRows(ctx context.Context, rows []types.DeadlineRow) (Result, error) {
	var res Result
	importedAt := ing.now()
	for _, row := range rows {
		hash := hashRow(row)
		_, changed, err := ing.store.UpsertDeadlineRecord(ctx, types.DeadlineRecord{
			Entity:      row.Entity,
			RecordID:    row.RecordID,
			Description: row.Description,
			DueDate:     row.DueDate,
			Source:      types.DeadlineFromSpreadsheet,
			ImportedAt:  importedAt,
			RawRowHash:  hash,
		})
		if err != nil {
			return res, fmt.Errorf("ingest row %s/%s: %w", row.Entity, row.RecordID, err)
		}
		if changed {
			res.Changed++
		} else {
			res.Unchanged++
		}
	}
	return res, nil
}

// hashRow derives the idempotence key from every field that constitutes a
// meaningful content change; RecordID/Entity are excluded since they are
// already the lookup key, not part of "did this row change".
func hashRow(row types.DeadlineRow) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", row.Description, row.DueDate.UTC().Format(time.RFC3339))
	return hex.EncodeToString(h.Sum(nil))
}

// ManualSetDueDate records an operator-entered due date for one
// (entity, recordID) pair, sourced as DeadlineFromManualEntry rather than
// DeadlineFromSpreadsheet. dueDate is expected already resolved from
// natural language by ParseDueDate.
func (ing *Ingestor) ManualSetDueDate(ctx context.Context, entity, recordID, description string, dueDate time.Time) (id string, err error) {
	id, _, err = ing.store.UpsertDeadlineRecord(ctx, types.DeadlineRecord{
		Entity:      entity,
		RecordID:    recordID,
		Description: description,
		DueDate:     dueDate,
		Source:      types.DeadlineFromManualEntry,
		ImportedAt:  ing.now(),
		RawRowHash:  hashRow(types.DeadlineRow{Description: description, DueDate: dueDate}),
	})
	if err != nil {
		return "", fmt.Errorf("set manual due date for %s/%s: %w", entity, recordID, err)
	}
	return id, nil
}
