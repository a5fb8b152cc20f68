package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

func TestUpsertDeadlineRecordInsertsThenUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	id, changed, err := s.UpsertDeadlineRecord(ctx, types.DeadlineRecord{
		Entity: "account", RecordID: "rec-1", Description: "renew", DueDate: due,
		Source: types.DeadlineFromSpreadsheet, ImportedAt: time.Now(), RawRowHash: "hash-1",
	})
	require.NoError(t, err)
	require.True(t, changed)
	require.NotEmpty(t, id)

	rec, err := s.GetDeadlineRecord(ctx, "account", "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "renew", rec.Description)
	assert.Equal(t, "hash-1", rec.RawRowHash)

	newDue := due.AddDate(0, 0, 7)
	updatedID, changed, err := s.UpsertDeadlineRecord(ctx, types.DeadlineRecord{
		Entity: "account", RecordID: "rec-1", Description: "renew", DueDate: newDue,
		Source: types.DeadlineFromSpreadsheet, ImportedAt: time.Now(), RawRowHash: "hash-2",
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, id, updatedID, "expected update keyed on (entity, record_id), not a new row")

	rec, err = s.GetDeadlineRecord(ctx, "account", "rec-1")
	require.NoError(t, err)
	assert.True(t, rec.DueDate.Equal(newDue))
}

func TestUpsertDeadlineRecordUnchangedHashIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := types.DeadlineRecord{
		Entity: "contact", RecordID: "rec-9", Description: "call back", DueDate: time.Now(),
		Source: types.DeadlineFromSpreadsheet, ImportedAt: time.Now(), RawRowHash: "same-hash",
	}
	_, changed, err := s.UpsertDeadlineRecord(ctx, rec)
	require.NoError(t, err)
	require.True(t, changed)

	_, changed, err = s.UpsertDeadlineRecord(ctx, rec)
	require.NoError(t, err)
	assert.False(t, changed, "re-ingesting an unchanged raw_row_hash must be a no-op")
}

func TestListDeadlineRecordsOrdersByDueDateAscending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	later := time.Now().AddDate(0, 0, 30)
	sooner := time.Now().AddDate(0, 0, 1)

	_, _, err := s.UpsertDeadlineRecord(ctx, types.DeadlineRecord{
		Entity: "account", RecordID: "a", DueDate: later, RawRowHash: "h1", ImportedAt: time.Now(),
	})
	require.NoError(t, err)
	_, _, err = s.UpsertDeadlineRecord(ctx, types.DeadlineRecord{
		Entity: "account", RecordID: "b", DueDate: sooner, RawRowHash: "h2", ImportedAt: time.Now(),
	})
	require.NoError(t, err)

	recs, err := s.ListDeadlineRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].RecordID, "expected the sooner due date first")
}
