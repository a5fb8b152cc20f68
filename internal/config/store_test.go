package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnvironmentCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AddCredentialSet(ctx, types.CredentialSet{Name: "default", Kind: types.CredentialUsernamePassword}))
	require.NoError(t, s.AddEnvironment(ctx, types.Environment{Name: "dev", Host: "dev.crm.dynamics.com", CredentialRef: "default"}))

	env, err := s.GetEnvironment(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev.crm.dynamics.com", env.Host)

	require.NoError(t, s.SetCurrent(ctx, "dev"))
	cur, err := s.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dev", cur.Name)

	require.NoError(t, s.RenameEnvironment(ctx, "dev", "staging"))
	_, err = s.GetEnvironment(ctx, "dev")
	assert.True(t, errors.Is(err, types.ErrNotFound))

	require.NoError(t, s.DeleteEnvironment(ctx, "staging"))
	_, err = s.GetEnvironment(ctx, "staging")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestAddEnvironmentDuplicateConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.AddCredentialSet(ctx, types.CredentialSet{Name: "default"}))
	require.NoError(t, s.AddEnvironment(ctx, types.Environment{Name: "dev", Host: "a", CredentialRef: "default"}))
	err := s.AddEnvironment(ctx, types.Environment{Name: "dev", Host: "b", CredentialRef: "default"})
	assert.True(t, errors.Is(err, types.ErrConflict))
}

func TestTokenExpiryIsNotReturned(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	expired := types.TokenInfo{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Minute), TokenType: "Bearer"}
	require.NoError(t, s.SaveToken(ctx, "dev", expired))

	_, err := s.GetToken(ctx, "dev")
	assert.True(t, errors.Is(err, types.ErrNotFound))

	fresh := types.TokenInfo{AccessToken: "tok2", ExpiresAt: time.Now().Add(time.Hour), TokenType: "Bearer"}
	require.NoError(t, s.SaveToken(ctx, "dev", fresh))
	got, err := s.GetToken(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, "tok2", got.AccessToken)
}

func TestOptionsFallBackToDefault(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.GetOptionInt(ctx, "queue.max_concurrent")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.SetOption(ctx, "queue.max_concurrent", "7"))
	n, err = s.GetOptionInt(ctx, "queue.max_concurrent")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestMigrationSaveAndNestedCascadeDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mig := types.SavedMigration{
		Name: "m1", SourceEnv: "dev", TargetEnv: "prod",
		Comparisons: []types.SavedComparison{
			{
				SourceEntity: "account", TargetEntity: "account",
				FieldMappings:  []types.FieldMapping{{SourceField: "cgk_name", TargetField: "nrq_name"}},
				PrefixMappings: []types.PrefixMapping{{SourcePrefix: "cgk_", TargetPrefix: "nrq_"}},
				Examples:       []types.ExamplePair{{SourceID: "s1", TargetID: "t1", Label: "example"}},
				ViewColumns:    []types.ViewColumnMapping{{SourceColumn: "name", TargetColumn: "name"}},
			},
		},
	}
	require.NoError(t, s.SaveMigration(ctx, mig))

	got, err := s.GetMigration(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got.Comparisons, 1)
	assert.Len(t, got.Comparisons[0].FieldMappings, 1)
	assert.Len(t, got.Comparisons[0].PrefixMappings, 1)
	assert.Len(t, got.Comparisons[0].Examples, 1)
	assert.Len(t, got.Comparisons[0].ViewColumns, 1)

	require.NoError(t, s.DeleteMigration(ctx, "m1"))
	_, err = s.GetMigration(ctx, "m1")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestMigrationSaveReplacesNestedRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mig := types.SavedMigration{
		Name: "m1", SourceEnv: "dev", TargetEnv: "prod",
		Comparisons: []types.SavedComparison{
			{SourceEntity: "account", TargetEntity: "account",
				FieldMappings: []types.FieldMapping{{SourceField: "a", TargetField: "b"}}},
		},
	}
	require.NoError(t, s.SaveMigration(ctx, mig))

	mig.Comparisons[0].FieldMappings = []types.FieldMapping{{SourceField: "c", TargetField: "d"}}
	require.NoError(t, s.SaveMigration(ctx, mig))

	got, err := s.GetMigration(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got.Comparisons[0].FieldMappings, 1)
	assert.Equal(t, "c", got.Comparisons[0].FieldMappings[0].SourceField)
}

func TestQueueOrderingByPriorityThenCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Now().UTC()
	require.NoError(t, s.SaveQueueItem(ctx, types.QueueItem{ID: "a", Priority: 1, CreatedAt: base, Status: types.QueuePending}))
	require.NoError(t, s.SaveQueueItem(ctx, types.QueueItem{ID: "b", Priority: 0, CreatedAt: base.Add(time.Second), Status: types.QueuePending}))
	require.NoError(t, s.SaveQueueItem(ctx, types.QueueItem{ID: "c", Priority: 0, CreatedAt: base, Status: types.QueuePending}))

	items, err := s.ListQueueItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{items[0].ID, items[1].ID, items[2].ID})
}

func TestQueueRecoverMarksRunningAsPaused(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveQueueItem(ctx, types.QueueItem{ID: "a", Status: types.QueueRunning, CreatedAt: time.Now()}))
	require.NoError(t, s.SaveQueueItem(ctx, types.QueueItem{ID: "b", Status: types.QueuePending, CreatedAt: time.Now()}))

	require.NoError(t, s.MarkInterrupted(ctx, time.Now()))

	a, err := s.GetQueueItem(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, types.QueuePaused, a.Status)
	assert.True(t, a.WasInterrupted)

	b, err := s.GetQueueItem(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, types.QueuePending, b.Status)
	assert.False(t, b.WasInterrupted)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AddCredentialSet(ctx, types.CredentialSet{Name: "default", Username: "bob"}))
	require.NoError(t, s.AddEnvironment(ctx, types.Environment{Name: "dev", Host: "dev.crm.dynamics.com", CredentialRef: "default"}))
	require.NoError(t, s.AddEntityMapping(ctx, types.EntityMapping{Singular: "account", Plural: "accounts"}))
	require.NoError(t, s.SaveQueueItem(ctx, types.QueueItem{ID: "q1", Status: types.QueuePending, CreatedAt: time.Now().UTC()}))

	doc, err := s.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Environments, 1)
	assert.Len(t, doc.CredentialSets, 1)

	data, err := MarshalExport(doc)
	require.NoError(t, err)

	reloaded, err := UnmarshalExport(data)
	require.NoError(t, err)

	s2 := newTestStore(t)
	require.NoError(t, s2.Import(ctx, reloaded))

	env, err := s2.GetEnvironment(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev.crm.dynamics.com", env.Host)

	items, err := s2.ListQueueItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "q1", items[0].ID)
}
