package apps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/norpie/dynamics-cli-sub003/internal/config"
	"github.com/norpie/dynamics-cli-sub003/internal/tui/element"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEnvironmentSelectInitFetchesAndSortsEnvironments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddEnvironment(ctx, types.Environment{Name: "zeta", Host: "https://zeta"}))
	require.NoError(t, store.AddEnvironment(ctx, types.Environment{Name: "alpha", Host: "https://alpha"}))
	require.NoError(t, store.SetCurrent(ctx, "alpha"))

	app := NewEnvironmentSelect(store)
	cmd := app.Init(nil)
	msg := cmd.Perform(ctx)
	app.Update(msg)

	require.Len(t, app.environments, 2)
	require.Equal(t, "alpha", app.environments[0].Name, "expected environments sorted alphabetically")
	require.Equal(t, "alpha", app.current)
}

func TestEnvironmentSelectActivateSwitchesCurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddEnvironment(ctx, types.Environment{Name: "alpha", Host: "https://alpha"}))
	require.NoError(t, store.AddEnvironment(ctx, types.Environment{Name: "beta", Host: "https://beta"}))

	app := NewEnvironmentSelect(store)
	app.Update(app.Init(nil).Perform(ctx))
	app.listState.Selected = 1 // "beta"

	cmd := app.Update("activate")
	require.NotNil(t, cmd.Perform)
	msg := cmd.Perform(ctx)
	app.Update(msg)

	require.Equal(t, "beta", app.current)
	cur, err := store.GetCurrent(ctx)
	require.NoError(t, err)
	require.Equal(t, "beta", cur.Name)
}

func TestEnvironmentSelectViewRendersWithoutPanic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddEnvironment(ctx, types.Environment{Name: "alpha", Host: "https://alpha"}))

	app := NewEnvironmentSelect(store)
	app.Update(app.Init(nil).Perform(ctx))

	el := app.View(element.NewDefaultTheme())
	require.Equal(t, element.KindPanel, el.Kind)
}
