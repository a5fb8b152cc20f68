package queue

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/norpie/dynamics-cli-sub003/internal/auth"
	"github.com/norpie/dynamics-cli-sub003/internal/client"
	"github.com/norpie/dynamics-cli-sub003/internal/config"
	"github.com/norpie/dynamics-cli-sub003/internal/resilience"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

func newTestStack(t *testing.T) *resilience.Stack {
	t.Helper()
	mc, err := resilience.NewMetricsCollector(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return &resilience.Stack{
		Policy:  resilience.DefaultRetryPolicy(),
		Limiter: resilience.NewRateLimiter(0, 0),
		Logger:  resilience.NewLogger(slog.Default()),
		Metrics: mc,
	}
}

func newTestEngine(t *testing.T, srv *httptest.Server) (*Engine, *config.Store) {
	t.Helper()
	store, err := config.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.AddCredentialSet(context.Background(), types.CredentialSet{Name: "default", Username: "u", Password: "p"}))
	require.NoError(t, store.AddEnvironment(context.Background(), types.Environment{Name: "dev", Host: srv.URL, CredentialRef: "default"}))
	require.NoError(t, store.AddEntityMapping(context.Background(), types.EntityMapping{Singular: "account", Plural: "accounts"}))

	authMgr := auth.NewManager(nil)
	authMgr.PutToken("dev", types.TokenInfo{AccessToken: "tok", TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour)})

	clientMgr := client.NewManager(store, authMgr, newTestStack(t))
	return NewEngine(store, clientMgr, slog.Default()), store
}

func waitForStatus(t *testing.T, store *config.Store, id string, want types.QueueStatus, timeout time.Duration) types.QueueItem {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		item, err := store.GetQueueItem(context.Background(), id)
		require.NoError(t, err)
		if item.Status == want {
			return item
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("item %s did not reach status %v before timeout", id, want)
	return types.QueueItem{}
}

func TestEngineRunsItemToDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"accountid":"1"}`))
	}))
	defer srv.Close()

	engine, store := newTestEngine(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	item := types.QueueItem{
		ID:         "item-1",
		Operations: []types.Operation{types.NewCreate("account", map[string]any{"name": "Acme"})},
		Metadata:   types.QueueMetadata{EnvironmentName: "dev"},
		Status:     types.QueuePending,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, store.SaveQueueItem(ctx, item))

	go engine.Run(ctx)
	engine.Kick()

	got := waitForStatus(t, store, "item-1", types.QueueDone, 2*time.Second)
	require.NotNil(t, got.Result)
	assert.Len(t, got.Result.Results, 1)
	assert.True(t, got.Result.Results[0].Succeeded())
}

func TestEngineFailsSequenceOnFirstError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	engine, store := newTestEngine(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	item := types.QueueItem{
		ID: "item-2",
		Operations: []types.Operation{
			types.NewCreate("account", map[string]any{"name": "Bad"}),
			types.NewCreate("account", map[string]any{"name": "Never reached"}),
		},
		Metadata:  types.QueueMetadata{EnvironmentName: "dev"},
		Status:    types.QueuePending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveQueueItem(ctx, item))

	go engine.Run(ctx)
	engine.Kick()

	got := waitForStatus(t, store, "item-2", types.QueueFailed, 2*time.Second)
	require.NotNil(t, got.Result)
	assert.Len(t, got.Result.Results, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEngineRecoverMarksPriorRunningAsPaused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	engine, store := newTestEngine(t, srv)
	ctx := context.Background()

	item := types.QueueItem{
		ID:        "item-3",
		Status:    types.QueueRunning,
		Metadata:  types.QueueMetadata{EnvironmentName: "dev"},
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveQueueItem(ctx, item))

	require.NoError(t, engine.Recover(ctx, time.Now()))

	got, err := store.GetQueueItem(ctx, "item-3")
	require.NoError(t, err)
	assert.Equal(t, types.QueuePaused, got.Status)
	assert.True(t, got.WasInterrupted)
}

func TestEngineRespectsMaxConcurrent(t *testing.T) {
	release := make(chan struct{})
	var inFlight int32
	var maxSeen int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxSeen)
			if n <= cur || atomic.CompareAndSwapInt32(&maxSeen, cur, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inFlight, -1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	engine, store := newTestEngine(t, srv)
	require.NoError(t, store.SetQueueSettings(context.Background(), types.QueueSettings{
		AutoPlay: true, MaxConcurrent: 2, Filter: types.QueueFilterAll, SortMode: types.QueueSortPriority,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 4; i++ {
		item := types.QueueItem{
			ID:         "item-" + string(rune('a'+i)),
			Operations: []types.Operation{types.NewCreate("account", map[string]any{})},
			Metadata:   types.QueueMetadata{EnvironmentName: "dev"},
			Status:     types.QueuePending,
			CreatedAt:  time.Now(),
		}
		require.NoError(t, store.SaveQueueItem(ctx, item))
	}

	go engine.Run(ctx)
	engine.Kick()

	time.Sleep(200 * time.Millisecond)
	close(release)

	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxSeen)), 2)
}
