package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/norpie/dynamics-cli-sub003/internal/auth"
	"github.com/norpie/dynamics-cli-sub003/internal/config"
	"github.com/norpie/dynamics-cli-sub003/internal/odata"
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

func TestClientCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Acme", body["name"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"accountid":"abc-123"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, types.TokenInfo{AccessToken: "tok123", TokenType: "Bearer"}, newTestStack(t), srv.Client())
	result, err := c.Create(context.Background(), "account", c.CollectionURL("accounts"), map[string]any{"name": "Acme"})
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, "abc-123", result.Data["accountid"])
}

func TestClientQueryFollowsNextLink(t *testing.T) {
	var nextLinkURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/data/v9.2/accounts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"accountid":"1"}],"@odata.nextLink":"` + nextLinkURL + `"}`))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"accountid":"2"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	nextLinkURL = srv.URL + "/page2"

	c := New(srv.URL, types.TokenInfo{AccessToken: "tok", TokenType: "Bearer"}, newTestStack(t), srv.Client())
	q := odata.New("account").WithTop(10)
	result, err := c.Query(context.Background(), "accounts", q)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "1", result.Records[0]["accountid"])
	assert.Equal(t, nextLinkURL, result.NextLink)

	next, err := result.NextPage(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, next.Records, 1)
	assert.Equal(t, "2", next.Records[0]["accountid"])
}

func TestClientErrorStatusSurfacesAsOperationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, types.TokenInfo{AccessToken: "tok", TokenType: "Bearer"}, newTestStack(t), srv.Client())
	result, err := c.Delete(context.Background(), "account", c.CollectionURL("accounts")+"/abc")
	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Error(t, result.Error)
}

func TestClientManagerResolvesThroughAuthOnFirstUse(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	store, err := config.OpenMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.AddCredentialSet(ctx, types.CredentialSet{
		Name: "default", ClientID: "client-id", ClientSecret: "secret",
	}))
	require.NoError(t, store.AddEnvironment(ctx, types.Environment{
		Name: "dev", Host: "https://dev.crm.dynamics.com", CredentialRef: "default",
	}))

	authMgr := auth.NewManager(func(host string) (string, error) {
		return tokenSrv.URL, nil
	})
	mgr := NewManager(store, authMgr, newTestStack(t))

	c, err := mgr.GetClient(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, "https://dev.crm.dynamics.com", c.host)
	assert.Equal(t, "fresh-token", c.token.AccessToken)

	persisted, err := store.GetToken(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", persisted.AccessToken)

	cached, ok := authMgr.CachedToken("dev")
	require.True(t, ok)
	assert.Equal(t, "fresh-token", cached.AccessToken)
}

func TestClientManagerUnknownEnvironmentNotFound(t *testing.T) {
	store, err := config.OpenMemory()
	require.NoError(t, err)
	defer store.Close()

	authMgr := auth.NewManager(nil)
	mgr := NewManager(store, authMgr, newTestStack(t))

	_, err = mgr.GetClient(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClientManagerReusesValidCachedToken(t *testing.T) {
	store, err := config.OpenMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.AddCredentialSet(ctx, types.CredentialSet{Name: "default"}))
	require.NoError(t, store.AddEnvironment(ctx, types.Environment{Name: "dev", Host: "https://dev.crm.dynamics.com", CredentialRef: "default"}))
	require.NoError(t, store.SaveToken(ctx, "dev", types.TokenInfo{
		AccessToken: "cached", TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour),
	}))

	authMgr := auth.NewManager(nil)
	mgr := NewManager(store, authMgr, newTestStack(t))

	c, err := mgr.GetClient(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, "cached", c.token.AccessToken)
}
