package operation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/norpie/dynamics-cli-sub003/internal/client"
	"github.com/norpie/dynamics-cli-sub003/internal/odata"
	"github.com/norpie/dynamics-cli-sub003/internal/resilience"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

type staticResolver map[string]string

func (r staticResolver) Plural(ctx context.Context, singular string) (string, error) {
	p, ok := r[singular]
	if !ok {
		return "", fmt.Errorf("unknown entity %q", singular)
	}
	return p, nil
}

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

func TestExecuteCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/data/v9.2/accounts", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"accountid":"new-id"}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, types.TokenInfo{AccessToken: "tok", TokenType: "Bearer"}, newTestStack(t), srv.Client())
	resolver := staticResolver{"account": "accounts"}

	result, err := Execute(context.Background(), c, resolver, types.NewCreate("account", map[string]any{"name": "Acme"}))
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, "new-id", result.Data["accountid"])
}

func TestExecuteQueryUnwrapsRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"accountid":"1"},{"accountid":"2"}]}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, types.TokenInfo{AccessToken: "tok", TokenType: "Bearer"}, newTestStack(t), srv.Client())
	resolver := staticResolver{"account": "accounts"}

	q := odata.New("account").WithTop(10)
	result, err := Execute(context.Background(), c, resolver, types.NewQuery("account", q))
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	records, ok := result.Data["value"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, records, 2)
}

func TestExecuteUnknownEntityFails(t *testing.T) {
	c := client.New("https://x.crm.dynamics.com", types.TokenInfo{}, newTestStack(t), nil)
	resolver := staticResolver{}
	_, err := Execute(context.Background(), c, resolver, types.NewCreate("unknown", nil))
	assert.Error(t, err)
}

func TestResolveLookupValuePriorityOrder(t *testing.T) {
	record := map[string]any{
		"_cgk_owner_value":                                                    "guid-1",
		"_cgk_owner_value@OData.Community.Display.V1.FormattedValue":         "Nav Name",
	}
	v, ok := ResolveLookupValue(record, "cgk_owner", "", "")
	require.True(t, ok)
	assert.Equal(t, "Nav Name", v)

	record2 := map[string]any{
		"cgk_owner@OData.Community.Display.V1.FormattedValue": "Formatted Owner",
		"_cgk_owner_value":                                    "guid-2",
	}
	v2, ok := ResolveLookupValue(record2, "cgk_owner", "", "")
	require.True(t, ok)
	assert.Equal(t, "Formatted Owner", v2)

	record3 := map[string]any{
		"cgk_owner_expanded": map[string]any{"fullname": "Expanded Owner"},
		"_cgk_owner_value":   "guid-3",
	}
	v3, ok := ResolveLookupValue(record3, "cgk_owner", "cgk_owner_expanded", "fullname")
	require.True(t, ok)
	assert.Equal(t, "Expanded Owner", v3)

	record4 := map[string]any{"_cgk_owner_value": "guid-4"}
	v4, ok := ResolveLookupValue(record4, "cgk_owner", "", "")
	require.True(t, ok)
	assert.Equal(t, "guid-4", v4)

	_, ok = ResolveLookupValue(map[string]any{}, "cgk_owner", "", "")
	assert.False(t, ok)
}

func TestExecuteBatchEncodeDecodeRoundTrip(t *testing.T) {
	var capturedBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/data/v9.2/$batch", r.URL.Path)
		body := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(body)
		capturedBody = body

		w.Header().Set("Content-Type", "multipart/mixed;boundary=respbatch_1")
		resp := "--respbatch_1\r\n" +
			"Content-Type: application/http\r\n" +
			"Content-Transfer-Encoding: binary\r\n\r\n" +
			"HTTP/1.1 204 No Content\r\n\r\n" +
			"--respbatch_1\r\n" +
			"Content-Type: application/http\r\n" +
			"Content-Transfer-Encoding: binary\r\n\r\n" +
			"HTTP/1.1 201 Created\r\n" +
			"Content-Type: application/json\r\n\r\n" +
			`{"accountid":"created-1"}` + "\r\n" +
			"--respbatch_1--\r\n"
		_, _ = w.Write([]byte(resp))
	}))
	defer srv.Close()

	c := client.New(srv.URL, types.TokenInfo{AccessToken: "tok", TokenType: "Bearer"}, newTestStack(t), srv.Client())
	resolver := staticResolver{"account": "accounts"}

	ops := []types.Operation{
		types.NewUpdate("account", "abc", map[string]any{"name": "Updated"}),
		types.NewCreate("account", map[string]any{"name": "New"}),
	}

	results, err := ExecuteBatch(context.Background(), c, resolver, ops)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Succeeded())
	assert.Equal(t, 204, results[0].StatusCode)

	assert.True(t, results[1].Succeeded())
	assert.Equal(t, 201, results[1].StatusCode)
	assert.Equal(t, "created-1", results[1].Data["accountid"])

	captured := string(capturedBody)
	assert.Contains(t, captured, "PATCH")
	assert.Contains(t, captured, "POST")
}

func TestExecuteBatchRejectsQuery(t *testing.T) {
	c := client.New("https://x.crm.dynamics.com", types.TokenInfo{}, newTestStack(t), nil)
	resolver := staticResolver{"account": "accounts"}
	_, err := ExecuteBatch(context.Background(), c, resolver, []types.Operation{types.NewQuery("account", odata.New("account"))})
	assert.Error(t, err)
}

func TestExecuteBatchEmptyIsNoOp(t *testing.T) {
	c := client.New("https://x.crm.dynamics.com", types.TokenInfo{}, newTestStack(t), nil)
	resolver := staticResolver{}
	results, err := ExecuteBatch(context.Background(), c, resolver, nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}
