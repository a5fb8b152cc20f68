// Package client wraps one authenticated Dynamics OData connection: host +
// bearer token + the resilience middleware chain.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/norpie/dynamics-cli-sub003/internal/odata"
	"github.com/norpie/dynamics-cli-sub003/internal/resilience"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// preferHeader asks Dynamics to annotate every response value with its
// formatted display text (e.g. an option set's label, a lookup's name),
// which internal/operation/lookup.go's field-value fallback chain depends on.
const preferHeader = `odata.include-annotations="OData.Community.Display.V1.FormattedValue"`

// apiPath is the OData root beneath an environment's host. Dynamics has
// shipped v9.0-v9.2 for years without a documented breaking change between
// them; a newer API surface would need this made configurable per
// Environment, which the current data model does not carry.
const apiPath = "/api/data/v9.2/"

// Client is one environment's authenticated connection. Immutable after
// construction — a refreshed token means a new Client, built by
// ClientManager.
type Client struct {
	host       string
	token      types.TokenInfo
	httpClient *http.Client
	stack      *resilience.Stack
}

// New builds a Client. httpClient may be nil to use http.DefaultClient.
func New(host string, token types.TokenInfo, stack *resilience.Stack, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{host: strings.TrimRight(host, "/"), token: token, httpClient: httpClient, stack: stack}
}

// CollectionURL builds the absolute collection URL for a plural entity set
// name (e.g. "accounts" -> "https://org.crm.dynamics.com/api/data/v9.2/accounts").
func (c *Client) CollectionURL(plural string) string {
	return c.host + apiPath + plural
}

// httpResult is the raw outcome of one request, captured inside the
// resilience.Stack retry loop's Send closure.
type httpResult struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// do executes one logical request through the full resilience chain:
// correlation-ID, logging, rate limiting, retry/backoff, metrics.
func (c *Client) do(ctx context.Context, operationType, entity, method, url string, body map[string]any) (*httpResult, error) {
	rc := resilience.NewRequestContext(operationType, entity)

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = b
	}

	var result httpResult
	_, _, stackErr := c.stack.Do(ctx, rc, func(ctx context.Context, attemptN int) (int, error) {
		req, buildErr := c.buildRequest(ctx, method, url, payload)
		if buildErr != nil {
			return 0, buildErr
		}
		c.stack.Logger.LogRequest(ctx, rc, method, url, req.Header)

		resp, sendErr := c.httpClient.Do(req)
		if sendErr != nil {
			c.stack.Logger.LogResponse(ctx, rc, 0, sendErr)
			return 0, sendErr
		}
		defer resp.Body.Close()

		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			c.stack.Logger.LogResponse(ctx, rc, resp.StatusCode, readErr)
			return resp.StatusCode, readErr
		}
		result = httpResult{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}
		c.stack.Logger.LogResponse(ctx, rc, resp.StatusCode, nil)
		return resp.StatusCode, nil
	})

	// A result was captured whenever at least one attempt reached an HTTP
	// response, even a non-2xx one — stackErr in that case just reflects
	// "not retryable" or "retries exhausted" and belongs in OperationResult,
	// not as a hard transport failure. Only the true no-response case (every
	// attempt failed at the transport level) propagates stackErr directly.
	if result.StatusCode == 0 {
		return nil, stackErr
	}
	return &result, nil
}

func (c *Client) buildRequest(ctx context.Context, method, url string, payload []byte) (*http.Request, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.token.TokenType+" "+c.token.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("Prefer", preferHeader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func headerMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func toOperationResult(res *httpResult, err error) (types.OperationResult, error) {
	if err != nil {
		return types.OperationResult{Error: err}, err
	}
	out := types.OperationResult{StatusCode: res.StatusCode, Headers: headerMap(res.Headers)}
	if len(res.Body) > 0 {
		var data map[string]any
		if jsonErr := json.Unmarshal(res.Body, &data); jsonErr == nil {
			out.Data = data
		}
	}
	if !out.Succeeded() {
		out.Error = fmt.Errorf("dynamics request failed with status %d", res.StatusCode)
	}
	return out, nil
}

// Create issues a POST against the collection.
func (c *Client) Create(ctx context.Context, entity, collectionURL string, payload map[string]any) (types.OperationResult, error) {
	res, err := c.do(ctx, "create", entity, http.MethodPost, collectionURL, payload)
	return toOperationResult(res, err)
}

// Update issues a PATCH against a single record.
func (c *Client) Update(ctx context.Context, entity, recordURL string, payload map[string]any) (types.OperationResult, error) {
	res, err := c.do(ctx, "update", entity, http.MethodPatch, recordURL, payload)
	return toOperationResult(res, err)
}

// Delete issues a DELETE against a single record.
func (c *Client) Delete(ctx context.Context, entity, recordURL string) (types.OperationResult, error) {
	res, err := c.do(ctx, "delete", entity, http.MethodDelete, recordURL, nil)
	return toOperationResult(res, err)
}

// Associate issues a POST against a record's navigation $ref endpoint.
func (c *Client) Associate(ctx context.Context, entity, recordURL, relation, targetEntityURL string) (types.OperationResult, error) {
	refURL := recordURL + "/" + relation + "/$ref"
	payload := map[string]any{"@odata.id": targetEntityURL}
	res, err := c.do(ctx, "associate", entity, http.MethodPost, refURL, payload)
	return toOperationResult(res, err)
}

// FetchPage implements odata.Fetcher: GET one page and parse Dynamics'
// {value, @odata.nextLink} envelope.
func (c *Client) FetchPage(ctx context.Context, url string) (*odata.Result, error) {
	res, err := c.do(ctx, "query", "", http.MethodGet, url, nil)
	if err != nil {
		return &odata.Result{Error: err}, err
	}

	var envelope struct {
		Value    []map[string]any `json:"value"`
		NextLink string           `json:"@odata.nextLink"`
	}
	if err := json.Unmarshal(res.Body, &envelope); err != nil {
		return &odata.Result{Error: err}, fmt.Errorf("parse query response: %w", err)
	}
	return &odata.Result{Records: envelope.Value, NextLink: envelope.NextLink}, nil
}

// Query runs q against the given plural entity collection name and returns
// the first page.
func (c *Client) Query(ctx context.Context, plural string, q odata.Query) (*odata.Result, error) {
	return c.FetchPage(ctx, q.URL(c.CollectionURL(plural)))
}

// BatchURL is the $batch endpoint shared by every entity collection.
func (c *Client) BatchURL() string {
	return c.host + apiPath + "$batch"
}

// RawBody is the exported escape hatch internal/operation's batch encoder
// uses to POST a pre-built multipart/mixed envelope and get the raw response
// back for per-part decoding — the only caller outside this package that
// needs the unparsed bytes rather than a single-record JSON envelope.
func (c *Client) RawBody(ctx context.Context, operationType, url, contentType string, body []byte) (int, []byte, error) {
	rc := resilience.NewRequestContext(operationType, "")

	var result httpResult
	_, _, _ = c.stack.Do(ctx, rc, func(ctx context.Context, attemptN int) (int, error) {
		req, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if buildErr != nil {
			return 0, buildErr
		}
		req.Header.Set("Authorization", c.token.TokenType+" "+c.token.AccessToken)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("OData-MaxVersion", "4.0")
		req.Header.Set("OData-Version", "4.0")
		req.Header.Set("Prefer", preferHeader)
		c.stack.Logger.LogRequest(ctx, rc, http.MethodPost, url, req.Header)

		resp, sendErr := c.httpClient.Do(req)
		if sendErr != nil {
			c.stack.Logger.LogResponse(ctx, rc, 0, sendErr)
			return 0, sendErr
		}
		defer resp.Body.Close()
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			c.stack.Logger.LogResponse(ctx, rc, resp.StatusCode, readErr)
			return resp.StatusCode, readErr
		}
		result = httpResult{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}
		c.stack.Logger.LogResponse(ctx, rc, resp.StatusCode, nil)
		return resp.StatusCode, nil
	})

	if result.StatusCode == 0 {
		return 0, nil, fmt.Errorf("batch request: no response received")
	}
	return result.StatusCode, result.Body, nil
}

var _ odata.Fetcher = (*Client)(nil)
