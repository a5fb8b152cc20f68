package operation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/norpie/dynamics-cli-sub003/internal/client"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// MaxBatchSize is the largest number of operations ExecuteBatch will place
// in a single multipart/mixed request — Dynamics itself caps batches at
// 1000.
const MaxBatchSize = 1000

// ExecuteBatch groups ops into one or more multipart/mixed change-set
// requests (each capped at MaxBatchSize) and returns one OperationResult per
// input operation, in input order. Query operations cannot be mixed into a
// changeset per the OData batch spec (a changeset is atomic and GET is not
// transactional), so a batch containing any OpQuery is rejected — callers
// should execute queries individually via Execute.
func ExecuteBatch(ctx context.Context, c *client.Client, resolver PluralResolver, ops []types.Operation) ([]types.OperationResult, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	for _, op := range ops {
		if op.Kind == types.OpQuery {
			return nil, fmt.Errorf("operation: batch cannot contain OpQuery (entity %q)", op.Entity)
		}
	}

	results := make([]types.OperationResult, len(ops))
	for start := 0; start < len(ops); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(ops) {
			end = len(ops)
		}
		chunk := ops[start:end]
		chunkResults, err := executeOneBatch(ctx, c, resolver, chunk)
		if err != nil {
			return nil, err
		}
		copy(results[start:end], chunkResults)
	}
	return results, nil
}

func executeOneBatch(ctx context.Context, c *client.Client, resolver PluralResolver, ops []types.Operation) ([]types.OperationResult, error) {
	requests := make([]httpRequestLine, len(ops))
	for i, op := range ops {
		req, err := buildBatchRequest(ctx, c, resolver, op)
		if err != nil {
			return nil, fmt.Errorf("operation: encode batch item %d: %w", i, err)
		}
		requests[i] = req
	}

	batchBoundary := "batch_" + uuid.NewString()
	changesetBoundary := "changeset_" + uuid.NewString()
	body := encodeBatch(batchBoundary, changesetBoundary, requests)

	statusCode, respBody, err := c.RawBody(ctx, "batch",
		c.BatchURL(), "multipart/mixed;boundary="+batchBoundary, body)
	if err != nil {
		return nil, fmt.Errorf("operation: batch request: %w", err)
	}
	if statusCode < 200 || statusCode >= 300 {
		// Batch-level failure: every operation in the changeset fails uniformly.
		out := make([]types.OperationResult, len(ops))
		for i := range out {
			out[i] = types.OperationResult{
				StatusCode: statusCode,
				Error:      fmt.Errorf("batch request failed with status %d", statusCode),
			}
		}
		return out, nil
	}

	parts, err := decodeBatchResponse(respBody)
	if err != nil {
		return nil, fmt.Errorf("operation: decode batch response: %w", err)
	}
	if len(parts) != len(ops) {
		return nil, fmt.Errorf("operation: batch response has %d parts, expected %d", len(parts), len(ops))
	}
	return parts, nil
}

// httpRequestLine is one changeset member's encoded request.
type httpRequestLine struct {
	contentID int
	method    string
	url       string
	body      []byte
}

func buildBatchRequest(ctx context.Context, c *client.Client, resolver PluralResolver, op types.Operation) (httpRequestLine, error) {
	plural, err := resolver.Plural(ctx, op.Entity)
	if err != nil {
		return httpRequestLine{}, err
	}
	collectionURL := c.CollectionURL(plural)

	switch op.Kind {
	case types.OpCreate:
		body, err := json.Marshal(op.Payload)
		if err != nil {
			return httpRequestLine{}, err
		}
		return httpRequestLine{method: http.MethodPost, url: collectionURL, body: body}, nil

	case types.OpUpdate:
		body, err := json.Marshal(op.Payload)
		if err != nil {
			return httpRequestLine{}, err
		}
		return httpRequestLine{method: http.MethodPatch, url: recordURL(collectionURL, op.ID), body: body}, nil

	case types.OpDelete:
		return httpRequestLine{method: http.MethodDelete, url: recordURL(collectionURL, op.ID)}, nil

	case types.OpAssociate:
		targetPlural, err := resolver.Plural(ctx, op.TargetEntity)
		if err != nil {
			return httpRequestLine{}, err
		}
		targetURL := recordURL(c.CollectionURL(targetPlural), op.TargetID)
		body, err := json.Marshal(map[string]any{"@odata.id": targetURL})
		if err != nil {
			return httpRequestLine{}, err
		}
		return httpRequestLine{
			method: http.MethodPost,
			url:    recordURL(collectionURL, op.ID) + "/" + op.Relation + "/$ref",
			body:   body,
		}, nil

	default:
		return httpRequestLine{}, fmt.Errorf("unsupported batch operation kind %v", op.Kind)
	}
}

func encodeBatch(batchBoundary, changesetBoundary string, requests []httpRequestLine) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "--%s\r\n", batchBoundary)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed;boundary=%s\r\n\r\n", changesetBoundary)

	for i, req := range requests {
		fmt.Fprintf(&buf, "--%s\r\n", changesetBoundary)
		buf.WriteString("Content-Type: application/http\r\n")
		buf.WriteString("Content-Transfer-Encoding: binary\r\n")
		fmt.Fprintf(&buf, "Content-ID: %d\r\n\r\n", i+1)

		fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", req.method, req.url)
		if len(req.body) > 0 {
			buf.WriteString("Content-Type: application/json\r\n\r\n")
			buf.Write(req.body)
			buf.WriteString("\r\n")
		} else {
			buf.WriteString("\r\n")
		}
	}
	fmt.Fprintf(&buf, "--%s--\r\n", changesetBoundary)
	fmt.Fprintf(&buf, "--%s--\r\n", batchBoundary)

	return buf.Bytes()
}

// decodeBatchResponse parses a multipart/mixed batch response (which itself
// wraps a nested changeset multipart) into one OperationResult per
// application/http part, in the order they appear — the same order the
// requests were submitted in, per the OData batch contract.
func decodeBatchResponse(body []byte) ([]types.OperationResult, error) {
	outerBoundary, rest, err := extractBoundary(body)
	if err != nil {
		return nil, err
	}

	var results []types.OperationResult
	for _, section := range splitOnBoundary(rest, outerBoundary) {
		section = bytes.TrimSpace(section)
		if len(section) == 0 {
			continue
		}
		headerBlock, sectionBody := splitHeaderBody(section)
		contentType := parseHeaderLines(headerBlock)["Content-Type"]

		if strings.Contains(contentType, "multipart/mixed") {
			innerBoundary, _, err := extractBoundaryFromContentType(contentType)
			if err != nil {
				return nil, err
			}
			for _, inner := range splitOnBoundary(sectionBody, innerBoundary) {
				inner = bytes.TrimSpace(inner)
				if len(inner) == 0 {
					continue
				}
				res, err := decodeHTTPPart(inner)
				if err != nil {
					return nil, err
				}
				results = append(results, res)
			}
			continue
		}

		res, err := decodeHTTPPart(section)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func extractBoundary(body []byte) (string, []byte, error) {
	// The boundary is the first line that begins with "--"; its name is
	// whatever the server chose (e.g. batchresponse_<id>).
	idx := -1
	if bytes.HasPrefix(body, []byte("--")) {
		idx = 0
	} else if i := bytes.Index(body, []byte("\n--")); i >= 0 {
		idx = i + 1
	}
	if idx < 0 {
		return "", nil, fmt.Errorf("batch response: no boundary marker found")
	}
	end := bytes.IndexAny(body[idx:], "\r\n")
	if end < 0 {
		return "", nil, fmt.Errorf("batch response: malformed boundary line")
	}
	boundary := strings.TrimPrefix(string(body[idx:idx+end]), "--")
	return boundary, body, nil
}

func extractBoundaryFromContentType(contentType string) (string, string, error) {
	idx := strings.Index(contentType, "boundary=")
	if idx < 0 {
		return "", "", fmt.Errorf("batch response: content-type missing boundary: %q", contentType)
	}
	b := contentType[idx+len("boundary="):]
	b = strings.Trim(b, "\" ")
	if semi := strings.Index(b, ";"); semi >= 0 {
		b = b[:semi]
	}
	return strings.TrimSpace(b), "", nil
}

func splitOnBoundary(body []byte, boundary string) [][]byte {
	marker := []byte("--" + boundary)
	parts := bytes.Split(body, marker)
	if len(parts) > 0 {
		parts = parts[1:] // drop preamble before the first boundary
	}
	var out [][]byte
	for _, p := range parts {
		trimmed := bytes.TrimSpace(p)
		if bytes.Equal(trimmed, []byte("--")) || len(trimmed) == 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// splitHeaderBody splits one MIME-ish part into its header block and
// remaining body on the first blank line, tolerating both CRLF and bare-LF
// line endings (net/http test servers and some gateways normalize to LF).
func splitHeaderBody(section []byte) ([]byte, []byte) {
	if idx := bytes.Index(section, []byte("\r\n\r\n")); idx >= 0 {
		return section[:idx], section[idx+4:]
	}
	if idx := bytes.Index(section, []byte("\n\n")); idx >= 0 {
		return section[:idx], section[idx+2:]
	}
	return section, nil
}

func parseHeaderLines(block []byte) map[string]string {
	out := make(map[string]string)
	for _, line := range bytes.Split(block, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(string(line[:idx]))
		val := strings.TrimSpace(string(line[idx+1:]))
		if key != "" {
			out[key] = val
		}
	}
	return out
}

// decodeHTTPPart parses one "application/http" changeset member: its own
// MIME headers (discarded — only Content-ID, which this decoder relies on
// response order rather than parsing), then an embedded
// "HTTP/1.1 <code> <reason>" status line, embedded headers, then the JSON
// (or empty) body.
func decodeHTTPPart(part []byte) (types.OperationResult, error) {
	_, httpMessage := splitHeaderBody(part)
	httpMessage = bytes.TrimLeft(httpMessage, "\r\n")

	statusHeaders, jsonBody := splitHeaderBody(httpMessage)
	lines := bytes.SplitN(statusHeaders, []byte("\n"), 2)
	statusLine := strings.TrimSpace(string(lines[0]))
	fields := strings.SplitN(statusLine, " ", 3)
	if len(fields) < 2 {
		return types.OperationResult{}, fmt.Errorf("malformed status line: %q", statusLine)
	}
	statusCode, err := strconv.Atoi(fields[1])
	if err != nil {
		return types.OperationResult{}, fmt.Errorf("parse status code %q: %w", fields[1], err)
	}

	var headers map[string]string
	if len(lines) > 1 {
		headers = parseHeaderLines(lines[1])
	}

	jsonBody = bytes.TrimSpace(jsonBody)
	result := types.OperationResult{StatusCode: statusCode, Headers: headers}
	if len(jsonBody) > 0 {
		var data map[string]any
		if jsonErr := json.Unmarshal(jsonBody, &data); jsonErr == nil {
			result.Data = data
		}
	}
	if !result.Succeeded() {
		result.Error = fmt.Errorf("batch operation failed with status %d", statusCode)
	}
	return result, nil
}
