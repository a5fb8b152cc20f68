package resilience

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestContext is per-operation correlation state, created once per
// outbound call and carried through the whole middleware chain.
type RequestContext struct {
	CorrelationID string
	OperationType string
	Entity        string
	StartTime     time.Time
}

// NewRequestContext starts a fresh correlation scope.
func NewRequestContext(operationType, entity string) RequestContext {
	return RequestContext{
		CorrelationID: uuid.NewString(),
		OperationType: operationType,
		Entity:        entity,
		StartTime:     time.Now(),
	}
}

// redactedHeaderKeys never appear in a log line verbatim.
var redactedHeaderKeys = map[string]bool{
	"Authorization": true,
}

// Logger emits structured, correlation-tagged request/response logs via
// log/slog.
type Logger struct {
	base *slog.Logger
}

func NewLogger(base *slog.Logger) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{base: base}
}

func (l *Logger) scoped(rc RequestContext) *slog.Logger {
	return l.base.With(
		"correlation_id", rc.CorrelationID,
		"operation", rc.OperationType,
		"entity", rc.Entity,
	)
}

// LogRequest emits a request-start line. Headers are redacted before
// logging; Authorization never appears even at debug level.
func (l *Logger) LogRequest(ctx context.Context, rc RequestContext, method, url string, headers http.Header) {
	l.scoped(rc).DebugContext(ctx, "dynamics request",
		"method", method, "url", url, "headers", redactHeaders(headers))
}

// LogResponse emits a response-end line including elapsed duration.
func (l *Logger) LogResponse(ctx context.Context, rc RequestContext, statusCode int, err error) {
	elapsed := time.Since(rc.StartTime)
	if err != nil {
		l.scoped(rc).WarnContext(ctx, "dynamics response error", "elapsed", elapsed, "error", err)
		return
	}
	l.scoped(rc).DebugContext(ctx, "dynamics response", "status", statusCode, "elapsed", elapsed)
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if redactedHeaderKeys[k] {
			out[k] = "[redacted]"
			continue
		}
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
