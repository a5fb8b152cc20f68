package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/norpie/dynamics-cli-sub003/internal/auth"
	"github.com/norpie/dynamics-cli-sub003/internal/client"
	"github.com/norpie/dynamics-cli-sub003/internal/config"
	"github.com/norpie/dynamics-cli-sub003/internal/queue"
	"github.com/norpie/dynamics-cli-sub003/internal/resilience"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// appContext is this process's dependency graph, built once at startup and
// shared by every subcommand. It's threaded in via closures captured at
// TUI-app registration time rather than a value passed through every App
// method, since each App already keeps its own state in its receiver (see
// internal/tui/app.go) instead of a generic per-call context parameter.
type appContext struct {
	store           *config.Store
	auth            *auth.Manager
	clients         *client.Manager
	stack           *resilience.Stack
	queue           *queue.Engine
	logger          *slog.Logger
	metricsShutdown func(context.Context) error
}

// buildAppContext wires the full dependency graph from settings: opens the
// ConfigStore (running migrations), builds the otel MeterProvider (real
// stdoutmetric exporter under --debug-metrics, a noop one otherwise),
// assembles the ResilienceStack/AuthManager/ClientManager/QueueEngine, and
// synthesizes the ".env" environment from DYNAMICS_* environment variables
// for non-interactive/scripted use.
func buildAppContext(ctx context.Context, s settings) (*appContext, error) {
	store, err := config.Open(s.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}

	logger := newLogger(s.LogLevel)

	meter, shutdown, err := buildMeter(ctx, s.DebugMetrics)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build meter provider: %w", err)
	}

	metrics, err := resilience.NewMetricsCollector(meter)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build metrics collector: %w", err)
	}

	policy, limiter, err := loadResilienceOptions(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load resilience options: %w", err)
	}

	stack := &resilience.Stack{
		Policy:  policy,
		Limiter: limiter,
		Logger:  resilience.NewLogger(logger),
		Metrics: metrics,
	}

	authMgr := auth.NewManager(nil)
	clientMgr := client.NewManager(store, authMgr, stack)
	queueEngine := queue.NewEngine(store, clientMgr, logger)

	if err := synthesizeEnvEnvironment(ctx, store); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("synthesize .env environment: %w", err)
	}

	if err := queueEngine.Recover(ctx, time.Now()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("recover queue: %w", err)
	}

	return &appContext{
		store: store, auth: authMgr, clients: clientMgr, stack: stack,
		queue: queueEngine, logger: logger, metricsShutdown: shutdown,
	}, nil
}

func (a *appContext) Close(ctx context.Context) error {
	if a.metricsShutdown != nil {
		_ = a.metricsShutdown(ctx)
	}
	return a.store.Close()
}

// loadResilienceOptions builds the RetryPolicy and RateLimiter from the
// ConfigStore's options registry, falling back to its compiled-in defaults
// for any key never explicitly Set.
func loadResilienceOptions(ctx context.Context, store *config.Store) (resilience.RetryPolicy, *resilience.RateLimiter, error) {
	maxAttempts, err := store.GetOptionInt(ctx, "retry.max_attempts")
	if err != nil {
		return resilience.RetryPolicy{}, nil, fmt.Errorf("retry.max_attempts: %w", err)
	}
	baseDelayMs, err := store.GetOptionInt(ctx, "retry.base_delay_ms")
	if err != nil {
		return resilience.RetryPolicy{}, nil, fmt.Errorf("retry.base_delay_ms: %w", err)
	}
	maxDelayMs, err := store.GetOptionInt(ctx, "retry.max_delay_ms")
	if err != nil {
		return resilience.RetryPolicy{}, nil, fmt.Errorf("retry.max_delay_ms: %w", err)
	}
	backoffMultiplier, err := store.GetOptionFloat(ctx, "retry.backoff_multiplier")
	if err != nil {
		return resilience.RetryPolicy{}, nil, fmt.Errorf("retry.backoff_multiplier: %w", err)
	}
	jitter, err := store.GetOptionBool(ctx, "retry.jitter")
	if err != nil {
		return resilience.RetryPolicy{}, nil, fmt.Errorf("retry.jitter: %w", err)
	}
	requestsPerMinute, err := store.GetOptionFloat(ctx, "rate_limit.requests_per_minute")
	if err != nil {
		return resilience.RetryPolicy{}, nil, fmt.Errorf("rate_limit.requests_per_minute: %w", err)
	}
	burst, err := store.GetOptionInt(ctx, "rate_limit.burst")
	if err != nil {
		return resilience.RetryPolicy{}, nil, fmt.Errorf("rate_limit.burst: %w", err)
	}

	policy := resilience.RetryPolicy{
		MaxAttempts:       maxAttempts,
		BaseDelay:         time.Duration(baseDelayMs) * time.Millisecond,
		MaxDelay:          time.Duration(maxDelayMs) * time.Millisecond,
		BackoffMultiplier: backoffMultiplier,
		Jitter:            jitter,
	}
	limiter := resilience.NewRateLimiter(requestsPerMinute, burst)
	return policy, limiter, nil
}

// buildMeter returns a real MeterProvider backed by the stdoutmetric
// exporter when debugMetrics is set, or a noop one otherwise: anything wired
// to the MeterProvider observes the same snapshot numbers either way.
func buildMeter(ctx context.Context, debugMetrics bool) (metric.Meter, func(context.Context) error, error) {
	if !debugMetrics {
		return noop.NewMeterProvider().Meter("dynamics-cli"), func(context.Context) error { return nil }, nil
	}
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
	if err != nil {
		return nil, nil, fmt.Errorf("build stdoutmetric exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	return provider.Meter("dynamics-cli"), provider.Shutdown, nil
}

// synthesizeEnvEnvironment populates a ".env" CredentialSet/Environment
// from DYNAMICS_HOST/DYNAMICS_USERNAME/DYNAMICS_PASSWORD/
// DYNAMICS_CLIENT_ID/DYNAMICS_CLIENT_SECRET when present, so scripted/CI
// invocations can run without ever touching the TUI's environment picker.
// A missing DYNAMICS_HOST means the operator isn't using this path at all;
// nothing is written.
func synthesizeEnvEnvironment(ctx context.Context, store *config.Store) error {
	host := os.Getenv("DYNAMICS_HOST")
	if host == "" {
		return nil
	}

	cs := types.CredentialSet{
		Name:         ".env",
		Kind:         types.CredentialUsernamePassword,
		Username:     os.Getenv("DYNAMICS_USERNAME"),
		Password:     os.Getenv("DYNAMICS_PASSWORD"),
		ClientID:     os.Getenv("DYNAMICS_CLIENT_ID"),
		ClientSecret: os.Getenv("DYNAMICS_CLIENT_SECRET"),
	}
	if _, err := store.GetCredentialSet(ctx, ".env"); err != nil {
		if err := store.AddCredentialSet(ctx, cs); err != nil {
			return fmt.Errorf("add .env credential set: %w", err)
		}
	}

	env := types.Environment{Name: ".env", Host: host, CredentialRef: ".env"}
	if _, err := store.GetEnvironment(ctx, ".env"); err != nil {
		if err := store.AddEnvironment(ctx, env); err != nil {
			return fmt.Errorf("add .env environment: %w", err)
		}
	}
	return nil
}
