// Package queue implements the QueueEngine: a single scheduler goroutine
// that promotes persisted Pending work items to Running up to a configurable
// concurrency limit and drives each item's operation sequence to completion
// against its environment's client.Client.
package queue

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/norpie/dynamics-cli-sub003/internal/client"
	"github.com/norpie/dynamics-cli-sub003/internal/config"
	"github.com/norpie/dynamics-cli-sub003/internal/operation"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// tickInterval is the scheduler's background rescan period — state changes
// that happen between ticks are picked up immediately via Kick instead of
// waiting out the full interval.
const tickInterval = 2 * time.Second

// Engine is the QueueEngine.
type Engine struct {
	store   *config.Store
	clients *client.Manager
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}

	semMu   sync.Mutex
	sem     *semaphore.Weighted
	semSize int

	autoPlayMu sync.RWMutex
	autoPlay   bool

	kick chan struct{}
}

// NewEngine builds an Engine. Call Recover once before Run to reconcile any
// items left Running by a prior process.
func NewEngine(store *config.Store, clients *client.Manager, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		clients: clients,
		logger:  logger,
		active:  make(map[string]struct{}),
		kick:    make(chan struct{}, 1),
	}
}

// Kick requests an immediate rescan. Redundant kicks queued while one is
// already pending are dropped — bursts of state changes coalesce into a
// single rescan.
func (e *Engine) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Recover transitions any items left Running by a prior process to Paused
// with was_interrupted set. Must run before the first rescan.
func (e *Engine) Recover(ctx context.Context, now time.Time) error {
	return e.store.MarkInterrupted(ctx, now)
}

// Run drives the scheduler loop until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.rescan(ctx)
		case <-e.kick:
			e.rescan(ctx)
		}
	}
}

// semaphoreFor returns the current concurrency semaphore, creating it on
// first use. Resizing after a max_concurrent change is rebuildSemaphoreIfIdle's
// job: resizing a Weighted with outstanding acquires would desync its
// internal counter, so a live resize is deferred until the queue next drains
// to empty.
func (e *Engine) semaphoreFor(maxConcurrent int) *semaphore.Weighted {
	e.semMu.Lock()
	defer e.semMu.Unlock()
	if e.sem == nil {
		e.sem = semaphore.NewWeighted(int64(maxConcurrent))
		e.semSize = maxConcurrent
	}
	return e.sem
}

func (e *Engine) rebuildSemaphoreIfIdle(maxConcurrent int) {
	e.mu.Lock()
	idle := len(e.active) == 0
	e.mu.Unlock()
	if !idle {
		return
	}
	e.semMu.Lock()
	defer e.semMu.Unlock()
	if e.semSize != maxConcurrent {
		e.sem = semaphore.NewWeighted(int64(maxConcurrent))
		e.semSize = maxConcurrent
	}
}

func (e *Engine) rescan(ctx context.Context) {
	settings, err := e.store.GetQueueSettings(ctx)
	if err != nil {
		e.logger.Error("queue: load settings", "error", err)
		return
	}
	e.autoPlayMu.Lock()
	e.autoPlay = settings.AutoPlay
	e.autoPlayMu.Unlock()

	e.rebuildSemaphoreIfIdle(settings.MaxConcurrent)
	sem := e.semaphoreFor(settings.MaxConcurrent)

	items, err := e.store.ListQueueItems(ctx)
	if err != nil {
		e.logger.Error("queue: list items", "error", err)
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	for _, item := range items {
		if item.Status != types.QueuePending {
			continue
		}

		e.mu.Lock()
		_, already := e.active[item.ID]
		e.mu.Unlock()
		if already {
			continue
		}

		if !sem.TryAcquire(1) {
			break
		}

		e.mu.Lock()
		e.active[item.ID] = struct{}{}
		e.mu.Unlock()

		go e.runItem(ctx, item, sem)
	}
}

func (e *Engine) runItem(ctx context.Context, item types.QueueItem, sem *semaphore.Weighted) {
	defer func() {
		e.mu.Lock()
		delete(e.active, item.ID)
		e.mu.Unlock()
		sem.Release(1)

		e.autoPlayMu.RLock()
		autoPlay := e.autoPlay
		e.autoPlayMu.RUnlock()
		if autoPlay {
			e.Kick()
		}
	}()

	if err := e.store.UpdateQueueItemStatus(ctx, item.ID, types.QueueRunning); err != nil {
		e.logger.Error("queue: transition to running", "item", item.ID, "error", err)
		return
	}

	c, err := e.clients.GetClient(ctx, item.Metadata.EnvironmentName)
	if err != nil {
		e.finish(ctx, item.ID, types.QueueFailed, &types.QueueResult{
			Results: []types.OperationResult{{Error: err}},
		})
		return
	}

	result := types.QueueResult{Results: make([]types.OperationResult, 0, len(item.Operations))}
	for _, op := range item.Operations {
		opResult, err := operation.Execute(ctx, c, e.store, op)
		result.Results = append(result.Results, opResult)
		if err != nil || !opResult.Succeeded() {
			e.finish(ctx, item.ID, types.QueueFailed, &result)
			return
		}
	}

	e.finish(ctx, item.ID, types.QueueDone, &result)
}

func (e *Engine) finish(ctx context.Context, id string, status types.QueueStatus, result *types.QueueResult) {
	if err := e.store.UpdateQueueItemResult(ctx, id, result); err != nil {
		e.logger.Error("queue: persist result", "item", id, "error", err)
	}
	if err := e.store.UpdateQueueItemStatus(ctx, id, status); err != nil {
		e.logger.Error("queue: transition status", "item", id, "status", status, "error", err)
	}
}
