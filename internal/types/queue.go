package types

import "time"

// QueueStatus is the lifecycle state of a QueueItem. Legal transitions are
// enforced by internal/queue, not by this type:
//
//	Pending --start--> Running --ok--> Done
//	                        \--fail--> Failed --retry--> Pending
//	                        \--pause-> Paused --resume-> Pending
//	Running --interrupt--> Paused (was_interrupted=true)
type QueueStatus int

const (
	QueuePending QueueStatus = iota
	QueueRunning
	QueuePaused
	QueueDone
	QueueFailed
)

func (s QueueStatus) String() string {
	switch s {
	case QueuePending:
		return "pending"
	case QueueRunning:
		return "running"
	case QueuePaused:
		return "paused"
	case QueueDone:
		return "done"
	case QueueFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// QueueFilter is a view filter over QueueItems; it never affects scheduling,
// only which items a list/query call returns to a caller.
type QueueFilter int

const (
	QueueFilterAll QueueFilter = iota
	QueueFilterPending
	QueueFilterRunning
	QueueFilterPaused
	QueueFilterFailed
)

// QueueSortMode orders the queue view, independent of scheduling order.
type QueueSortMode int

const (
	QueueSortPriority QueueSortMode = iota
	QueueSortCreatedAt
)

// QueueMetadata carries descriptive, non-authoritative context about a
// QueueItem's origin.
type QueueMetadata struct {
	EnvironmentName   string
	SourceDescription string
}

// QueueResult is the aggregated outcome of a finished QueueItem's operation
// sequence.
type QueueResult struct {
	Results []OperationResult
}

// QueueItem is a persisted unit of work: a list of Operations executed
// sequentially against one environment's Client.
type QueueItem struct {
	ID             string
	Operations     []Operation
	Metadata       QueueMetadata
	Status         QueueStatus
	Priority       int // 0 = highest
	Result         *QueueResult
	WasInterrupted bool
	InterruptedAt  *time.Time
	CreatedAt      time.Time
	StartedAt      *time.Time // runtime only, never persisted
}

// QueueSettings is the process-wide singleton governing scheduler behavior.
type QueueSettings struct {
	AutoPlay      bool
	MaxConcurrent int
	Filter        QueueFilter
	SortMode      QueueSortMode
}
