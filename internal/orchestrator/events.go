// Package orchestrator schedules tasks over a bounded worker pool, invokes
// agents, and reduces consensus-task fan-out to accepted results.
package orchestrator

import (
	"time"

	"github.com/concordlabs/concord/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskQueued indicates a task became ready and was queued.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a task was dispatched to an agent.
	EventTaskStarted EventType = "task_started"
	// EventTaskAwaitingConsensus indicates answers are being collected.
	EventTaskAwaitingConsensus EventType = "task_awaiting_consensus"
	// EventTaskRetrying indicates a failed attempt will be retried after backoff.
	EventTaskRetrying EventType = "task_retrying"
	// EventTaskSucceeded indicates a task completed with an accepted result.
	EventTaskSucceeded EventType = "task_succeeded"
	// EventTaskFailed indicates a task failed permanently.
	EventTaskFailed EventType = "task_failed"
	// EventRunDone indicates the whole run reached a terminal state.
	EventRunDone EventType = "run_done"
)

// Event is emitted by the orchestrator as a run progresses. The TUI and
// logs consume these; dropping one never affects scheduling.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// Status is the task's status at emission time.
	Status models.TaskStatus
	// Reason classifies failures.
	Reason models.FailureReason
	// Attempt is the dispatch attempt number, 1-indexed.
	Attempt int
	// Message provides additional context about the event.
	Message string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
