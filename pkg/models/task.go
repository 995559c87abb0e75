package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting on its dependencies.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusReady indicates all dependencies have succeeded and the task
	// can be dispatched.
	TaskStatusReady TaskStatus = "ready"
	// TaskStatusRunning indicates an agent is working on the task.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusAwaitingConsensus indicates agent answers are being collected
	// and reduced to a single result.
	TaskStatusAwaitingConsensus TaskStatus = "awaiting_consensus"
	// TaskStatusSucceeded indicates the task completed with an accepted result.
	TaskStatusSucceeded TaskStatus = "succeeded"
	// TaskStatusFailed indicates the task failed permanently.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusReady, TaskStatusRunning,
		TaskStatusAwaitingConsensus, TaskStatusSucceeded, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is succeeded or failed.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// FailureReason classifies why a task ended up failed.
type FailureReason string

const (
	// FailureNone is the zero value for tasks that have not failed.
	FailureNone FailureReason = ""
	// FailureAgent indicates agent calls kept erroring until retries ran out.
	FailureAgent FailureReason = "agent_failure"
	// FailureConsensus indicates no quorum was reached after retries ran out.
	FailureConsensus FailureReason = "consensus_failure"
	// FailureUpstream indicates a dependency failed; the task never ran.
	FailureUpstream FailureReason = "upstream_failure"
	// FailureCancelled indicates the run was cancelled before the task finished.
	FailureCancelled FailureReason = "cancelled"
)

// Task represents a unit of work in the system.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" yaml:"id"`
	// Priority orders ready tasks; higher priority is scheduled first.
	Priority int `json:"priority" yaml:"priority"`
	// DependsOn lists task IDs that must succeed before this task runs.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	// Spec is the opaque work description handed to agents.
	Spec string `json:"spec" yaml:"spec"`
	// FaultTolerance, when non-nil, requests 2f+1-way consensus with the
	// given f for this task. Nil means single-agent execution under the
	// run's default policy.
	FaultTolerance *int `json:"fault_tolerance,omitempty" yaml:"consensus,omitempty"`
	// MaxRetries is the number of retries allowed after the first attempt.
	// Negative means "use the run default".
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`

	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Result holds the accepted answer, present only when succeeded.
	Result string `json:"result,omitempty"`
	// Reason classifies the failure, present only when failed.
	Reason FailureReason `json:"reason,omitempty"`
	// Detail carries the last error message for failed tasks.
	Detail string `json:"detail,omitempty"`
	// Attempts is the number of dispatch attempts made so far.
	Attempts int `json:"attempts,omitempty"`
	// CompletedAt is when the task reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NeedsConsensus returns true if the task requests N-way consensus.
func (t *Task) NeedsConsensus() bool {
	return t.FaultTolerance != nil
}

// QuorumSize returns the number of answers the task's consensus round
// collects (2f+1), or 1 for single-agent tasks.
func (t *Task) QuorumSize() int {
	if t.FaultTolerance == nil {
		return 1
	}
	return 2*(*t.FaultTolerance) + 1
}
