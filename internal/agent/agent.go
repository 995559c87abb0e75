// Package agent defines the single capability the orchestrator requires of
// a worker: propose an answer for a task specification. Role variants differ
// only in prompt construction, never in contract, so the orchestrator treats
// every agent identically.
package agent

import (
	"context"
	"errors"

	"github.com/concordlabs/concord/pkg/models"
)

// ErrUnavailable indicates a transport or model error; the call may be retried.
var ErrUnavailable = errors.New("agent unavailable")

// ErrTimeout indicates the agent did not answer within its deadline.
var ErrTimeout = errors.New("agent timed out")

// Agent is a role-specialized worker capable of producing an answer for a
// task specification.
type Agent interface {
	// ID returns the unique identifier of this agent.
	ID() string
	// Role returns the agent's role.
	Role() Role
	// Propose produces an answer for the given task spec. It fails with
	// ErrUnavailable or ErrTimeout; both are recoverable by the caller.
	Propose(ctx context.Context, task *models.Task) (*models.AgentAnswer, error)
}
