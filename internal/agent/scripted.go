package agent

import (
	"context"
	"sync"
	"time"

	"github.com/concordlabs/concord/pkg/models"
)

// ScriptedAgent returns canned answers, errors, or delays in sequence.
// It exists for tests and for dry runs without a model backend.
type ScriptedAgent struct {
	id   string
	role Role

	// Responses are consumed one per Propose call; the last entry repeats
	// once the script runs out.
	Responses []ScriptedResponse

	calls int
	mu    sync.Mutex
}

// ScriptedResponse is one scripted Propose result.
type ScriptedResponse struct {
	Content    string
	Structured bool
	Confidence float64
	Err        error
	Delay      time.Duration
}

// NewScriptedAgent creates a scripted agent with the given identity.
func NewScriptedAgent(id string, role Role, responses ...ScriptedResponse) *ScriptedAgent {
	return &ScriptedAgent{id: id, role: role, Responses: responses}
}

// ID returns the unique identifier of this agent.
func (s *ScriptedAgent) ID() string { return s.id }

// Role returns the agent's role.
func (s *ScriptedAgent) Role() Role { return s.role }

// Calls returns how many times Propose has been invoked.
func (s *ScriptedAgent) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Propose replays the next scripted response.
func (s *ScriptedAgent) Propose(ctx context.Context, task *models.Task) (*models.AgentAnswer, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	s.mu.Unlock()

	if idx < 0 {
		return nil, ErrUnavailable
	}
	resp := s.Responses[idx]

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ErrTimeout
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	confidence := resp.Confidence
	if confidence == 0 {
		confidence = defaultConfidence
	}

	return &models.AgentAnswer{
		TaskID:     task.ID,
		AgentID:    s.id,
		Role:       string(s.role),
		Content:    resp.Content,
		Structured: resp.Structured,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}, nil
}
