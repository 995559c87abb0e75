package models

import "time"

// AgentAnswer is one agent's proposed result for a task. Answers are
// ephemeral: they exist only for the duration of a consensus round and are
// not persisted by the core.
type AgentAnswer struct {
	// TaskID is the task this answer responds to.
	TaskID string `json:"task_id"`
	// AgentID identifies the producing agent.
	AgentID string `json:"agent_id"`
	// Role is the role name of the producing agent.
	Role string `json:"role,omitempty"`
	// Content is the answer payload.
	Content string `json:"content"`
	// Structured indicates Content is a canonical machine-readable payload
	// that must match other answers exactly to count as agreement.
	Structured bool `json:"structured,omitempty"`
	// Confidence is the agent's self-reported confidence in [0, 100].
	Confidence float64 `json:"confidence"`
	// Embedding is an optional vector for similarity comparison of free text.
	Embedding []float32 `json:"embedding,omitempty"`
	// CreatedAt is when the answer was produced.
	CreatedAt time.Time `json:"created_at"`
}

// Empty returns true if the answer carries no usable content.
func (a *AgentAnswer) Empty() bool {
	return a == nil || a.Content == ""
}
