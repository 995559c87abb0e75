package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/concordlabs/concord/internal/llm"
	"github.com/concordlabs/concord/pkg/models"
)

// defaultConfidence is assumed when an answer carries no confidence line.
const defaultConfidence = 50.0

var confidenceRe = regexp.MustCompile(`(?i)(\d+)%|confidence[:\s]*(\d+)`)

// ClaudeAgent proposes answers through the Anthropic API.
type ClaudeAgent struct {
	id      string
	role    Role
	client  *llm.Client
	timeout time.Duration
}

// NewClaudeAgent creates an agent with the given role. A zero timeout
// disables the per-call deadline.
func NewClaudeAgent(role Role, client *llm.Client, timeout time.Duration) *ClaudeAgent {
	return &ClaudeAgent{
		id:      fmt.Sprintf("%s-%s", role, uuid.New().String()[:8]),
		role:    role,
		client:  client,
		timeout: timeout,
	}
}

// ID returns the unique identifier of this agent.
func (a *ClaudeAgent) ID() string { return a.id }

// Role returns the agent's role.
func (a *ClaudeAgent) Role() Role { return a.role }

// Propose sends the task spec to the model and parses the answer.
func (a *ClaudeAgent) Propose(ctx context.Context, task *models.Task) (*models.AgentAnswer, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	text, err := a.client.Complete(ctx, a.role.SystemPrompt(), task.Spec)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, a.id)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, a.id, err)
	}

	content, confidence := splitConfidence(text)
	if content == "" {
		return nil, fmt.Errorf("%w: %s returned empty answer", ErrUnavailable, a.id)
	}

	return &models.AgentAnswer{
		TaskID:     task.ID,
		AgentID:    a.id,
		Role:       string(a.role),
		Content:    content,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}, nil
}

// splitConfidence extracts the self-reported confidence from the response
// and strips the trailing confidence line from the content.
func splitConfidence(text string) (string, float64) {
	confidence := defaultConfidence
	match := confidenceRe.FindStringSubmatch(strings.ToLower(text))
	if match != nil {
		raw := match[1]
		if raw == "" {
			raw = match[2]
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 100 {
			confidence = v
		}
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 0 {
		last := strings.ToLower(strings.TrimSpace(lines[len(lines)-1]))
		if strings.HasPrefix(last, "confidence") {
			lines = lines[:len(lines)-1]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), confidence
}
