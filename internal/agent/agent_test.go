package agent

import (
	"context"
	"testing"

	"github.com/concordlabs/concord/pkg/models"
)

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAnalyst, RoleCoder, RoleReviewer, RoleAdversary} {
		if !r.Valid() {
			t.Errorf("expected %q to be valid", r)
		}
	}
	if Role("intern").Valid() {
		t.Error("expected unknown role to be invalid")
	}
}

func TestRoleSystemPrompt(t *testing.T) {
	for _, r := range []Role{RoleAnalyst, RoleCoder, RoleReviewer, RoleAdversary} {
		prompt := r.SystemPrompt()
		if prompt == "" {
			t.Errorf("role %s: empty system prompt", r)
		}
		if prompt == confidenceInstruction {
			t.Errorf("role %s: prompt missing role text", r)
		}
	}

	// Unknown roles fall back to the analyst prompt rather than panicking.
	if Role("intern").SystemPrompt() != RoleAnalyst.SystemPrompt() {
		t.Error("unknown role should fall back to analyst prompt")
	}
}

func TestSplitConfidence(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantText   string
		wantScore  float64
	}{
		{"trailing line", "Paris is the capital.\nConfidence: 85%", "Paris is the capital.", 85},
		{"no marker", "Paris is the capital.", "Paris is the capital.", defaultConfidence},
		{"bare percent", "I'd say 90% this is Paris.", "I'd say 90% this is Paris.", 90},
		{"colon form", "Answer here\nconfidence: 40", "Answer here", 40},
		{"out of range kept default", "Answer\nConfidence: 400%", "Answer", defaultConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotText, gotScore := splitConfidence(tt.text)
			if gotText != tt.wantText {
				t.Errorf("text: got %q, want %q", gotText, tt.wantText)
			}
			if gotScore != tt.wantScore {
				t.Errorf("score: got %v, want %v", gotScore, tt.wantScore)
			}
		})
	}
}

func TestPoolDrawRotates(t *testing.T) {
	a := NewScriptedAgent("a", RoleAnalyst, ScriptedResponse{Content: "x"})
	b := NewScriptedAgent("b", RoleCoder, ScriptedResponse{Content: "x"})
	c := NewScriptedAgent("c", RoleReviewer, ScriptedResponse{Content: "x"})
	pool := NewPool(a, b, c)

	first := pool.Draw(2)
	second := pool.Draw(2)

	if first[0].ID() != "a" || first[1].ID() != "b" {
		t.Errorf("first draw: got %s,%s", first[0].ID(), first[1].ID())
	}
	if second[0].ID() != "c" || second[1].ID() != "a" {
		t.Errorf("second draw should continue rotation: got %s,%s", second[0].ID(), second[1].ID())
	}
}

func TestPoolDrawWithRepetition(t *testing.T) {
	a := NewScriptedAgent("a", RoleAnalyst, ScriptedResponse{Content: "x"})
	pool := NewPool(a)

	drawn := pool.Draw(3)
	if len(drawn) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(drawn))
	}
	for _, ag := range drawn {
		if ag.ID() != "a" {
			t.Errorf("expected repeated agent a, got %s", ag.ID())
		}
	}
}

func TestPoolDrawEmpty(t *testing.T) {
	pool := NewPool()
	if got := pool.Draw(2); got != nil {
		t.Errorf("expected nil draw from empty pool, got %v", got)
	}
}

func TestScriptedAgentSequence(t *testing.T) {
	agent := NewScriptedAgent("s1", RoleCoder,
		ScriptedResponse{Err: ErrUnavailable},
		ScriptedResponse{Content: "second try", Confidence: 70},
	)

	task := &models.Task{ID: "t1", Spec: "do it"}

	if _, err := agent.Propose(context.Background(), task); err == nil {
		t.Fatal("expected first call to fail")
	}

	answer, err := agent.Propose(context.Background(), task)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if answer.Content != "second try" || answer.Confidence != 70 {
		t.Errorf("unexpected answer: %+v", answer)
	}

	// Script exhausted: last response repeats.
	again, err := agent.Propose(context.Background(), task)
	if err != nil {
		t.Fatalf("third call failed: %v", err)
	}
	if again.Content != "second try" {
		t.Errorf("expected last response to repeat, got %q", again.Content)
	}

	if agent.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", agent.Calls())
	}
}
