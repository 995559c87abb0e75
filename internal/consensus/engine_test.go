package consensus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/concordlabs/concord/pkg/models"
)

func answer(agent, content string) *models.AgentAnswer {
	return &models.AgentAnswer{
		TaskID:    "task-1",
		AgentID:   agent,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func structured(agent, content string) *models.AgentAnswer {
	a := answer(agent, content)
	a.Structured = true
	return a
}

func TestResolveMajorityAccepts(t *testing.T) {
	// f=1 over {X, X, Y}: X has plurality 2 >= f+1=2 and strictly exceeds Y.
	engine := NewEngine()
	round := NewRound(1, 0)

	outcome := engine.Resolve(context.Background(), round, []*models.AgentAnswer{
		structured("a1", "X"),
		structured("a2", "X"),
		structured("a3", "Y"),
	}, 1)

	if outcome.Kind != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", outcome.Kind)
	}
	if outcome.Accepted.Content != "X" {
		t.Errorf("expected X accepted, got %q", outcome.Accepted.Content)
	}
	if outcome.Support != 2 {
		t.Errorf("expected support 2, got %d", outcome.Support)
	}
}

func TestResolveAllDistinctNoQuorum(t *testing.T) {
	// f=1 over {X, Y, Z}: every bucket is a singleton, none clears f+1=2.
	engine := NewEngine()
	round := NewRound(1, 0)

	outcome := engine.Resolve(context.Background(), round, []*models.AgentAnswer{
		structured("a1", "X"),
		structured("a2", "Y"),
		structured("a3", "Z"),
	}, 1)

	if outcome.Kind != OutcomeNoQuorum {
		t.Fatalf("expected no_quorum, got %s", outcome.Kind)
	}
	if outcome.Buckets != 3 {
		t.Errorf("expected 3 buckets, got %d", outcome.Buckets)
	}
}

func TestResolveTieNoQuorum(t *testing.T) {
	// f=1 over {X, X, Y, Y} (5th vote lost would be timed_out; use f=1 with
	// 2f+1=3 but a 2-2 split over 4 answers to check the strict-lead rule).
	engine := NewEngine()
	round := NewRound(1, 0)

	outcome := engine.Resolve(context.Background(), round, []*models.AgentAnswer{
		structured("a1", "X"),
		structured("a2", "X"),
		structured("a3", "Y"),
		structured("a4", "Y"),
	}, 1)

	if outcome.Kind != OutcomeNoQuorum {
		t.Fatalf("expected no_quorum for tied buckets, got %s", outcome.Kind)
	}
}

func TestResolveShortSetTimedOut(t *testing.T) {
	engine := NewEngine()
	round := NewRound(1, 0)

	outcome := engine.Resolve(context.Background(), round, []*models.AgentAnswer{
		structured("a1", "X"),
		structured("a2", "X"),
	}, 1)

	if outcome.Kind != OutcomeTimedOut {
		t.Fatalf("expected timed_out with 2 of 3 answers, got %s", outcome.Kind)
	}
}

func TestResolveZeroFaultSingleAnswer(t *testing.T) {
	// f=0 degenerates to quorum size 1: the single answer wins.
	engine := NewEngine()
	round := NewRound(1, 0)

	outcome := engine.Resolve(context.Background(), round, []*models.AgentAnswer{
		structured("a1", "X"),
	}, 0)

	if outcome.Kind != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", outcome.Kind)
	}
	if outcome.Support != 1 {
		t.Errorf("expected support 1, got %d", outcome.Support)
	}
}

func TestResolveFreeTextBucketing(t *testing.T) {
	// Near-identical free text lands in one bucket under lexical similarity.
	engine := NewEngine()
	round := NewRound(1, 0.5)

	outcome := engine.Resolve(context.Background(), round, []*models.AgentAnswer{
		answer("a1", "the capital of france is paris"),
		answer("a2", "the capital of france is paris."),
		answer("a3", "berlin is the capital of germany and nothing else"),
	}, 1)

	if outcome.Kind != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s (buckets=%d)", outcome.Kind, outcome.Buckets)
	}
	if outcome.Buckets != 2 {
		t.Errorf("expected 2 buckets, got %d", outcome.Buckets)
	}
}

func TestRepresentativeIsHighestConfidence(t *testing.T) {
	engine := NewEngine()
	round := NewRound(1, 0.5)

	low := answer("a1", "use a red-black tree for the index")
	low.Confidence = 40
	high := answer("a2", "use a red-black tree for the index")
	high.Confidence = 90
	other := answer("a3", "completely different words entirely here now")

	outcome := engine.Resolve(context.Background(), round,
		[]*models.AgentAnswer{low, high, other}, 1)

	if outcome.Kind != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", outcome.Kind)
	}
	if outcome.Accepted.AgentID != "a2" {
		t.Errorf("expected high-confidence representative a2, got %s", outcome.Accepted.AgentID)
	}
}

func TestRunCollectsProposals(t *testing.T) {
	engine := NewEngine()
	round := NewRound(1, 0)

	ok := func(agent string) Proposal {
		return func(ctx context.Context) (*models.AgentAnswer, error) {
			return structured(agent, "X"), nil
		}
	}
	failing := func(ctx context.Context) (*models.AgentAnswer, error) {
		return nil, errors.New("agent unavailable")
	}

	// Two agreeing answers plus one failure: only 2 of 3 arrive.
	outcome := engine.Run(context.Background(), round,
		[]Proposal{ok("a1"), ok("a2"), failing}, 1, time.Second)

	if outcome.Kind != OutcomeTimedOut {
		t.Fatalf("expected timed_out when a vote is lost, got %s", outcome.Kind)
	}

	// All three arriving yields acceptance.
	round2 := NewRound(2, 0)
	outcome = engine.Run(context.Background(), round2,
		[]Proposal{ok("a1"), ok("a2"), ok("a3")}, 1, time.Second)
	if outcome.Kind != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", outcome.Kind)
	}
	if outcome.Support != 3 {
		t.Errorf("expected support 3, got %d", outcome.Support)
	}
}

func TestRunTimeout(t *testing.T) {
	engine := NewEngine()
	round := NewRound(1, 0)

	slow := func(ctx context.Context) (*models.AgentAnswer, error) {
		select {
		case <-time.After(5 * time.Second):
			return structured("slow", "X"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	start := time.Now()
	outcome := engine.Run(context.Background(), round,
		[]Proposal{slow}, 0, 50*time.Millisecond)
	if outcome.Kind != OutcomeTimedOut {
		t.Fatalf("expected timed_out, got %s", outcome.Kind)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("collection did not respect the timeout")
	}
}

type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return nil, errors.New("no vector")
}

func TestResolveUsesEmbedder(t *testing.T) {
	emb := &fixedEmbedder{vectors: map[string][]float32{
		"answer one": {1, 0, 0},
		"answer two": {0.99, 0.1, 0},
		"outlier":    {0, 0, 1},
	}}
	engine := NewEngine(WithEmbedder(emb), WithSimilarityThreshold(0.9))
	round := NewRound(1, engine.Threshold())

	outcome := engine.Resolve(context.Background(), round, []*models.AgentAnswer{
		answer("a1", "answer one"),
		answer("a2", "answer two"),
		answer("a3", "outlier"),
	}, 1)

	if outcome.Kind != OutcomeAccepted {
		t.Fatalf("expected accepted via embedding similarity, got %s", outcome.Kind)
	}
	if outcome.Support != 2 {
		t.Errorf("expected support 2, got %d", outcome.Support)
	}
}
