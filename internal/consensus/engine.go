// Package consensus reduces multiple agent answers for one task to a single
// accepted result, tolerating up to f faulty or adversarial agents.
//
// The protocol is majority-with-similarity voting, not cryptographic BFT:
// answers are bucketed by canonical signature (exact digests for structured
// payloads, similarity bucketing for free text) and a bucket wins when its
// support reaches f+1 and strictly exceeds every other bucket. Requiring an
// f+1 plurality among 2f+1 responses guarantees the winning bucket cannot
// consist solely of faulty votes. Agents are cooperating local processes, so
// message authentication is out of scope.
package consensus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/concordlabs/concord/pkg/models"
)

// Proposal is one pending agent call feeding a consensus round.
type Proposal func(ctx context.Context) (*models.AgentAnswer, error)

// Engine runs consensus rounds.
type Engine struct {
	threshold float64
	embedder  Embedder
	logger    *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSimilarityThreshold overrides the free-text bucketing threshold.
func WithSimilarityThreshold(t float64) EngineOption {
	return func(e *Engine) { e.threshold = t }
}

// WithEmbedder sets the embedding backend used for answers that arrive
// without a vector. Without one the engine falls back to lexical similarity.
func WithEmbedder(emb Embedder) EngineOption {
	return func(e *Engine) { e.embedder = emb }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine with the given options.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		threshold: DefaultSimilarityThreshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the effective similarity threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

// Run executes one full consensus round: it fans out the proposals, waits
// for up to 2f+1 answers or the timeout, and resolves the collected set.
func (e *Engine) Run(ctx context.Context, round *Round, proposals []Proposal, f int, timeout time.Duration) Outcome {
	answers := e.collect(ctx, proposals, timeout)
	return e.Resolve(ctx, round, answers, f)
}

// collect runs the proposals concurrently and gathers the answers that
// arrive before the timeout. Individual proposal errors are logged and
// counted as missing votes, never propagated.
func (e *Engine) collect(ctx context.Context, proposals []Proposal, timeout time.Duration) []*models.AgentAnswer {
	cctx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var mu sync.Mutex
	var answers []*models.AgentAnswer

	g, gctx := errgroup.WithContext(cctx)
	for _, propose := range proposals {
		propose := propose
		g.Go(func() error {
			answer, err := propose(gctx)
			if err != nil {
				e.logger.Warn("proposal failed", zap.Error(err))
				return nil
			}
			if answer.Empty() {
				e.logger.Warn("proposal returned empty answer")
				return nil
			}
			mu.Lock()
			answers = append(answers, answer)
			mu.Unlock()
			return nil
		})
	}
	// Proposal errors are swallowed above, so Wait only surfaces context
	// cancellation, which the resolver handles via the short answer set.
	_ = g.Wait()

	return answers
}

// Resolve reduces collected answers to an outcome:
//
//  1. Each answer is canonicalized into a signature bucket.
//  2. Support is tallied per bucket.
//  3. A bucket whose support is >= f+1 and strictly exceeds every other
//     bucket's support wins; its representative answer is accepted.
//  4. If all 2f+1 answers arrived and no bucket clears the plurality,
//     the outcome is no_quorum.
//  5. If fewer than 2f+1 answers arrived, the outcome is timed_out.
//
// For f=0 the quorum size is 1 and the single answer wins immediately;
// with several respondents and f=0 any strict leader wins, which makes the
// zero-fault case effectively first-distinct-response-wins. That is a
// deliberate simplification.
func (e *Engine) Resolve(ctx context.Context, round *Round, answers []*models.AgentAnswer, f int) Outcome {
	need := 2*f + 1

	for _, answer := range answers {
		e.ensureEmbedding(ctx, answer)
		round.Observe(answer)
	}

	outcome := Outcome{
		Kind:    OutcomePending,
		Buckets: len(round.buckets),
		Answers: len(round.answers),
	}

	if len(round.answers) < need {
		outcome.Kind = OutcomeTimedOut
		e.logger.Info("consensus timed out",
			zap.Int("round", round.Number),
			zap.Int("answers", len(round.answers)),
			zap.Int("needed", need))
		return outcome
	}

	leader, strict := round.Leader()
	if leader != nil && strict && len(leader.members) >= f+1 {
		outcome.Kind = OutcomeAccepted
		outcome.Accepted = leader.rep
		outcome.Support = len(leader.members)
		e.logger.Info("consensus accepted",
			zap.Int("round", round.Number),
			zap.String("task", leader.rep.TaskID),
			zap.Int("support", outcome.Support),
			zap.Int("buckets", outcome.Buckets))
		return outcome
	}

	outcome.Kind = OutcomeNoQuorum
	e.logger.Info("consensus reached no quorum",
		zap.Int("round", round.Number),
		zap.Int("buckets", outcome.Buckets),
		zap.Int("answers", outcome.Answers))
	return outcome
}

// ensureEmbedding backfills an answer's vector from the configured embedder.
// Failures leave the answer on the lexical-similarity path.
func (e *Engine) ensureEmbedding(ctx context.Context, answer *models.AgentAnswer) {
	if e.embedder == nil || answer.Structured || len(answer.Embedding) > 0 || answer.Empty() {
		return
	}
	vec, err := e.embedder.Embed(ctx, answer.Content)
	if err != nil {
		e.logger.Warn("embedding failed, using lexical similarity",
			zap.String("agent", answer.AgentID), zap.Error(err))
		return
	}
	answer.Embedding = vec
}
