package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/concordlabs/concord/internal/consensus"
	"github.com/concordlabs/concord/internal/graph"
	"github.com/concordlabs/concord/pkg/models"
)

// attemptResult is what one dispatched attempt reports back to the loop.
type attemptResult struct {
	taskID  string
	attempt int
	// result is the accepted answer when failure is empty.
	result string
	// failure classifies the attempt failure; empty means success.
	failure models.FailureReason
	detail  string
}

// runLoop drives the run to completion and reports whether it ended on an
// external cancellation. The loop is the only goroutine that mutates the
// graph; workers communicate exclusively through the completions channel.
func (o *Orchestrator) runLoop(ctx context.Context, g *graph.Graph) bool {
	// Buffers sized to the graph so a worker or retry timer can always
	// deliver without blocking, even if the loop is mid-dispatch.
	completions := make(chan attemptResult, g.Size())
	retryCh := make(chan string, g.Size())

	inflight := 0
	waitingRetries := 0
	cancelled := false
	cancelCh := ctx.Done()

	for {
		if !cancelled {
			for _, task := range g.Ready() {
				if inflight >= o.opts.concurrency {
					break
				}
				o.dispatch(ctx, g, task, completions)
				inflight++
			}
		}

		if inflight == 0 && (cancelled || (g.Done() && waitingRetries == 0)) {
			return cancelled
		}

		select {
		case res := <-completions:
			inflight--
			o.settle(ctx, g, res, retryCh, &waitingRetries, cancelled)
		case id := <-retryCh:
			waitingRetries--
			g.MarkRetrying(id)
			o.emit(Event{
				Type:    EventTaskQueued,
				TaskID:  id,
				Status:  models.TaskStatusPending,
				Message: "retry backoff elapsed",
			})
		case <-cancelCh:
			cancelled = true
			cancelCh = nil
			o.logger.Warn("cancellation requested, draining in-flight tasks",
				zap.Int("inflight", inflight))
		}
	}
}

// dispatch marks a task running and executes one attempt on its own
// goroutine, either single-agent or as a full consensus round.
func (o *Orchestrator) dispatch(ctx context.Context, g *graph.Graph, task *models.Task, completions chan<- attemptResult) {
	if task.Attempts == 0 {
		o.emit(Event{
			Type:   EventTaskQueued,
			TaskID: task.ID,
			Status: models.TaskStatusReady,
		})
	}
	g.MarkRunning(task.ID)
	attempt := task.Attempts
	o.emit(Event{
		Type:    EventTaskStarted,
		TaskID:  task.ID,
		Status:  models.TaskStatusRunning,
		Attempt: attempt,
	})

	f, useConsensus := o.faultToleranceFor(task)

	go func() {
		var res attemptResult
		if useConsensus {
			res = o.runConsensus(ctx, g, task, attempt, f)
		} else {
			res = o.runSingle(ctx, task, attempt)
		}
		completions <- res
	}()
}

// runSingle executes a task with one agent; the first answer is the result.
func (o *Orchestrator) runSingle(ctx context.Context, task *models.Task, attempt int) attemptResult {
	res := attemptResult{taskID: task.ID, attempt: attempt}

	drawn := o.agents.Draw(1)
	if len(drawn) == 0 {
		res.failure = models.FailureAgent
		res.detail = "no agents available"
		return res
	}

	actx := ctx
	if o.opts.consensusTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, o.opts.consensusTimeout)
		defer cancel()
	}

	answer, err := drawn[0].Propose(actx, task)
	if err != nil {
		res.failure = models.FailureAgent
		res.detail = err.Error()
		return res
	}
	if answer.Empty() {
		res.failure = models.FailureAgent
		res.detail = "agent returned empty answer"
		return res
	}
	res.result = answer.Content
	return res
}

// runConsensus fans the task out to 2f+1 agents and reduces the answers.
func (o *Orchestrator) runConsensus(ctx context.Context, g *graph.Graph, task *models.Task, attempt, f int) attemptResult {
	res := attemptResult{taskID: task.ID, attempt: attempt}

	quorum := 2*f + 1
	drawn := o.drawFor(task.ID, quorum)
	if len(drawn) == 0 {
		res.failure = models.FailureAgent
		res.detail = "no agents available"
		return res
	}

	g.MarkAwaitingConsensus(task.ID)
	o.emit(Event{
		Type:    EventTaskAwaitingConsensus,
		TaskID:  task.ID,
		Status:  models.TaskStatusAwaitingConsensus,
		Attempt: attempt,
		Message: fmt.Sprintf("collecting %d answers (f=%d)", quorum, f),
	})

	proposals := make([]consensus.Proposal, len(drawn))
	for i, a := range drawn {
		a := a
		proposals[i] = func(pctx context.Context) (*models.AgentAnswer, error) {
			return a.Propose(pctx, task)
		}
	}

	round := consensus.NewRound(attempt, o.engine.Threshold())
	outcome := o.engine.Run(ctx, round, proposals, f, o.opts.consensusTimeout)

	switch outcome.Kind {
	case consensus.OutcomeAccepted:
		res.result = outcome.Accepted.Content
	case consensus.OutcomeNoQuorum:
		res.failure = models.FailureConsensus
		res.detail = fmt.Sprintf("no quorum among %d answers in %d buckets", outcome.Answers, outcome.Buckets)
	default:
		res.failure = models.FailureConsensus
		res.detail = fmt.Sprintf("quorum timed out with %d of %d answers", outcome.Answers, quorum)
	}
	return res
}

// settle applies one attempt result to the graph: success, retry with
// backoff, or permanent failure with upstream cascade. During cancellation
// a successful in-flight attempt is still recorded, but failures never
// retry; the task stays non-terminal for MarkCancelled to claim.
func (o *Orchestrator) settle(ctx context.Context, g *graph.Graph, res attemptResult, retryCh chan<- string, waitingRetries *int, cancelled bool) {
	if res.failure == "" {
		g.MarkSucceeded(res.taskID, res.result)
		if err := o.sink.Accept(ctx, res.taskID, res.result); err != nil {
			o.logger.Error("result sink rejected accepted result",
				zap.String("task", res.taskID), zap.Error(err))
		}
		o.emit(Event{
			Type:    EventTaskSucceeded,
			TaskID:  res.taskID,
			Status:  models.TaskStatusSucceeded,
			Attempt: res.attempt,
		})
		return
	}

	if cancelled {
		o.logger.Info("dropping failed attempt during cancellation",
			zap.String("task", res.taskID), zap.String("detail", res.detail))
		return
	}

	task := g.Get(res.taskID)
	if res.attempt > o.maxRetriesFor(task) {
		g.MarkFailed(res.taskID, res.failure, res.detail)
		o.emit(Event{
			Type:    EventTaskFailed,
			TaskID:  res.taskID,
			Status:  models.TaskStatusFailed,
			Reason:  res.failure,
			Attempt: res.attempt,
			Message: res.detail,
		})
		o.emitUpstreamFailures(g, res.taskID)
		return
	}

	wait := backoff(o.opts.backoffBase, o.opts.backoffMultiplier, res.attempt)
	o.logger.Info("task attempt failed, retrying",
		zap.String("task", res.taskID),
		zap.Int("attempt", res.attempt),
		zap.Duration("backoff", wait),
		zap.String("detail", res.detail))
	o.emit(Event{
		Type:    EventTaskRetrying,
		TaskID:  res.taskID,
		Status:  models.TaskStatusRunning,
		Reason:  res.failure,
		Attempt: res.attempt,
		Message: res.detail,
	})

	*waitingRetries++
	if wait <= 0 {
		retryCh <- res.taskID
		return
	}
	time.AfterFunc(wait, func() { retryCh <- res.taskID })
}

// emitUpstreamFailures publishes a failure event for every dependent the
// cascade just terminalized.
func (o *Orchestrator) emitUpstreamFailures(g *graph.Graph, id string) {
	seen := map[string]bool{id: true}
	queue := g.Dependents(id)
	for len(queue) > 0 {
		depID := queue[0]
		queue = queue[1:]
		if seen[depID] {
			continue
		}
		seen[depID] = true

		dep := g.Get(depID)
		if dep == nil || dep.Reason != models.FailureUpstream {
			continue
		}
		o.emit(Event{
			Type:    EventTaskFailed,
			TaskID:  depID,
			Status:  models.TaskStatusFailed,
			Reason:  models.FailureUpstream,
			Message: dep.Detail,
		})
		queue = append(queue, g.Dependents(depID)...)
	}
}
