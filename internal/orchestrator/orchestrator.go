package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/concordlabs/concord/internal/agent"
	"github.com/concordlabs/concord/internal/consensus"
	"github.com/concordlabs/concord/internal/graph"
	"github.com/concordlabs/concord/internal/sink"
	"github.com/concordlabs/concord/pkg/models"
)

// Orchestrator runs a task graph to completion. One Orchestrator value owns
// one run at a time; construct a new one per concurrent run.
type Orchestrator struct {
	agents *agent.Pool
	engine *consensus.Engine
	opts   *options
	sink   sink.Sink
	logger *zap.Logger

	events        chan Event
	droppedEvents atomic.Uint64

	// draws remembers the agent sample per consensus task when
	// redraw-on-retry is disabled.
	draws   map[string][]agent.Agent
	drawsMu sync.Mutex
}

// New creates an Orchestrator from required config plus options.
func New(req RequiredConfig, opts ...Option) *Orchestrator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = consensus.NewEngine(consensus.WithLogger(o.logger))
	}
	if o.events == nil {
		o.events = make(chan Event, 100)
	}

	return &Orchestrator{
		agents: req.Agents,
		engine: o.engine,
		opts:   o,
		sink:   o.resultSink,
		logger: o.logger,
		events: o.events,
		draws:  make(map[string][]agent.Agent),
	}
}

// Events returns the channel for receiving run events. It is closed when
// Run returns.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// DroppedEventCount returns the number of events dropped because the event
// channel was full.
func (o *Orchestrator) DroppedEventCount() uint64 {
	return o.droppedEvents.Load()
}

// emit publishes an event without ever blocking the scheduling loop.
func (o *Orchestrator) emit(event Event) {
	event.Timestamp = time.Now()
	select {
	case o.events <- event:
	default:
		o.droppedEvents.Add(1)
	}
}

// faultToleranceFor resolves the effective consensus policy for a task.
// Precedence: per-task config override (negative forces single-agent), then
// the task's own request (negative means "use the run default f"), then
// single-agent execution.
func (o *Orchestrator) faultToleranceFor(task *models.Task) (int, bool) {
	if f, ok := o.opts.perTaskFault[task.ID]; ok {
		if f < 0 {
			return 0, false
		}
		return f, true
	}
	if task.FaultTolerance != nil {
		if f := *task.FaultTolerance; f >= 0 {
			return f, true
		}
		return o.opts.defaultFault, true
	}
	return 0, false
}

// maxRetriesFor resolves the retry budget for a task. Tasks with a
// non-positive MaxRetries inherit the run default.
func (o *Orchestrator) maxRetriesFor(task *models.Task) int {
	if task.MaxRetries > 0 {
		return task.MaxRetries
	}
	return o.opts.maxRetries
}

// drawFor returns the agent sample for one consensus attempt, honoring the
// redraw-on-retry policy.
func (o *Orchestrator) drawFor(taskID string, n int) []agent.Agent {
	if o.opts.redrawOnRetry {
		return o.agents.Draw(n)
	}

	o.drawsMu.Lock()
	defer o.drawsMu.Unlock()
	if drawn, ok := o.draws[taskID]; ok {
		return drawn
	}
	drawn := o.agents.Draw(n)
	o.draws[taskID] = drawn
	return drawn
}

// Run executes the graph and returns the aggregate report. Construction
// errors surface from graph.Validate before any task is dispatched; after
// that, per-task failures are recorded in the report and never abort the
// run. Cancelling ctx stops new dispatch, lets in-flight calls wind down,
// and marks every non-terminal task cancelled.
func (o *Orchestrator) Run(ctx context.Context, g *graph.Graph) (*RunReport, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	runID := o.opts.runID
	if runID == "" {
		runID = uuid.New().String()[:8]
	}
	startedAt := time.Now()
	o.logger.Info("run starting",
		zap.String("run_id", runID),
		zap.Int("tasks", g.Size()),
		zap.Int("concurrency", o.opts.concurrency))

	cancelled := o.runLoop(ctx, g)
	if cancelled {
		g.MarkCancelled("run cancelled")
	}

	report := buildReport(runID, g, startedAt, cancelled)
	o.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.Elapsed),
		zap.Bool("cancelled", cancelled))

	o.emit(Event{Type: EventRunDone, Message: "run finished"})
	close(o.events)
	return report, nil
}
