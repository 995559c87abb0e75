package orchestrator

import (
	"time"

	"go.uber.org/zap"

	"github.com/concordlabs/concord/internal/agent"
	"github.com/concordlabs/concord/internal/consensus"
	"github.com/concordlabs/concord/internal/sink"
)

// RequiredConfig contains the minimal required configuration for an
// Orchestrator. All fields are required and have no defaults.
type RequiredConfig struct {
	// Agents is the pool proposals are drawn from.
	Agents *agent.Pool
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*options)

// options holds all optional configuration.
type options struct {
	runID             string
	concurrency       int
	maxRetries        int
	backoffBase       time.Duration
	backoffMultiplier float64
	consensusTimeout  time.Duration
	defaultFault      int
	perTaskFault      map[string]int
	redrawOnRetry     bool
	engine            *consensus.Engine
	resultSink        sink.Sink
	logger            *zap.Logger
	events            chan Event
}

func defaultOptions() *options {
	return &options{
		concurrency:       4,
		maxRetries:        3,
		backoffBase:       500 * time.Millisecond,
		backoffMultiplier: 2.0,
		consensusTimeout:  120 * time.Second,
		defaultFault:      1,
		redrawOnRetry:     true,
		resultSink:        sink.Discard{},
		logger:            zap.NewNop(),
	}
}

// WithRunID sets the run identifier, so callers can correlate the report
// with externally scoped storage. Empty means a fresh ID per run.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// WithConcurrency bounds the number of tasks executing simultaneously.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxRetries sets the default number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithBackoff sets the exponential backoff parameters: the first retry waits
// base, each further retry multiplies the wait. A zero base disables waiting,
// which tests rely on.
func WithBackoff(base time.Duration, multiplier float64) Option {
	return func(o *options) {
		o.backoffBase = base
		if multiplier >= 1 {
			o.backoffMultiplier = multiplier
		}
	}
}

// WithConsensusTimeout bounds answer collection for one consensus round.
func WithConsensusTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.consensusTimeout = d
		}
	}
}

// WithDefaultFaultTolerance sets the f used by tasks that request consensus
// without naming their own f.
func WithDefaultFaultTolerance(f int) Option {
	return func(o *options) {
		if f >= 0 {
			o.defaultFault = f
		}
	}
}

// WithPerTaskFaultTolerance overrides f per task ID. A negative value forces
// single-agent execution for that task regardless of what the task requests.
func WithPerTaskFaultTolerance(m map[string]int) Option {
	return func(o *options) { o.perTaskFault = m }
}

// WithRedrawOnRetry controls whether a retried consensus round draws a fresh
// agent sample (true) or replays the previous draw (false).
func WithRedrawOnRetry(redraw bool) Option {
	return func(o *options) { o.redrawOnRetry = redraw }
}

// WithEngine sets the consensus engine.
func WithEngine(e *consensus.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithSink sets the destination for accepted results.
func WithSink(s sink.Sink) Option {
	return func(o *options) {
		if s != nil {
			o.resultSink = s
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.events = make(chan Event, n)
		}
	}
}
