// Package sink delivers finalized task results to whatever wants them:
// a persistent store, a dashboard, or a caller-supplied callback. The
// orchestrator fires results at a Sink and never reads anything back.
package sink

import (
	"context"
	"sync"
)

// Sink receives finalized task results.
type Sink interface {
	// Accept records an accepted result for a task. Errors are the sink's
	// problem; the orchestrator logs and moves on.
	Accept(ctx context.Context, taskID, result string) error
}

// Discard is a Sink that drops everything.
type Discard struct{}

// Accept implements Sink.
func (Discard) Accept(context.Context, string, string) error { return nil }

// Memory is an in-memory Sink, mainly for tests.
type Memory struct {
	mu      sync.Mutex
	results map[string]string
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{results: make(map[string]string)}
}

// Accept implements Sink.
func (m *Memory) Accept(_ context.Context, taskID, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[taskID] = result
	return nil
}

// Get returns the stored result for a task.
func (m *Memory) Get(taskID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.results[taskID]
	return result, ok
}

// Len returns the number of stored results.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

// Fanout duplicates results to several sinks.
type Fanout []Sink

// Accept implements Sink. The first error is returned after every sink has
// been offered the result.
func (f Fanout) Accept(ctx context.Context, taskID, result string) error {
	var firstErr error
	for _, s := range f {
		if err := s.Accept(ctx, taskID, result); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
