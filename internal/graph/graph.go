// Package graph provides the dependency graph of tasks for a run.
// Tasks are nodes, and edges represent "blocked by" relationships.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/concordlabs/concord/pkg/models"
)

// ErrCycle indicates a circular dependency was found in the task graph.
var ErrCycle = errors.New("circular dependency detected")

// ErrDuplicateID indicates a task ID was added twice.
var ErrDuplicateID = errors.New("duplicate task id")

// ErrUnknownDependency indicates a task depends on an ID that is not in the graph.
var ErrUnknownDependency = errors.New("dependency references unknown task")

// Graph is a directed acyclic graph of task dependencies. Construction
// (Add/Build) is done by the caller; once a run starts, status transitions
// are owned exclusively by the orchestrator.
type Graph struct {
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to the IDs of tasks it depends on.
	edges map[string][]string
	// dependents maps task ID to the IDs of tasks that depend on it.
	dependents map[string][]string
	// mu protects all mutable state.
	mu sync.RWMutex
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:      make(map[string]*models.Task),
		edges:      make(map[string][]string),
		dependents: make(map[string][]string),
	}
}

// Build constructs a graph from a slice of tasks and validates it.
// Returns the first construction error encountered.
func Build(tasks []*models.Task) (*Graph, error) {
	g := New()
	for _, task := range tasks {
		if err := g.Add(task); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Add registers a task and its dependency edges. Dependencies may reference
// tasks that have not been added yet; Validate catches dangling references
// once construction is complete. Add fails with ErrDuplicateID if the ID is
// already present and with ErrCycle if the new edges close a cycle among
// the tasks registered so far.
func (g *Graph) Add(task *models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[task.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, task.ID)
	}

	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	g.nodes[task.ID] = task
	g.edges[task.ID] = append([]string(nil), task.DependsOn...)
	for _, depID := range task.DependsOn {
		g.dependents[depID] = append(g.dependents[depID], task.ID)
	}

	if g.hasCycleLocked() {
		// Roll back so the graph stays usable after the error.
		for _, depID := range task.DependsOn {
			deps := g.dependents[depID]
			g.dependents[depID] = deps[:len(deps)-1]
		}
		delete(g.nodes, task.ID)
		delete(g.edges, task.ID)
		return fmt.Errorf("%w: adding task %s", ErrCycle, task.ID)
	}

	return nil
}

// Validate verifies every dependency edge points at a registered task.
// The orchestrator calls this before scheduling begins; a failure here is
// fatal and the run never starts.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, deps := range g.edges {
		for _, depID := range deps {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("%w: task %s depends on %s", ErrUnknownDependency, id, depID)
			}
		}
	}
	return nil
}

// hasCycleLocked reports whether the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges.
// Caller must hold g.mu.
func (g *Graph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				// Back edge - cycle detected.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// Ready returns the tasks whose dependencies have all succeeded and whose
// own status is still pending, ordered by descending priority with ties
// broken by ascending task ID. The ordering is deterministic so runs over
// the same graph schedule identically.
func (g *Graph) Ready() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Task
	for id, task := range g.nodes {
		if task.Status != models.TaskStatusPending {
			continue
		}

		satisfied := true
		for _, depID := range g.edges[id] {
			dep, exists := g.nodes[depID]
			if !exists || dep.Status != models.TaskStatusSucceeded {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, task)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority > ready[j].Priority
		}
		return ready[i].ID < ready[j].ID
	})

	return ready
}

// MarkRunning transitions a task to running and counts the attempt.
func (g *Graph) MarkRunning(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if task, ok := g.nodes[id]; ok {
		task.Status = models.TaskStatusRunning
		task.Attempts++
	}
}

// MarkAwaitingConsensus transitions a task to awaiting_consensus.
func (g *Graph) MarkAwaitingConsensus(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if task, ok := g.nodes[id]; ok {
		task.Status = models.TaskStatusAwaitingConsensus
	}
}

// MarkRetrying puts a task back to pending so it can be scheduled again.
// The attempt counter is preserved.
func (g *Graph) MarkRetrying(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if task, ok := g.nodes[id]; ok {
		task.Status = models.TaskStatusPending
	}
}

// MarkSucceeded records an accepted result and unlocks dependents.
func (g *Graph) MarkSucceeded(id, result string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	task, ok := g.nodes[id]
	if !ok {
		return
	}
	now := time.Now()
	task.Status = models.TaskStatusSucceeded
	task.Result = result
	task.CompletedAt = &now
}

// MarkFailed records a permanent failure and cascades it: every transitive
// dependent is failed with FailureUpstream so it never runs.
func (g *Graph) MarkFailed(id string, reason models.FailureReason, detail string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[id]
	if !ok {
		return
	}
	g.failLocked(task, reason, detail)

	// Breadth-first over dependents; a dependent may be reachable through
	// several failed ancestors, the first visit wins.
	queue := append([]string(nil), g.dependents[id]...)
	for len(queue) > 0 {
		depID := queue[0]
		queue = queue[1:]

		dep := g.nodes[depID]
		if dep == nil || dep.Status.Terminal() {
			continue
		}
		g.failLocked(dep, models.FailureUpstream, fmt.Sprintf("dependency %s failed", id))
		queue = append(queue, g.dependents[depID]...)
	}
}

// failLocked sets terminal failure state on a task. Caller must hold g.mu.
func (g *Graph) failLocked(task *models.Task, reason models.FailureReason, detail string) {
	now := time.Now()
	task.Status = models.TaskStatusFailed
	task.Reason = reason
	task.Detail = detail
	task.CompletedAt = &now
}

// MarkCancelled fails every non-terminal task with FailureCancelled.
// Unlike MarkFailed there is no cascade; each task records the external
// signal directly rather than blaming an upstream dependency.
func (g *Graph) MarkCancelled(detail string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, task := range g.nodes {
		if !task.Status.Terminal() {
			g.failLocked(task, models.FailureCancelled, detail)
		}
	}
}

// Done returns true when every task is in a terminal status.
func (g *Graph) Done() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, task := range g.nodes {
		if !task.Status.Terminal() {
			return false
		}
	}
	return true
}

// Get returns the task for an ID, or nil if not found.
func (g *Graph) Get(id string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// Size returns the number of tasks in the graph.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Tasks returns all tasks ordered by ID, for reporting.
func (g *Graph) Tasks() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tasks := make([]*models.Task, 0, len(g.nodes))
	for _, task := range g.nodes {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

// Dependents returns the IDs of tasks that directly depend on the given task.
func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.dependents[id]...)
}

// NonTerminal returns the IDs of tasks not yet in a terminal status.
func (g *Graph) NonTerminal() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ids []string
	for id, task := range g.nodes {
		if !task.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
