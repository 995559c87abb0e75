package agent

import (
	"sync"
)

// Pool is a registry of agents that consensus fan-out draws from.
// Draw hands out agents round-robin; when a draw is larger than the pool,
// agents repeat, which weakens independence but keeps small deployments
// usable.
type Pool struct {
	agents []Agent
	next   int
	mu     sync.Mutex
}

// NewPool creates a pool over the given agents.
func NewPool(agents ...Agent) *Pool {
	return &Pool{agents: agents}
}

// Add registers another agent.
func (p *Pool) Add(a Agent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.agents = append(p.agents, a)
}

// Size returns the number of registered agents.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.agents)
}

// Draw returns n agents starting from the rotation cursor. Consecutive
// draws rotate through the pool so repeated consensus rounds see different
// agent orderings.
func (p *Pool) Draw(n int) []Agent {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.agents) == 0 || n <= 0 {
		return nil
	}

	drawn := make([]Agent, 0, n)
	for i := 0; i < n; i++ {
		drawn = append(drawn, p.agents[p.next%len(p.agents)])
		p.next++
	}
	return drawn
}
