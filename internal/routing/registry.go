// Package routing maps queued tickets to human agents by skill. Agents
// expose a skill score per category; the solver expands remaining agent
// capacity into slots and solves a minimum-cost bipartite matching over
// them.
package routing

import (
	"sync"

	"github.com/triagex/backend/internal/core"
)

// Agent is one human agent in the registry.
type Agent struct {
	ID       string
	Name     string
	Skills   map[core.Category]float64
	Capacity int

	assigned []string // ticket ids, guarded by the registry mutex
}

// Registry is the process-wide agent roster. Created at startup and
// mutated only by the assignment solver; the mutex makes concurrent
// /route and /agents calls safe.
type Registry struct {
	mu     sync.Mutex
	agents []*Agent
}

// NewRegistry builds a registry from the configured roster.
func NewRegistry(agents []*Agent) *Registry {
	return &Registry{agents: agents}
}

// Status returns the live capacity and load of every agent.
func (r *Registry) Status() []core.AgentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]core.AgentStatus, 0, len(r.agents))
	for _, a := range r.agents {
		assigned := make([]string, len(a.assigned))
		copy(assigned, a.assigned)
		out = append(out, core.AgentStatus{
			ID:          a.ID,
			Name:        a.Name,
			Skills:      a.Skills,
			Capacity:    a.Capacity,
			CurrentLoad: len(a.assigned),
			Assigned:    assigned,
		})
	}
	return out
}

// skill returns the agent's score for a category, with a 0.1 floor for
// categories missing from the skill map so an unknown category is never
// free.
func (a *Agent) skill(cat core.Category) float64 {
	if s, ok := a.Skills[cat]; ok {
		return s
	}
	return defaultSkill
}

const defaultSkill = 0.1
