package routing

import (
	"unicode/utf8"

	"github.com/triagex/backend/internal/core"
)

const previewLen = 50

// Assign routes tickets to agent slots by minimum-cost bipartite
// matching. Each agent contributes capacity − current load slots, every
// slot inheriting the parent's skill vector; cost is 1 − skill for the
// ticket's category. Matched tickets are appended to their agent's
// assigned list. When tickets outnumber slots some tickets stay
// unassigned; when slots outnumber tickets some slots idle. Tickets are
// never removed from the priority queue here.
//
// The result is deterministic for a fixed ticket ordering.
func (r *Registry) Assign(tickets []core.Ticket) []core.Assignment {
	if len(tickets) == 0 {
		return []core.Assignment{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Expand remaining capacity into virtual slots.
	var slots []*Agent
	for _, a := range r.agents {
		for n := len(a.assigned); n < a.Capacity; n++ {
			slots = append(slots, a)
		}
	}
	if len(slots) == 0 {
		return []core.Assignment{}
	}

	cost := make([][]float64, len(tickets))
	for i, t := range tickets {
		cost[i] = make([]float64, len(slots))
		for j, slot := range slots {
			cost[i][j] = 1.0 - slot.skill(t.Category)
		}
	}

	match := solveAssignment(cost)

	assignments := make([]core.Assignment, 0, len(tickets))
	for i, j := range match {
		if j < 0 {
			continue
		}
		ticket := tickets[i]
		agent := slots[j]
		agent.assigned = append(agent.assigned, ticket.ID)
		assignments = append(assignments, core.Assignment{
			TicketID:    ticket.ID,
			Category:    ticket.Category,
			AgentName:   agent.Name,
			SkillMatch:  agent.skill(ticket.Category),
			TextPreview: preview(ticket.Text),
		})
	}
	return assignments
}

func preview(text string) string {
	if len(text) > previewLen {
		cut := previewLen
		// Back up to a rune boundary so a multi-byte rune is never split.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text + "..."
}
