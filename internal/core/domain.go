package core

import "time"

// Category is the support category a ticket is filed under.
type Category string

const (
	CategoryBilling   Category = "Billing"
	CategoryTechnical Category = "Technical"
	CategoryLegal     Category = "Legal"
	CategoryGeneral   Category = "General"
)

// Model identifies which classification path produced a ticket's triage.
type Model string

const (
	ModelPrimary  Model = "primary"
	ModelFallback Model = "fallback"
)

// Verdict is the storm deduplicator's decision for one submission.
type Verdict string

const (
	// VerdictNormal means the ticket is not part of a storm.
	VerdictNormal Verdict = "normal"
	// VerdictMaster fires exactly once when a similarity cluster crosses
	// the storm threshold; it promotes the cluster to a master incident.
	VerdictMaster Verdict = "master"
	// VerdictSuppress means the storm was already declared and this
	// ticket's individual alert should be silenced.
	VerdictSuppress Verdict = "suppress"
)

// Ticket is a classified support submission. Immutable after creation
// except for Processed, which flips when the drain worker moves it from
// the broker into the priority queue.
type Ticket struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	Category      Category  `json:"category"`
	Urgency       float64   `json:"urgency"` // 0..1
	IsHighUrgency bool      `json:"is_high_urgency"`
	Timestamp     time.Time `json:"timestamp"`
	ModelUsed     Model     `json:"model_used"`
	Processed     bool      `json:"processed"`
}

// Assignment is one ticket→agent pairing produced by the routing solver.
type Assignment struct {
	TicketID    string   `json:"ticket_id"`
	Category    Category `json:"category"`
	AgentName   string   `json:"agent_name"`
	SkillMatch  float64  `json:"skill_match"`
	TextPreview string   `json:"text_preview"`
}

// AgentStatus is the live view of one agent returned by /agents.
type AgentStatus struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Skills      map[Category]float64 `json:"skills"`
	Capacity    int                  `json:"capacity"`
	CurrentLoad int                  `json:"current_load"`
	Assigned    []string             `json:"assigned"`
}
