package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/triagex/backend/internal/core"
)

// TicketRequest is the POST /ticket payload.
type TicketRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "TriageX support ticket triage API",
		"endpoints": map[string]string{
			"health":        "GET /health",
			"submit_ticket": "POST /ticket",
			"view_queue":    "GET /queue",
			"next_ticket":   "GET /ticket/next",
			"route":         "POST /route",
			"agents":        "GET /agents",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// −1 signals broker outage; the process itself is still serving.
	brokerDepth := int64(-1)
	if depth, err := s.broker.Depth(ctx); err == nil {
		brokerDepth = depth
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"broker_depth": brokerDepth,
		"pq_depth":     s.queue.Size(),
	})
}

// handleSubmitTicket validates the submission, triages it under the
// latency bound, and pushes it onto the broker head. It never touches
// the priority queue directly; that is the drain worker's job.
func (s *Server) handleSubmitTicket(w http.ResponseWriter, r *http.Request) {
	var req TicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.ID == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "'id' and non-empty 'text' are required")
		return
	}

	start := time.Now()
	result := s.breaker.Triage(r.Context(), req.Text)
	if s.metrics != nil {
		s.metrics.TriageDuration.Observe(time.Since(start).Seconds())
	}

	ticket := core.Ticket{
		ID:            req.ID,
		Text:          req.Text,
		Category:      result.Category,
		Urgency:       result.Urgency,
		IsHighUrgency: result.Urgency > s.highUrgencyThreshold,
		Timestamp:     time.Now().UTC(),
		ModelUsed:     result.ModelUsed,
		Processed:     false,
	}

	payload, err := json.Marshal(ticket)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode ticket")
		return
	}
	if err := s.broker.PushLeft(r.Context(), payload); err != nil {
		s.logger.Error("broker push failed", "ticket_id", ticket.ID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "broker unavailable")
		return
	}

	if s.metrics != nil {
		s.metrics.TicketsIngested.WithLabelValues(string(ticket.Category), string(ticket.ModelUsed)).Inc()
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":          "accepted",
		"ticket_id":       ticket.ID,
		"category":        ticket.Category,
		"is_high_urgency": ticket.IsHighUrgency,
	})
}

func (s *Server) handleViewQueue(w http.ResponseWriter, r *http.Request) {
	limit := s.parseLimit(r)
	tickets := s.queue.Peek(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pq_depth": s.queue.Size(),
		"tickets":  tickets,
	})
}

func (s *Server) handleNextTicket(w http.ResponseWriter, r *http.Request) {
	ticket, ok := s.queue.Dequeue()
	if !ok {
		writeError(w, http.StatusNotFound, "queue is empty")
		return
	}
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(s.queue.Size()))
	}
	writeJSON(w, http.StatusOK, ticket)
}

// handleRoute builds an assignment plan over a snapshot of the most
// urgent tickets. Visualization endpoint: tickets stay in the queue.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	limit := s.parseLimit(r)
	tickets := s.queue.Peek(limit)
	assignments := s.registry.Assign(tickets)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": assignments,
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Status())
}

// parseLimit reads ?limit=N and clamps it to [1, peekMax], default 10.
func (s *Server) parseLimit(r *http.Request) int {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > s.peekMax {
		limit = s.peekMax
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
