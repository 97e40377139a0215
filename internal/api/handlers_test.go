package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagex/backend/internal/core"
	"github.com/triagex/backend/internal/queue"
	"github.com/triagex/backend/internal/routing"
	"github.com/triagex/backend/internal/triage"
)

// memBroker is an in-memory Broker double with a switchable failure mode.
type memBroker struct {
	pushed [][]byte
	fail   bool
}

func (m *memBroker) PushLeft(_ context.Context, value []byte) error {
	if m.fail {
		return errors.New("connection refused")
	}
	m.pushed = append(m.pushed, value)
	return nil
}

func (m *memBroker) Depth(_ context.Context) (int64, error) {
	if m.fail {
		return 0, errors.New("connection refused")
	}
	return int64(len(m.pushed)), nil
}

func newTestServer(t *testing.T) (*Server, *memBroker, *queue.PriorityQueue) {
	t.Helper()
	b := &memBroker{}
	q := queue.New(queue.NewStore(filepath.Join(t.TempDir(), "queue_store.json")), nil)
	r := routing.NewRegistry([]*routing.Agent{
		{ID: "A1", Name: "Agent X (Tech Lead)", Skills: map[core.Category]float64{core.CategoryTechnical: 0.9}, Capacity: 2},
		{ID: "A2", Name: "Agent Y (Billing Pro)", Skills: map[core.Category]float64{core.CategoryBilling: 0.9}, Capacity: 3},
	})
	breaker := triage.New(nil, nil, 500*time.Millisecond, 3, nil)
	return NewServer(breaker, b, q, r, nil, 0.75, 50, nil), b, q
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestSubmitTicketAccepted(t *testing.T) {
	s, b, _ := newTestServer(t)

	payload := []byte(`{"id":"T001","text":"The server crashed and nothing loads, this is urgent ASAP!"}`)
	rr := doRequest(t, s, http.MethodPost, "/ticket", payload)

	require.Equal(t, http.StatusAccepted, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "T001", body["ticket_id"])
	assert.Equal(t, string(core.CategoryTechnical), body["category"])

	require.Len(t, b.pushed, 1)
	var ticket core.Ticket
	require.NoError(t, json.Unmarshal(b.pushed[0], &ticket))
	assert.Equal(t, "T001", ticket.ID)
	assert.Equal(t, core.ModelFallback, ticket.ModelUsed)
	assert.False(t, ticket.Processed, "broker records are unprocessed until drained")
	assert.False(t, ticket.Timestamp.IsZero())
}

func TestSubmitTicketValidation(t *testing.T) {
	s, b, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"id": "T1", "text": `},
		{"missing id", `{"text":"help me"}`},
		{"empty text", `{"id":"T1","text":""}`},
		{"whitespace text", `{"id":"T1","text":"   \t "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, s, http.MethodPost, "/ticket", []byte(tc.body))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
	assert.Empty(t, b.pushed, "rejected submissions never reach the broker")
}

func TestSubmitTicketBrokerDown(t *testing.T) {
	s, b, _ := newTestServer(t)
	b.fail = true

	payload := []byte(`{"id":"T001","text":"cannot log in"}`)
	rr := doRequest(t, s, http.MethodPost, "/ticket", payload)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "broker unavailable", decodeBody(t, rr)["error"])
}

func TestViewQueueOrdering(t *testing.T) {
	s, _, q := newTestServer(t)
	q.Enqueue(core.Ticket{ID: "low", Text: "minor question", Urgency: 0.2})
	q.Enqueue(core.Ticket{ID: "high", Text: "everything is broken", Urgency: 0.9})
	q.Enqueue(core.Ticket{ID: "mid", Text: "billing issue", Urgency: 0.5})

	rr := doRequest(t, s, http.MethodGet, "/queue", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		PQDepth int           `json:"pq_depth"`
		Tickets []core.Ticket `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.PQDepth)
	require.Len(t, body.Tickets, 3)
	assert.Equal(t, "high", body.Tickets[0].ID)
	assert.Equal(t, "mid", body.Tickets[1].ID)
	assert.Equal(t, "low", body.Tickets[2].ID)

	// Viewing never consumes.
	assert.Equal(t, 3, q.Size())
}

func TestViewQueueLimitClamped(t *testing.T) {
	s, _, q := newTestServer(t)
	for i := 0; i < 5; i++ {
		q.Enqueue(core.Ticket{ID: string(rune('a' + i)), Urgency: float64(i) / 10})
	}

	rr := doRequest(t, s, http.MethodGet, "/queue?limit=2", nil)
	var body struct {
		Tickets []core.Ticket `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Tickets, 2)

	// Nonsense limits fall back to something sane.
	rr = doRequest(t, s, http.MethodGet, "/queue?limit=-3", nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Tickets, 1)

	rr = doRequest(t, s, http.MethodGet, "/queue?limit=99999", nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Tickets, 5)
}

func TestNextTicketPopsMostUrgent(t *testing.T) {
	s, _, q := newTestServer(t)
	q.Enqueue(core.Ticket{ID: "low", Urgency: 0.2})
	q.Enqueue(core.Ticket{ID: "high", Urgency: 0.9})

	rr := doRequest(t, s, http.MethodGet, "/ticket/next", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var ticket core.Ticket
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ticket))
	assert.Equal(t, "high", ticket.ID)
	assert.Equal(t, 1, q.Size())
}

func TestNextTicketEmptyQueue(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodGet, "/ticket/next", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "queue is empty", decodeBody(t, rr)["error"])
}

func TestRouteReturnsAssignments(t *testing.T) {
	s, _, q := newTestServer(t)
	q.Enqueue(core.Ticket{ID: "T1", Text: "app crashes on launch", Category: core.CategoryTechnical, Urgency: 0.8})
	q.Enqueue(core.Ticket{ID: "T2", Text: "double charge on invoice", Category: core.CategoryBilling, Urgency: 0.6})

	rr := doRequest(t, s, http.MethodPost, "/route", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Assignments []core.Assignment `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Assignments, 2)

	byTicket := make(map[string]core.Assignment)
	for _, a := range body.Assignments {
		byTicket[a.TicketID] = a
	}
	assert.Equal(t, "Agent X (Tech Lead)", byTicket["T1"].AgentName)
	assert.Equal(t, "Agent Y (Billing Pro)", byTicket["T2"].AgentName)

	// Routing is a plan over a snapshot; the queue is untouched.
	assert.Equal(t, 2, q.Size())
}

func TestAgentsStatus(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodGet, "/agents", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var agents []core.AgentStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &agents))
	require.Len(t, agents, 2)
	assert.Equal(t, "A1", agents[0].ID)
	assert.Equal(t, 0, agents[0].CurrentLoad)
}

func TestHealthReportsBrokerOutage(t *testing.T) {
	s, b, q := newTestServer(t)
	q.Enqueue(core.Ticket{ID: "T1", Urgency: 0.5})

	rr := doRequest(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["broker_depth"])
	assert.Equal(t, float64(1), body["pq_depth"])

	// Broker outage degrades the depth reading, not the endpoint.
	b.fail = true
	rr = doRequest(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(-1), decodeBody(t, rr)["broker_depth"])
}

func TestIndexListsEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Contains(t, body, "endpoints")
}

func TestCORSHeaders(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/ticket", nil)
	preflight := httptest.NewRecorder()
	s.Router().ServeHTTP(preflight, req)
	assert.Equal(t, http.StatusOK, preflight.Code)
	assert.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
}
