package alert

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagex/backend/internal/core"
)

type webhookRecorder struct {
	mu     sync.Mutex
	events []Event
	server *httptest.Server
}

func newWebhookRecorder(t *testing.T) *webhookRecorder {
	t.Helper()
	rec := &webhookRecorder{}
	rec.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var event Event
		require.NoError(t, json.Unmarshal(body, &event))
		assert.Equal(t, string(event.Type), r.Header.Get("X-Triage-Event-Type"))
		assert.Equal(t, event.ID, r.Header.Get("X-Triage-Event-ID"))

		rec.mu.Lock()
		rec.events = append(rec.events, event)
		rec.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(rec.server.Close)
	return rec
}

func (r *webhookRecorder) received() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func urgentTicket(id string, urgency float64) core.Ticket {
	return core.Ticket{
		ID:       id,
		Text:     "Production database is completely down, every request fails!",
		Category: core.CategoryTechnical,
		Urgency:  urgency,
	}
}

func TestMasterVerdictDeliversIncidentEvent(t *testing.T) {
	rec := newWebhookRecorder(t)
	d := NewDispatcher(rec.server.URL, 0.8, 2, nil)

	d.Notify(urgentTicket("T1", 0.9), core.VerdictMaster)
	d.Shutdown()

	events := rec.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventMasterIncident, events[0].Type)
	assert.Equal(t, "T1", events[0].Data["ticket_id"])
}

func TestSuppressVerdictDeliversNothing(t *testing.T) {
	rec := newWebhookRecorder(t)
	d := NewDispatcher(rec.server.URL, 0.8, 2, nil)

	d.Notify(urgentTicket("T1", 0.95), core.VerdictSuppress)
	d.Shutdown()

	assert.Empty(t, rec.received(), "suppressed tickets never alert, whatever their urgency")
}

func TestNormalVerdictGatedByUrgency(t *testing.T) {
	rec := newWebhookRecorder(t)
	d := NewDispatcher(rec.server.URL, 0.8, 2, nil)

	d.Notify(urgentTicket("low", 0.5), core.VerdictNormal)
	d.Notify(urgentTicket("boundary", 0.8), core.VerdictNormal) // threshold is strict
	d.Notify(urgentTicket("high", 0.9), core.VerdictNormal)
	d.Shutdown()

	events := rec.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventHighUrgency, events[0].Type)
	assert.Equal(t, "high", events[0].Data["ticket_id"])
}

func TestEmptyURLDisablesDispatcher(t *testing.T) {
	d := NewDispatcher("", 0.8, 2, nil)
	d.Notify(urgentTicket("T1", 0.99), core.VerdictMaster)
	d.Shutdown()
}

func TestDeliveryHookReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	var mu sync.Mutex
	var statuses []string
	d := NewDispatcher(server.URL, 0.8, 1, nil, WithDeliveryHook(func(status string) {
		mu.Lock()
		statuses = append(statuses, status)
		mu.Unlock()
	}))

	d.Notify(urgentTicket("T1", 0.9), core.VerdictNormal)
	d.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"failed"}, statuses)
}

func TestPreviewTextKeepsValidUTF8(t *testing.T) {
	short := "brief complaint"
	assert.Equal(t, short, previewText(short))

	// 119 ASCII bytes then a 3-byte rune straddling the 120-byte cut.
	long := strings.Repeat("a", 119) + "支払いが二重に請求されました"
	got := previewText(long)
	assert.True(t, utf8.ValidString(got), "preview must not split a rune: %q", got)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Less(t, len(got), len(long))
}

func TestDeliveryHookReportsSuccess(t *testing.T) {
	rec := newWebhookRecorder(t)

	var mu sync.Mutex
	var statuses []string
	d := NewDispatcher(rec.server.URL, 0.8, 1, nil, WithDeliveryHook(func(status string) {
		mu.Lock()
		statuses = append(statuses, status)
		mu.Unlock()
	}))

	d.Notify(urgentTicket("T1", 0.9), core.VerdictMaster)
	d.Shutdown()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"delivered"}, statuses)
}
