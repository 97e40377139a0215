// Package alert delivers webhook notifications for high-urgency tickets
// and master incidents. Delivery is best effort: failures are logged and
// never retried, and a full queue drops the event rather than stalling
// the drain path.
package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/triagex/backend/internal/core"
)

// EventType classifies outbound webhook events.
type EventType string

const (
	// EventMasterIncident fires once when a ticket storm is declared.
	EventMasterIncident EventType = "incident.master"
	// EventHighUrgency fires for an individual high-urgency ticket
	// outside a storm.
	EventHighUrgency EventType = "ticket.high_urgency"
)

// Event is the webhook payload.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Notifier is the alerting contract the drain worker depends on.
type Notifier interface {
	Notify(ticket core.Ticket, verdict core.Verdict)
}

// Dispatcher sends webhook events from a background worker pool.
type Dispatcher struct {
	url       string
	threshold float64 // urgency above which individual alerts fire
	client    *http.Client
	queue     chan *Event
	logger    *slog.Logger
	wg        sync.WaitGroup

	onDelivery func(status string) // optional metrics hook
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDeliveryHook registers a callback per delivery attempt with status
// "delivered", "failed", or "dropped".
func WithDeliveryHook(fn func(status string)) Option {
	return func(d *Dispatcher) { d.onDelivery = fn }
}

// NewDispatcher builds a dispatcher posting to url. An empty url
// disables alerting entirely: Notify becomes a no-op and no workers
// start.
func NewDispatcher(url string, threshold float64, workers int, logger *slog.Logger, opts ...Option) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if threshold <= 0 {
		threshold = 0.8
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		url:       url,
		threshold: threshold,
		client:    &http.Client{Timeout: 5 * time.Second},
		queue:     make(chan *Event, 256),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}

	if url == "" {
		logger.Info("webhook URL not set, alerting disabled")
		return d
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify applies the storm-verdict gate and enqueues at most one event:
//
//	master   → one master-incident webhook, individual alert suppressed
//	suppress → nothing
//	normal   → individual webhook when urgency exceeds the threshold
func (d *Dispatcher) Notify(ticket core.Ticket, verdict core.Verdict) {
	if d.url == "" {
		return
	}

	var event *Event
	switch verdict {
	case core.VerdictMaster:
		event = d.newEvent(EventMasterIncident, ticket)
	case core.VerdictSuppress:
		return
	default:
		if ticket.Urgency <= d.threshold {
			return
		}
		event = d.newEvent(EventHighUrgency, ticket)
	}

	select {
	case d.queue <- event:
	default:
		d.logger.Warn("alert queue full, dropping event", "event_id", event.ID, "type", event.Type)
		if d.onDelivery != nil {
			d.onDelivery("dropped")
		}
	}
}

func (d *Dispatcher) newEvent(eventType EventType, ticket core.Ticket) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "/ticket",
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"ticket_id": ticket.ID,
			"category":  ticket.Category,
			"urgency":   ticket.Urgency,
			"preview":   previewText(ticket.Text),
		},
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("failed to marshal alert event", "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		d.logger.Error("failed to build alert request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Triage-Event-Type", string(event.Type))
	req.Header.Set("X-Triage-Event-ID", event.ID)

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("webhook delivery failed", "url", d.url, "error", err)
		if d.onDelivery != nil {
			d.onDelivery("failed")
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		d.logger.Warn("webhook returned error status", "status", resp.StatusCode, "type", event.Type)
		if d.onDelivery != nil {
			d.onDelivery("failed")
		}
		return
	}

	d.logger.Info("webhook delivered", "type", event.Type, "event_id", event.ID)
	if d.onDelivery != nil {
		d.onDelivery("delivered")
	}
}

// Shutdown drains the queue and stops the workers.
func (d *Dispatcher) Shutdown() {
	close(d.queue)
	d.wg.Wait()
}

func previewText(text string) string {
	const max = 120
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return fmt.Sprintf("%s...", text[:cut])
}
