// Package worker drains the broker FIFO into the priority queue. A
// single loop pops tickets, obtains the storm verdict, enqueues, and
// hands off alerting. Semantics are at-least-once: a crash between pop
// and enqueue loses that record.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/triagex/backend/internal/alert"
	"github.com/triagex/backend/internal/broker"
	"github.com/triagex/backend/internal/core"
	"github.com/triagex/backend/internal/dedup"
	"github.com/triagex/backend/internal/monitoring"
	"github.com/triagex/backend/internal/queue"
)

// Broker is the FIFO the worker drains.
type Broker interface {
	BlockingPopRight(ctx context.Context, timeout time.Duration) ([]byte, error)
}

const (
	popTimeout   = 2 * time.Second
	retryBackoff = 2 * time.Second
)

// Worker is the process-wide drain loop.
type Worker struct {
	broker   Broker
	queue    *queue.PriorityQueue
	dedup    *dedup.Deduplicator
	notifier alert.Notifier
	metrics  *monitoring.Metrics
	logger   *slog.Logger
}

// New wires a drain worker. metrics may be nil.
func New(b Broker, q *queue.PriorityQueue, d *dedup.Deduplicator, n alert.Notifier, m *monitoring.Metrics, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{broker: b, queue: q, dedup: d, notifier: n, metrics: m, logger: logger}
}

// Run loops until ctx is canceled. Broker errors back off and retry;
// malformed records are logged and skipped so one bad record cannot
// wedge the loop.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("drain worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info("drain worker stopped")
			return
		}

		raw, err := w.broker.BlockingPopRight(ctx, popTimeout)
		if err != nil {
			if errors.Is(err, broker.ErrEmpty) || errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Error("broker pop failed, backing off", "error", err, "backoff", retryBackoff)
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
			}
			continue
		}

		w.process(ctx, raw)
	}
}

// process moves one record from the broker into the priority queue.
func (w *Worker) process(ctx context.Context, raw []byte) {
	var ticket core.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		w.logger.Error("malformed broker record, skipping", "error", err)
		return
	}

	ticket.Processed = true

	verdict := core.VerdictNormal
	if w.dedup != nil {
		v, err := w.dedup.CheckStorm(ctx, ticket.Text)
		if err != nil {
			// Storm detection is advisory; the queue still gets the ticket.
			w.logger.Warn("storm check failed, treating as normal", "ticket_id", ticket.ID, "error", err)
		} else {
			verdict = v
		}
	}

	// The queue tracks work to do, not alerts to send: enqueue happens
	// regardless of the verdict.
	w.queue.Enqueue(ticket)

	if w.metrics != nil {
		w.metrics.StormVerdicts.WithLabelValues(string(verdict)).Inc()
		w.metrics.QueueDepth.Set(float64(w.queue.Size()))
	}

	if ticket.IsHighUrgency {
		w.logger.Warn("high urgency ticket queued",
			"ticket_id", ticket.ID, "category", ticket.Category, "urgency", ticket.Urgency, "verdict", verdict)
	} else {
		w.logger.Info("ticket queued",
			"ticket_id", ticket.ID, "category", ticket.Category, "verdict", verdict)
	}

	if w.notifier != nil {
		w.notifier.Notify(ticket, verdict)
	}
}
