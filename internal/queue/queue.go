// Package queue holds the in-memory urgency priority queue. The heap is
// keyed by (-urgency, seq): the most urgent ticket pops first, and seq,
// a counter assigned at enqueue time, breaks ties so equal-urgency
// tickets leave in FIFO order. Every mutation is snapshotted to disk so
// a restart resumes with the same queue.
package queue

import (
	"container/heap"
	"log/slog"
	"sort"
	"sync"

	"github.com/triagex/backend/internal/core"
)

// Entry is one heap element. NegUrgency is stored negated so the min-heap
// surfaces the highest urgency first.
type Entry struct {
	NegUrgency float64     `json:"neg_urgency"`
	Seq        int64       `json:"seq"`
	Ticket     core.Ticket `json:"ticket"`
}

// entryHeap implements container/heap over entries ordered by
// (neg_urgency, seq).
type entryHeap []Entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].NegUrgency != h[j].NegUrgency {
		return h[i].NegUrgency < h[j].NegUrgency
	}
	return h[i].Seq < h[j].Seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(Entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PriorityQueue is the process-wide ticket queue. One mutex guards the
// heap and the seq counter; every operation, including Size and Peek,
// takes it.
type PriorityQueue struct {
	mu      sync.Mutex
	heap    entryHeap
	counter int64
	store   *Store
	logger  *slog.Logger
}

// New builds a queue backed by the snapshot store. If the store holds a
// parseable snapshot it is loaded and reheapified; anything else starts
// empty.
func New(store *Store, logger *slog.Logger) *PriorityQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &PriorityQueue{store: store, logger: logger}

	if store != nil {
		snap, err := store.Load()
		if err != nil {
			logger.Warn("queue snapshot unreadable, starting empty", "error", err)
		} else if snap != nil {
			q.counter = snap.TicketCounter
			q.heap = append(q.heap, snap.Tickets...)
			heap.Init(&q.heap)
			logger.Info("queue snapshot restored", "tickets", len(q.heap), "counter", q.counter)
		}
	}
	return q
}

// Enqueue assigns the next seq, pushes the ticket, and snapshots.
func (q *PriorityQueue) Enqueue(t core.Ticket) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.counter++
	heap.Push(&q.heap, Entry{
		NegUrgency: -t.Urgency,
		Seq:        q.counter,
		Ticket:     t,
	})
	q.saveLocked()
}

// Dequeue pops the most urgent ticket and snapshots. The second return
// is false when the queue is empty.
func (q *PriorityQueue) Dequeue() (core.Ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return core.Ticket{}, false
	}
	e := heap.Pop(&q.heap).(Entry)
	q.saveLocked()
	return e.Ticket, true
}

// Peek returns up to limit tickets ordered by urgency (highest first)
// without disturbing the heap: it sorts a copy rather than popping.
func (q *PriorityQueue) Peek(limit int) []core.Ticket {
	q.mu.Lock()
	defer q.mu.Unlock()

	if limit <= 0 {
		return nil
	}

	snapshot := make([]Entry, len(q.heap))
	copy(snapshot, q.heap)
	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].NegUrgency != snapshot[j].NegUrgency {
			return snapshot[i].NegUrgency < snapshot[j].NegUrgency
		}
		return snapshot[i].Seq < snapshot[j].Seq
	})

	if limit > len(snapshot) {
		limit = len(snapshot)
	}
	tickets := make([]core.Ticket, 0, limit)
	for _, e := range snapshot[:limit] {
		tickets = append(tickets, e.Ticket)
	}
	return tickets
}

// Size returns the current number of queued tickets.
func (q *PriorityQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// saveLocked snapshots the heap under the caller's lock. A write failure
// is logged; in-memory state stays authoritative and the next mutation
// retries.
func (q *PriorityQueue) saveLocked() {
	if q.store == nil {
		return
	}
	entries := make([]Entry, len(q.heap))
	copy(entries, q.heap)
	if err := q.store.Save(&Snapshot{TicketCounter: q.counter, Tickets: entries}); err != nil {
		q.logger.Error("queue snapshot write failed", "error", err)
	}
}
