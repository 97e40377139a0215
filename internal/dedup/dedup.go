// Package dedup detects ticket storms: clusters of semantically similar
// submissions arriving inside a sliding time window. The filter keeps a
// mutex-guarded window of recent embeddings and compares each new ticket
// against it by cosine similarity.
package dedup

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/triagex/backend/internal/core"
)

// Embedder maps text to a dense vector. The production embedder is an
// external sentence-embedding model; tests and the default wiring use the
// lexical embedder in this package.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type record struct {
	arrival   time.Time
	text      string
	embedding []float64
}

// Deduplicator is the sliding-window cosine filter.
type Deduplicator struct {
	embedder  Embedder
	threshold float64       // cosine similarity above which two tickets are "the same"
	window    time.Duration // retention window
	stormN    int           // similar-count at which the storm is declared

	mu     sync.Mutex
	recent []record

	logger *slog.Logger
	now    func() time.Time
}

// New builds a deduplicator. Zero-valued parameters take the defaults
// threshold=0.9, window=300s, stormN=10.
func New(embedder Embedder, threshold float64, window time.Duration, stormN int, logger *slog.Logger) *Deduplicator {
	if threshold <= 0 {
		threshold = 0.9
	}
	if window <= 0 {
		window = 300 * time.Second
	}
	if stormN <= 0 {
		stormN = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{
		embedder:  embedder,
		threshold: threshold,
		window:    window,
		stormN:    stormN,
		logger:    logger,
		now:       time.Now,
	}
}

// CheckStorm embeds text, evicts expired records, counts similar recent
// tickets, appends the new record, and returns the verdict:
//
//	master:   similar count == stormN; this submission declares the storm
//	suppress: similar count >  stormN; storm already declared
//	normal:   otherwise
//
// The new ticket is never compared against itself. The embedding call
// happens outside the window lock so slow models do not serialize the
// drain path behind each other.
func (d *Deduplicator) CheckStorm(ctx context.Context, text string) (core.Verdict, error) {
	emb, err := d.embedder.Embed(ctx, text)
	if err != nil {
		return core.VerdictNormal, err
	}

	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Evict anything older than the window.
	kept := d.recent[:0]
	for _, r := range d.recent {
		if now.Sub(r.arrival) < d.window {
			kept = append(kept, r)
		}
	}
	d.recent = kept

	similar := 0
	for _, r := range d.recent {
		if cosine(emb, r.embedding) > d.threshold {
			similar++
		}
	}

	d.recent = append(d.recent, record{arrival: now, text: text, embedding: emb})

	switch {
	case similar == d.stormN:
		d.logger.Warn("ticket storm declared", "similar", similar, "window", d.window)
		return core.VerdictMaster, nil
	case similar > d.stormN:
		return core.VerdictSuppress, nil
	default:
		return core.VerdictNormal, nil
	}
}

// WindowSize returns the number of records currently retained. Exposed
// for health introspection and tests.
func (d *Deduplicator) WindowSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.recent)
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
