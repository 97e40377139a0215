// Package triage implements the latency-bounded classification step. A
// primary (model) classifier and scorer run in parallel under a hard
// deadline; on timeout or error the keyword fallback path answers
// instead, so ingest latency stays bounded no matter what the model does.
package triage

import (
	"context"
	"log/slog"
	"time"

	"github.com/triagex/backend/internal/classify"
	"github.com/triagex/backend/internal/core"
)

// Status tracks a single invocation through its state machine.
type Status int

const (
	StatusRunning           Status = iota // primary dispatched, awaiting joint result
	StatusCompleted                       // primary answered within the deadline
	StatusTimedOut                        // deadline exceeded or primary errored
	StatusFallbackCompleted               // keyword path answered after a timeout
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "RUNNING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusTimedOut:
		return "TIMED_OUT"
	case StatusFallbackCompleted:
		return "FALLBACK_COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// Result is the joint classify+score outcome for one ticket.
type Result struct {
	Category  core.Category
	Urgency   float64
	ModelUsed core.Model
}

// Breaker composes one primary and one fallback classifier/scorer pair.
// Primary work is dispatched through a bounded slot pool so model
// contention cannot balloon into unbounded parallelism. No state is kept
// across invocations: every call starts RUNNING and ends COMPLETED or
// FALLBACK_COMPLETED.
type Breaker struct {
	primary         classify.Classifier
	primaryScorer   classify.Scorer
	fallback        classify.Classifier
	fallbackScorer  classify.Scorer
	timeout         time.Duration
	slots           chan struct{}
	logger          *slog.Logger
	onFallback      func() // optional metrics hook
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFallbackHook registers a callback invoked whenever an invocation
// falls back to the keyword path.
func WithFallbackHook(fn func()) Option {
	return func(b *Breaker) { b.onFallback = fn }
}

// New builds a Breaker. poolSize bounds concurrent primary invocations;
// timeout is the hard deadline on the primary path.
func New(primary classify.Classifier, primaryScorer classify.Scorer, timeout time.Duration, poolSize int, logger *slog.Logger, opts ...Option) *Breaker {
	if poolSize <= 0 {
		poolSize = 4
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Breaker{
		primary:        primary,
		primaryScorer:  primaryScorer,
		fallback:       classify.KeywordClassifier{},
		fallbackScorer: classify.KeywordScorer{},
		timeout:        timeout,
		slots:          make(chan struct{}, poolSize),
		logger:         logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type jointResult struct {
	category core.Category
	urgency  float64
	err      error
}

// Triage classifies and scores text within the configured deadline.
// It never returns an error: primary failures of any kind degrade to the
// keyword path, which is total.
func (b *Breaker) Triage(ctx context.Context, text string) Result {
	if b.primary == nil || b.primaryScorer == nil {
		return b.fallbackResult(ctx, text)
	}

	deadline, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	// Acquire a pool slot; a saturated pool counts against the deadline.
	select {
	case b.slots <- struct{}{}:
	case <-deadline.Done():
		b.logger.Warn("triage pool saturated, using fallback")
		return b.fallbackResult(ctx, text)
	}

	resCh := make(chan jointResult, 1)
	go func() {
		defer func() { <-b.slots }()
		resCh <- b.runPrimary(deadline, text)
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			// Failover, not error surface: treat like a timeout.
			b.logger.Warn("primary triage failed, using fallback", "error", res.err)
			return b.fallbackResult(ctx, text)
		}
		return Result{Category: res.category, Urgency: res.urgency, ModelUsed: core.ModelPrimary}
	case <-deadline.Done():
		b.logger.Warn("primary triage exceeded deadline, using fallback", "timeout", b.timeout)
		return b.fallbackResult(ctx, text)
	}
}

// runPrimary executes classifier and scorer in parallel and joins them.
func (b *Breaker) runPrimary(ctx context.Context, text string) jointResult {
	type scoreResult struct {
		urgency float64
		err     error
	}
	scoreCh := make(chan scoreResult, 1)
	go func() {
		urgency, err := b.primaryScorer.Score(ctx, text)
		scoreCh <- scoreResult{urgency, err}
	}()

	category, err := b.primary.Classify(ctx, text)
	score := <-scoreCh
	if err != nil {
		return jointResult{err: err}
	}
	if score.err != nil {
		return jointResult{err: score.err}
	}
	return jointResult{category: category, urgency: score.urgency}
}

// fallbackResult runs the keyword path. It has no deadline of its own.
func (b *Breaker) fallbackResult(ctx context.Context, text string) Result {
	if b.onFallback != nil {
		b.onFallback()
	}
	category, err := b.fallback.Classify(ctx, text)
	if err != nil {
		category = core.CategoryGeneral
	}
	urgency, err := b.fallbackScorer.Score(ctx, text)
	if err != nil {
		urgency = 0.1
	}
	return Result{Category: category, Urgency: urgency, ModelUsed: core.ModelFallback}
}
