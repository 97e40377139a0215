// Package api exposes the triage pipeline over REST/JSON.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/triagex/backend/internal/monitoring"
	"github.com/triagex/backend/internal/queue"
	"github.com/triagex/backend/internal/routing"
	"github.com/triagex/backend/internal/triage"
)

// Broker is the ingest-side view of the durable FIFO.
type Broker interface {
	PushLeft(ctx context.Context, value []byte) error
	Depth(ctx context.Context) (int64, error)
}

// Server wires the HTTP surface to the pipeline services. All
// collaborators are constructed in main and injected here; the handlers
// hold no state of their own.
type Server struct {
	breaker  *triage.Breaker
	broker   Broker
	queue    *queue.PriorityQueue
	registry *routing.Registry
	metrics  *monitoring.Metrics
	logger   *slog.Logger

	highUrgencyThreshold float64
	peekMax              int
}

// NewServer builds the API server. metrics may be nil.
func NewServer(breaker *triage.Breaker, b Broker, q *queue.PriorityQueue, r *routing.Registry, m *monitoring.Metrics, highUrgencyThreshold float64, peekMax int, logger *slog.Logger) *Server {
	if highUrgencyThreshold <= 0 {
		highUrgencyThreshold = 0.75
	}
	if peekMax <= 0 {
		peekMax = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		breaker:              breaker,
		broker:               b,
		queue:                q,
		registry:             r,
		metrics:              m,
		logger:               logger,
		highUrgencyThreshold: highUrgencyThreshold,
		peekMax:              peekMax,
	}
}

// Router assembles the route table with CORS and request logging.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(corsMiddleware)
	r.Use(s.loggingMiddleware)

	// OPTIONS is routed so the CORS middleware sees preflight requests.
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/ticket", s.handleSubmitTicket).Methods("POST", "OPTIONS")
	r.HandleFunc("/queue", s.handleViewQueue).Methods("GET")
	r.HandleFunc("/ticket/next", s.handleNextTicket).Methods("GET")
	r.HandleFunc("/route", s.handleRoute).Methods("POST", "OPTIONS")
	r.HandleFunc("/agents", s.handleAgents).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
