package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/triagex/backend/internal/alert"
	"github.com/triagex/backend/internal/api"
	"github.com/triagex/backend/internal/broker"
	"github.com/triagex/backend/internal/config"
	"github.com/triagex/backend/internal/core"
	"github.com/triagex/backend/internal/dedup"
	"github.com/triagex/backend/internal/monitoring"
	"github.com/triagex/backend/internal/queue"
	"github.com/triagex/backend/internal/routing"
	"github.com/triagex/backend/internal/triage"
	"github.com/triagex/backend/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Println("Starting TriageX support ticket pipeline...")

	metrics := monitoring.NewMetrics()

	// Durable broker stage between ingest and the drain worker.
	rb := broker.New(cfg.Broker.Addr, cfg.Broker.QueueKey)
	defer rb.Close()

	// Priority queue restored from the last snapshot.
	store := queue.NewStore(cfg.Queue.SnapshotPath)
	pq := queue.New(store, logger)
	metrics.QueueDepth.Set(float64(pq.Size()))

	// Storm deduplicator. The lexical embedder stands in for a real
	// sentence-embedding model; swap in a model-backed Embedder here.
	dd := dedup.New(dedup.LexicalEmbedder{}, cfg.Storm.Similarity, cfg.StormWindow(), cfg.Storm.Threshold, logger)

	// Agent roster from config.
	agents := make([]*routing.Agent, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		skills := make(map[core.Category]float64, len(a.Skills))
		for cat, s := range a.Skills {
			skills[core.Category(cat)] = s
		}
		agents = append(agents, &routing.Agent{ID: a.ID, Name: a.Name, Skills: skills, Capacity: a.Capacity})
	}
	registry := routing.NewRegistry(agents)

	// Latency-bounded triage. No primary model is wired in this binary,
	// so the keyword path answers everything; plug a classify.ZeroShotModel
	// and classify.SentimentModel here to enable the primary path.
	breaker := triage.New(nil, nil, cfg.ClassifierTimeout(), cfg.Classifier.ModelPoolSize, logger,
		triage.WithFallbackHook(metrics.TriageFallbacks.Inc))

	// Best-effort webhook alerting, suppressed during storms.
	dispatcher := alert.NewDispatcher(cfg.Alerting.WebhookURL, cfg.Alerting.WebhookThreshold, 2, logger,
		alert.WithDeliveryHook(func(status string) {
			metrics.WebhookDeliveries.WithLabelValues(status).Inc()
		}))

	// Drain worker: broker → dedup → queue → alerts.
	ctx, cancel := context.WithCancel(context.Background())
	drain := worker.New(rb, pq, dd, dispatcher, metrics, logger)
	go drain.Run(ctx)

	server := api.NewServer(breaker, rb, pq, registry, metrics,
		cfg.Classifier.HighUrgencyThreshold, cfg.Queue.PeekMax, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
		cancel()
		dispatcher.Shutdown()
	}()

	log.Printf("API listening on :%s", cfg.Server.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Shutdown complete")
}
