package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gabrifc/storycut/internal/config"
	"github.com/gabrifc/storycut/internal/history"
	"github.com/gabrifc/storycut/internal/httpapi"
	"github.com/gabrifc/storycut/internal/model"
	"github.com/gabrifc/storycut/internal/observability"
	"github.com/gabrifc/storycut/internal/stream"
	"github.com/gabrifc/storycut/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	models, err := model.FromSpec(cfg.Models)
	if err != nil {
		log.Fatalf("model registry init failed: %v", err)
	}

	ctx := context.Background()
	historyStore, err := history.NewStore(ctx, cfg.DatabaseURL, cfg.HistoryLimit)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer historyStore.Close()
	if cfg.DatabaseURL != "" {
		log.Printf("history store: postgres")
	} else {
		log.Printf("history store: in-memory (last %d generations)", cfg.HistoryLimit)
	}

	adapter, err := upstream.NewAdapter(upstream.Config{
		Mode:         cfg.UpstreamMode,
		HTTPURL:      cfg.UpstreamHTTPURL,
		GatewayURL:   cfg.UpstreamGatewayURL,
		GatewayToken: cfg.UpstreamGatewayToken,
	})
	if err != nil {
		log.Fatalf("upstream adapter init failed: %v", err)
	}
	log.Printf("upstream mode: %s", cfg.UpstreamMode)

	orchestrator := stream.NewOrchestrator(adapter, metrics)

	api := httpapi.New(cfg, models, orchestrator, historyStore, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
