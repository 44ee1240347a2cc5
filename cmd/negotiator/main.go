package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dealsense/negotiator/internal/analytics"
	"github.com/dealsense/negotiator/internal/composer"
	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
	"github.com/dealsense/negotiator/internal/engine"
	"github.com/dealsense/negotiator/internal/market"
	"github.com/dealsense/negotiator/internal/negotiation"
	"github.com/dealsense/negotiator/internal/pkg/config"
	"github.com/dealsense/negotiator/internal/scraper"
	"github.com/dealsense/negotiator/internal/server"
	"github.com/dealsense/negotiator/internal/storage/memory"
	"github.com/dealsense/negotiator/internal/storage/sqlite"
	"github.com/dealsense/negotiator/internal/telemetry"
	"github.com/dealsense/negotiator/internal/transport/direct"
	"github.com/dealsense/negotiator/internal/transport/ws"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("NEGOTIATOR_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracer, err := telemetry.InitTracer("negotiator", logger)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	sessionStore, outcomeStore, err := openStores(cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer sessionStore.Close()

	recorder := analytics.NewRecorder(outcomeStore, cfg.Policy.OutcomeLogCap, logger)
	hub := ws.NewHub(logger)
	publisher := direct.NewFanout(logger, direct.NewPublisher(logger), hub)

	opts := []engine.Option{
		engine.WithStore(sessionStore),
		engine.WithAnalytics(recorder),
		engine.WithMarket(market.New()),
		engine.WithComposer(composer.New()),
		engine.WithComposerTimeout(cfg.Composer.Timeout),
		engine.WithPublisher(publisher),
		engine.WithTactics(negotiation.NewTacticSelector(effectivenessOverrides(cfg))),
		engine.WithPolicy(engine.Policy{
			CounterMargin: cfg.Policy.CounterMargin,
			Intervention: negotiation.InterventionPolicy{
				DeadlockMessageCount: cfg.Policy.DeadlockMessageCount,
				DeadlockWindow:       cfg.Policy.DeadlockWindow,
			},
			Completion: negotiation.CompletionPolicy{
				MessageBudget: cfg.Policy.MessageBudget,
			},
		}),
		engine.WithLogger(logger),
	}
	if cfg.Scraper.BaseURL != "" {
		opts = append(opts, engine.WithScraper(
			scraper.New(cfg.Scraper.BaseURL, scraper.WithTimeout(cfg.Scraper.Timeout))))
	}
	eng := engine.New(opts...)
	defer eng.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.New(eng, hub, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("negotiator listening",
			slog.Int("port", cfg.Server.Port),
			slog.String("storage", cfg.Storage.Type))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func openStores(cfg *config.Config) (ports.SessionStore, ports.OutcomeStore, error) {
	switch cfg.Storage.Type {
	case "memory":
		store := memory.New()
		return store, store, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Storage.SQLite.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, err
			}
		}
		store, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func effectivenessOverrides(cfg *config.Config) negotiation.EffectivenessTable {
	if len(cfg.Policy.Effectiveness) == 0 {
		return nil
	}
	table := make(negotiation.EffectivenessTable, len(cfg.Policy.Effectiveness))
	for _, entry := range cfg.Policy.Effectiveness {
		scores := make(map[domain.Personality]float64, len(entry.Scores))
		for personality, score := range entry.Scores {
			scores[domain.Personality(personality)] = score
		}
		table[domain.Tactic(entry.Tactic)] = scores
	}
	return table
}
