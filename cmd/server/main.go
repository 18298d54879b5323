// Attune - Guided Coaching Session Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attune-labs/attune/internal/api"
	"github.com/attune-labs/attune/internal/classify"
	"github.com/attune-labs/attune/internal/config"
	"github.com/attune-labs/attune/internal/engine"
	"github.com/attune-labs/attune/internal/llm"
	"github.com/attune-labs/attune/internal/middleware"
	"github.com/attune-labs/attune/internal/retrieval"
	"github.com/attune-labs/attune/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Generative collaborator (optional). Without an API key the engine runs
	// on its rule ladder and local defaults alone.
	var generator llm.Generator = llm.Disabled{}
	var embedder retrieval.EmbeddingEngine
	if cfg.Generator.Enabled() {
		gen, err := llm.NewGenAIGenerator(context.Background(), llm.GenAIConfig{
			APIKey:  cfg.Generator.APIKey,
			Model:   cfg.Generator.Model,
			Timeout: cfg.Generator.Timeout,
		})
		if err != nil {
			slog.Warn("Failed to initialize generator, generative suggestions disabled", "error", err)
		} else {
			generator = gen
			slog.Info("Generative collaborator initialized", "model", cfg.Generator.Model)
		}

		emb, err := retrieval.NewGenAIEngine(context.Background(), cfg.Generator.APIKey, cfg.Generator.EmbeddingModel)
		if err != nil {
			slog.Warn("Failed to initialize embedding engine, keyword ranking only", "error", err)
		} else {
			embedder = emb
		}
	} else {
		slog.Info("Generative collaborator disabled (GOOGLE_API_KEY not set)")
	}

	retriever, err := retrieval.NewStore(cfg.ExamplesDB, embedder, logger)
	if err != nil {
		slog.Error("Failed to initialize example store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := retriever.Close(); closeErr != nil {
			slog.Error("Failed to close example store", "error", closeErr)
		}
	}()

	eng := engine.New(generator, cfg.CheckpointSteps, logger)
	classifier := classify.NewLexicon()

	// Initialize handlers.
	handler := api.NewHandler(repo, eng, classifier, retriever)
	wsHandler := api.NewWebSocketHandler(handler, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	handler.RegisterRoutes(r)
	r.Get("/ws/sessions/{sessionID}", wsHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTTLWorker(ctx, repo, cfg.SessionTTL)
	slog.Info("TTL worker started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// startTTLWorker periodically removes sessions idle past the TTL.
func startTTLWorker(ctx context.Context, repo store.Repository, ttl time.Duration) {
	interval := ttl / 4
	if interval > 15*time.Minute {
		interval = 15 * time.Minute
	}
	if interval < time.Minute {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := repo.CleanupExpiredSessions(ctx, ttl)
				if err != nil {
					slog.Warn("Session cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Expired sessions removed", "count", deleted)
				}
			}
		}
	}()
}
