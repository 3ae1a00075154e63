package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traffic-advisor-ai/internal/app"
	"traffic-advisor-ai/internal/config"
	"traffic-advisor-ai/internal/http"
	"traffic-advisor-ai/internal/llm"
	"traffic-advisor-ai/internal/service"
	"traffic-advisor-ai/internal/storage"
	"traffic-advisor-ai/web"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API drafts Arabic objection letters for traffic violations, grounded on
// passages retrieved from a Markdown knowledge base.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Traffic Advisor AI API
//   description: |
//     Retrieval-grounded drafting of traffic violation objection letters.
//     Retrieval uses embeddings when a backend is available and falls back to lexical matching.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Probe the embedding backend once; failure means lexical retrieval.
	backend := app.ProbeEmbeddings(ctx, cfg)
	engine := app.NewEngine(ctx, cfg, backend)
	slog.Info("Retrieval engine initialized",
		"kb_dir", cfg.KBDir,
		"embeddings", backend.Available(),
		"vector_index", cfg.VectorIndex,
	)

	// The drafting model is optional; without a key every draft uses the template.
	var llmClient service.LLMClient
	if cfg.OpenAIAPIKey != "" {
		llmClient = llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
		slog.Debug("LLM configuration", "base_url", cfg.OpenAIBaseURL, "model", cfg.OpenAIModel)
	} else {
		slog.Warn("OPENAI_API_KEY not set, drafts will use the built-in template")
	}

	draftService := service.NewDraftService(engine, llmClient, storage.NewDraftRepo(db), service.DraftOptions{
		Model:      cfg.OpenAIModel,
		LLMTimeout: cfg.LLMTimeout,
		TopK:       cfg.TopK,
	})

	var static fs.FS = web.Static()
	if cfg.StaticDir != "" {
		static = os.DirFS(cfg.StaticDir)
	}

	router := http.NewRouter(&http.Deps{
		DraftService:   draftService,
		Retriever:      engine,
		KnowledgeBase:  engine,
		DB:             db,
		StaticFS:       static,
		DraftRateLimit: cfg.DraftRateLimit,
		DraftRateBurst: cfg.DraftRateBurst,
	})

	// Warm the knowledge base in the background so the first request is fast.
	go func() {
		stats, err := engine.Stats(ctx)
		if err != nil {
			slog.Error("Knowledge base warm-up failed", "error", err)
			return
		}
		slog.Info("Knowledge base ready", "documents", stats.Documents, "chunks", stats.Chunks)
	}()

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting API server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
	slog.Info("API server stopped")
}
