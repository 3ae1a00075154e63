// Package app assembles the retrieval engine and logging from configuration.
// It is shared by the API server and the kbctl CLI.
package app

import (
	"context"
	"io"
	"log/slog"

	"traffic-advisor-ai/internal/config"
	"traffic-advisor-ai/internal/contextutil"
	"traffic-advisor-ai/internal/indexer"
	"traffic-advisor-ai/internal/knowledge"
	"traffic-advisor-ai/internal/llm"
	"traffic-advisor-ai/internal/rag"
	"traffic-advisor-ai/internal/vectorstore"
)

// NewLogger builds the structured logger selected by LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ProbeEmbeddings checks the configured embedding backend once.
// A disabled or failing backend yields an unavailable result, never an error.
func ProbeEmbeddings(ctx context.Context, cfg *config.Config) llm.Availability {
	logger := contextutil.LoggerFromContext(ctx)

	if !cfg.EmbeddingsEnabled() {
		logger.InfoContext(ctx, "embedding backend disabled, using lexical retrieval")
		return llm.Unavailable("embedding backend disabled")
	}

	probeCtx, cancel := context.WithTimeout(ctx, cfg.EmbeddingProbeTimeout)
	defer cancel()

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbedModel, 0)
	availability := llm.ProbeEmbedder(probeCtx, embedder)
	if availability.Available() {
		// Pin the dimension so a backend that changes models mid-run is rejected.
		availability.Embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbedModel, availability.Dimension)
	}
	return availability
}

// NewIndexBuilder returns the accelerated index selected by VECTOR_INDEX.
// A nil builder means brute-force search. A Qdrant URL that cannot be parsed
// falls back to the in-process flat index.
func NewIndexBuilder(ctx context.Context, cfg *config.Config) vectorstore.Builder {
	logger := contextutil.LoggerFromContext(ctx)

	switch cfg.VectorIndex {
	case config.IndexNone:
		return nil
	case config.IndexQdrant:
		builder, err := vectorstore.NewQdrantBuilder(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			logger.WarnContext(ctx, "qdrant index unavailable, using flat index", "url", cfg.QdrantURL, "error", err)
			return vectorstore.FlatBuilder{}
		}
		return builder
	default:
		return vectorstore.FlatBuilder{}
	}
}

// NewEngine wires the loader, chunking pipeline, embedding backend and index
// into a retrieval engine. Nothing is loaded until the first query.
func NewEngine(ctx context.Context, cfg *config.Config, backend llm.Availability) *rag.Engine {
	pipeline := indexer.NewPipeline(knowledge.NewLoader(cfg.KBDir), cfg.ChunkMaxWords, cfg.EmbeddingBatchSize)

	var builder vectorstore.Builder
	if backend.Available() {
		builder = NewIndexBuilder(ctx, cfg)
	}

	return rag.NewEngine(rag.Options{
		Pipeline:     pipeline,
		Backend:      backend,
		IndexBuilder: builder,
		DefaultTopK:  cfg.TopK,
		EmbedModel:   cfg.EmbedModel,
	})
}
