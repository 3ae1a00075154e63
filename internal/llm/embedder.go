package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks traffic-advisor-ai/internal/llm Embedder

import (
	"context"
	"errors"
	"fmt"

	"traffic-advisor-ai/internal/contextutil"
)

// ErrEmbedderUnavailable is returned by an embedding backend that cannot be used.
var ErrEmbedderUnavailable = errors.New("embedding backend unavailable")

// probeText is embedded once to discover whether a backend works and its dimension.
const probeText = "probe"

// Embedder maps texts to unit-length vectors of one fixed dimension.
type Embedder interface {
	// EmbedTexts returns one vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// NullEmbedder is the backend used when no embedding model is configured.
// Every call fails with ErrEmbedderUnavailable.
type NullEmbedder struct{}

// EmbedTexts always returns ErrEmbedderUnavailable.
func (NullEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, ErrEmbedderUnavailable
}

// Availability records the outcome of probing an embedding backend.
// It is decided once at startup and handed to the retrieval engine.
type Availability struct {
	Embedder  Embedder
	Dimension int
	Reason    string // why the backend is unavailable; empty when available
}

// Available reports whether the backend can be used.
func (a Availability) Available() bool {
	return a.Embedder != nil && a.Reason == ""
}

// Unavailable returns an Availability for a backend that must not be used.
func Unavailable(reason string) Availability {
	return Availability{Embedder: NullEmbedder{}, Reason: reason}
}

// ProbeEmbedder embeds a single probe text to check that the backend answers
// with a usable vector. Any failure marks the backend unavailable; the error is
// logged, never returned.
func ProbeEmbedder(ctx context.Context, embedder Embedder) Availability {
	logger := contextutil.LoggerFromContext(ctx)

	if embedder == nil {
		return Unavailable("no embedding backend configured")
	}

	vectors, err := embedder.EmbedTexts(ctx, []string{probeText})
	if err != nil {
		logger.WarnContext(ctx, "embedding backend probe failed, using lexical retrieval", "error", err)
		return Unavailable(fmt.Sprintf("probe failed: %v", err))
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		logger.WarnContext(ctx, "embedding backend returned no usable vector, using lexical retrieval", "vectors", len(vectors))
		return Unavailable("probe returned no usable vector")
	}

	logger.InfoContext(ctx, "embedding backend available", "dimension", len(vectors[0]))
	return Availability{Embedder: embedder, Dimension: len(vectors[0])}
}
