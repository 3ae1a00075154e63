package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_source.go -package=mocks traffic-advisor-ai/internal/indexer DocumentSource

import (
	"context"
	"fmt"

	"traffic-advisor-ai/internal/contextutil"
	"traffic-advisor-ai/internal/knowledge"
	"traffic-advisor-ai/internal/llm"
)

// DefaultBatchSize is the number of chunk texts sent per embedding request.
const DefaultBatchSize = 32

// DocumentSource supplies the knowledge-base documents.
type DocumentSource interface {
	// Load returns the documents in a deterministic order.
	Load(ctx context.Context) ([]knowledge.Document, error)
}

// Pipeline turns a document source into a chunk collection and, optionally, its embeddings.
type Pipeline struct {
	source    DocumentSource
	maxWords  int
	batchSize int
}

// NewPipeline creates a new indexing pipeline.
// Non-positive maxWords or batchSize select the defaults.
func NewPipeline(source DocumentSource, maxWords, batchSize int) *Pipeline {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		source:    source,
		maxWords:  maxWords,
		batchSize: batchSize,
	}
}

// MaxWords returns the chunk size limit.
func (p *Pipeline) MaxWords() int {
	return p.maxWords
}

// Result is the output of Collect.
type Result struct {
	Documents []knowledge.Document
	Chunks    Collection
}

// Collect loads all documents and chunks them in document order.
func (p *Pipeline) Collect(ctx context.Context) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	chunks := BuildCollection(docs, p.maxWords)
	logger.InfoContext(ctx, "chunk collection built", "documents", len(docs), "chunks", len(chunks), "max_words", p.maxWords)

	return &Result{Documents: docs, Chunks: chunks}, nil
}

// Embed embeds every chunk text in batches and returns one vector per chunk, in
// collection order. Any backend error, a count mismatch, or vectors of differing
// dimension fail the whole call.
func (p *Pipeline) Embed(ctx context.Context, embedder llm.Embedder, chunks Collection) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) == 0 {
		return [][]float32{}, nil
	}

	texts := chunks.Texts()
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		batch, err := embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", end-start, len(batch))
		}
		vectors = append(vectors, batch...)
		logger.DebugContext(ctx, "embedded chunk batch", "from", start, "to", end-1)
	}

	dim := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) == 0 || len(vec) != dim {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(vec), dim)
		}
	}

	return vectors, nil
}
