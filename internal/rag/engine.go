package rag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"traffic-advisor-ai/internal/contextutil"
	"traffic-advisor-ai/internal/indexer"
	"traffic-advisor-ai/internal/llm"
	"traffic-advisor-ai/internal/vectorstore"
)

// Engine retrieves knowledge-base chunks for a query. The chunk collection and
// its embeddings are built lazily on first use and kept until Rebuild.
// All methods are safe for concurrent use.
type Engine struct {
	pipeline    *indexer.Pipeline
	builder     vectorstore.Builder
	defaultTopK int
	embedModel  string

	// mu serializes builds; readers use current without locking.
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
	// backend only ever moves from available to unavailable.
	backend atomic.Pointer[llm.Availability]
}

// NewEngine creates a retrieval engine. Nothing is loaded until the first query.
func NewEngine(opts Options) *Engine {
	topK := opts.DefaultTopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	backend := opts.Backend
	if backend.Embedder == nil && backend.Reason == "" {
		backend = llm.Unavailable("no embedding backend configured")
	}

	e := &Engine{
		pipeline:    opts.Pipeline,
		builder:     opts.IndexBuilder,
		defaultTopK: topK,
		embedModel:  opts.EmbedModel,
	}
	e.backend.Store(&backend)
	return e
}

// Retrieve returns up to topK chunk texts, most relevant first.
// A non-positive topK selects the engine default. An empty knowledge base or
// a query without tokens is not an error.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	hits, err := e.Hits(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Text
	}
	return texts, nil
}

// Hits is Retrieve with chunk provenance.
func (e *Engine) Hits(ctx context.Context, query string, topK int) ([]Hit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if topK <= 0 {
		topK = e.defaultTopK
	}

	s, err := e.ensureBuilt(ctx)
	if err != nil {
		return nil, err
	}
	if len(s.chunks) == 0 {
		return []Hit{}, nil
	}

	rows, ok := e.vectorSearch(ctx, s, query, topK)
	strategy := StrategyVector
	if !ok {
		rows = lexicalTopK(query, s.tokens, topK)
		strategy = StrategyLexical
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		if row < 0 || row >= len(s.chunks) {
			logger.WarnContext(ctx, "ignoring out-of-range index result", "row", row, "chunks", len(s.chunks))
			continue
		}
		chunk := s.chunks[row]
		hits = append(hits, Hit{Index: chunk.Index, Source: chunk.Source, Text: chunk.Text})
		if len(hits) == topK {
			break
		}
	}

	logger.DebugContext(ctx, "retrieval completed", "strategy", strategy, "top_k", topK, "hits", len(hits))
	return hits, nil
}

// vectorSearch runs the vector path. ok is false when the lexical path must be used.
func (e *Engine) vectorSearch(ctx context.Context, s *snapshot, query string, topK int) ([]int, bool) {
	logger := contextutil.LoggerFromContext(ctx)

	backend := e.backend.Load()
	if s.matrix == nil || !backend.Available() {
		return nil, false
	}

	vectors, err := backend.Embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		// The caller gave up; the backend is not at fault.
		if ctx.Err() != nil {
			logger.DebugContext(ctx, "query embedding cancelled, using lexical retrieval for this query", "error", err)
			return nil, false
		}
		e.degrade(ctx, fmt.Sprintf("query embedding failed: %v", err))
		return nil, false
	}
	if len(vectors) != 1 || len(vectors[0]) != s.matrix.Dim() {
		e.degrade(ctx, "query embedding has unexpected shape")
		return nil, false
	}
	q := vectors[0]

	if s.index != nil {
		rows, err := s.index.Search(ctx, q, topK)
		if err == nil {
			return rows, true
		}
		logger.WarnContext(ctx, "index search failed, using brute force", "index", s.indexKind, "error", err)
	}

	rows, err := s.matrix.TopK(q, topK)
	if err != nil {
		e.degrade(ctx, fmt.Sprintf("brute-force search failed: %v", err))
		return nil, false
	}
	return rows, true
}

// ensureBuilt returns the current snapshot, building it on first use.
// An empty build is returned but not kept, so the next call loads again.
func (e *Engine) ensureBuilt(ctx context.Context) (*snapshot, error) {
	if s := e.current.Load(); s != nil {
		return s, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.current.Load(); s != nil {
		return s, nil
	}

	s, err := e.build(ctx)
	if err != nil {
		return nil, err
	}
	if len(s.chunks) > 0 {
		e.current.Store(s)
	}
	return s, nil
}

// Rebuild discards the current state and builds it again from the knowledge base.
func (e *Engine) Rebuild(ctx context.Context) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.build(ctx)
	if err != nil {
		return Status{}, err
	}
	if len(s.chunks) > 0 {
		e.current.Store(s)
	} else {
		e.current.Store(nil)
	}
	return e.statusOf(e.current.Load()), nil
}

// build loads, chunks, tokenizes and, when the backend allows, embeds and indexes
// the knowledge base. Callers must hold mu.
func (e *Engine) build(ctx context.Context) (*snapshot, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	result, err := e.pipeline.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build chunk collection: %w", err)
	}

	s := &snapshot{
		documents: len(result.Documents),
		chunks:    result.Chunks,
		tokens:    tokenizeCollection(result.Chunks),
		builtAt:   time.Now().UTC(),
	}
	if len(s.chunks) == 0 {
		logger.WarnContext(ctx, "knowledge base is empty", "documents", s.documents)
		return s, nil
	}

	backend := e.backend.Load()
	if backend.Available() {
		if err := e.attachVectors(ctx, s, backend.Embedder); err != nil {
			return nil, fmt.Errorf("failed to build vector state: %w", err)
		}
	}

	logger.InfoContext(ctx, "retrieval state built",
		"documents", s.documents,
		"chunks", len(s.chunks),
		"strategy", e.strategyOf(s),
		"index", s.indexKind,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s, nil
}

// attachVectors embeds the collection and builds the index. Embedding failures
// degrade the engine to lexical; index failures fall back to brute force.
// It returns an error only when ctx is done, so a cancelled build is never kept
// and never counts against the backend.
func (e *Engine) attachVectors(ctx context.Context, s *snapshot, embedder llm.Embedder) error {
	logger := contextutil.LoggerFromContext(ctx)

	vectors, err := e.pipeline.Embed(ctx, embedder, s.chunks)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.degrade(ctx, fmt.Sprintf("corpus embedding failed: %v", err))
		return nil
	}
	if len(vectors) != len(s.chunks) {
		e.degrade(ctx, fmt.Sprintf("corpus embedding returned %d vectors for %d chunks", len(vectors), len(s.chunks)))
		return nil
	}
	matrix, err := vectorstore.NewMatrix(vectors)
	if err != nil {
		e.degrade(ctx, fmt.Sprintf("invalid embedding matrix: %v", err))
		return nil
	}
	s.matrix = matrix
	s.indexKind = IndexBruteForce

	if e.builder == nil {
		return nil
	}
	idx, err := e.builder.Build(ctx, matrix)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.WarnContext(ctx, "vector index build failed, using brute force", "index", e.builder.Kind(), "error", err)
		return nil
	}
	if idx.Len() != matrix.Len() {
		logger.WarnContext(ctx, "vector index size mismatch, using brute force", "index", e.builder.Kind(), "indexed", idx.Len(), "rows", matrix.Len())
		return nil
	}
	s.index = idx
	s.indexKind = e.builder.Kind()
	return nil
}

// degrade permanently switches the engine to lexical retrieval.
func (e *Engine) degrade(ctx context.Context, reason string) {
	logger := contextutil.LoggerFromContext(ctx)

	for {
		old := e.backend.Load()
		if !old.Available() {
			return
		}
		next := llm.Unavailable(reason)
		if e.backend.CompareAndSwap(old, &next) {
			logger.WarnContext(ctx, "embedding backend disabled, using lexical retrieval", "reason", reason)
			return
		}
	}
}

// Status reports the engine state without triggering a build.
func (e *Engine) Status() Status {
	return e.statusOf(e.current.Load())
}

func (e *Engine) statusOf(s *snapshot) Status {
	backend := e.backend.Load()
	status := Status{
		State:          StateUninitialized,
		Strategy:       StrategyLexical,
		DegradedReason: backend.Reason,
	}
	if backend.Available() {
		status.Strategy = StrategyVector
		status.Dimension = backend.Dimension
	}
	if s == nil {
		return status
	}

	status.State = StateBuilt
	status.Strategy = e.strategyOf(s)
	status.Documents = s.documents
	status.Chunks = len(s.chunks)
	status.IndexKind = s.indexKind
	status.BuiltAt = s.builtAt
	if s.matrix != nil {
		status.Dimension = s.matrix.Dim()
	}
	return status
}

func (e *Engine) strategyOf(s *snapshot) Strategy {
	if s.matrix != nil && e.backend.Load().Available() {
		return StrategyVector
	}
	return StrategyLexical
}

// Chunks returns the chunk collection, building it if needed.
func (e *Engine) Chunks(ctx context.Context) (indexer.Collection, error) {
	s, err := e.ensureBuilt(ctx)
	if err != nil {
		return nil, err
	}
	return s.chunks, nil
}

// Stats returns collection statistics, building the collection if needed.
func (e *Engine) Stats(ctx context.Context) (indexer.CollectionStats, error) {
	s, err := e.ensureBuilt(ctx)
	if err != nil {
		return indexer.CollectionStats{}, err
	}
	// Lexical-only builds never used the embedding model.
	model := ""
	if s.matrix != nil {
		model = e.embedModel
	}
	return indexer.ComputeStats(s.documents, s.chunks, model, e.pipeline.MaxWords()), nil
}

// indexInspector is implemented by indexes that live in an external service.
type indexInspector interface {
	Info(ctx context.Context) (*vectorstore.CollectionInfo, error)
}

// CheckIndex verifies that an external vector index, if one is in use, is reachable.
// It reports false when no external index is active.
func (e *Engine) CheckIndex(ctx context.Context) (bool, error) {
	s := e.current.Load()
	if s == nil || s.index == nil {
		return false, nil
	}
	inspector, ok := s.index.(indexInspector)
	if !ok {
		return false, nil
	}
	info, err := inspector.Info(ctx)
	if err != nil {
		return true, err
	}
	if info.PointsCount != s.index.Len() {
		return true, fmt.Errorf("index holds %d points, expected %d", info.PointsCount, s.index.Len())
	}
	return true, nil
}
