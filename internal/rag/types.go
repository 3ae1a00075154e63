package rag

import (
	"time"

	"traffic-advisor-ai/internal/indexer"
	"traffic-advisor-ai/internal/llm"
	"traffic-advisor-ai/internal/vectorstore"
)

// DefaultTopK is the number of references returned when the caller passes no top_k.
const DefaultTopK = 5

// Strategy is the retrieval path in effect.
type Strategy string

const (
	// StrategyVector ranks chunks by embedding inner product.
	StrategyVector Strategy = "vector"
	// StrategyLexical ranks chunks by Jaccard token overlap.
	StrategyLexical Strategy = "lexical"
)

// Engine states.
const (
	StateUninitialized = "uninitialized"
	StateBuilt         = "built"
)

// IndexBruteForce is reported when vector search runs directly on the matrix.
const IndexBruteForce = "brute-force"

// Hit is one retrieved chunk.
type Hit struct {
	// Index is the chunk's position in the collection.
	Index int `json:"index"`
	// Source is the document ID the chunk came from.
	Source string `json:"source"`
	// Text is the chunk text.
	Text string `json:"text"`
}

// Status describes the engine's current state.
type Status struct {
	State          string    `json:"state"`
	Strategy       Strategy  `json:"strategy"`
	Documents      int       `json:"documents"`
	Chunks         int       `json:"chunks"`
	Dimension      int       `json:"dimension,omitempty"`
	IndexKind      string    `json:"index_kind,omitempty"`
	BuiltAt        time.Time `json:"built_at,omitzero"`
	DegradedReason string    `json:"degraded_reason,omitempty"`
}

// Options configures an Engine.
type Options struct {
	// Pipeline loads and chunks the knowledge base. Required.
	Pipeline *indexer.Pipeline
	// Backend is the result of probing the embedding backend once at startup.
	// The zero value means no backend.
	Backend llm.Availability
	// IndexBuilder builds the accelerated index. Nil means brute-force search only.
	IndexBuilder vectorstore.Builder
	// DefaultTopK is used when a caller passes a non-positive top_k.
	DefaultTopK int
	// EmbedModel identifies the embedding model in collection statistics.
	EmbedModel string
}

// snapshot is one immutable build of the retrieval state.
// chunks, tokens, and matrix rows are parallel by position.
type snapshot struct {
	documents int
	chunks    indexer.Collection
	tokens    []TokenSet
	matrix    *vectorstore.Matrix // nil when the build is lexical-only
	index     vectorstore.Index   // nil means brute force over matrix
	indexKind string
	builtAt   time.Time
}
