package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index.go -package=mocks traffic-advisor-ai/internal/vectorstore Index

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when vectors of differing length are mixed.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index answers exact top-k inner-product queries over the rows of a Matrix.
// Results are row indices ordered by descending inner product; ties are
// broken by ascending row index.
type Index interface {
	// Search returns at most k row indices for the query vector.
	Search(ctx context.Context, query []float32, k int) ([]int, error)
	// Len returns the number of indexed rows.
	Len() int
}

// Builder constructs an accelerated index over a matrix. The retrieval engine
// falls back to brute-force search over the matrix when building fails.
type Builder interface {
	Build(ctx context.Context, m *Matrix) (Index, error)
	// Kind names the index implementation (for status reporting).
	Kind() string
}
