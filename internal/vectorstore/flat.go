package vectorstore

import (
	"container/heap"
	"context"
	"fmt"
)

// KindFlat names the in-process flat index.
const KindFlat = "flat"

// FlatIndex is an exact inner-product index over contiguous storage. It keeps
// only the running top k in a bounded heap, so a query costs O(N·D + N·log k)
// instead of sorting every row. Results match Matrix.TopK exactly.
type FlatIndex struct {
	data []float32
	dim  int
	n    int
}

// NewFlatIndex copies the matrix rows into one contiguous slice.
func NewFlatIndex(m *Matrix) *FlatIndex {
	idx := &FlatIndex{
		data: make([]float32, 0, m.Len()*m.Dim()),
		dim:  m.Dim(),
		n:    m.Len(),
	}
	for i := 0; i < m.Len(); i++ {
		idx.data = append(idx.data, m.Row(i)...)
	}
	return idx
}

// Len returns the number of indexed rows.
func (f *FlatIndex) Len() int {
	return f.n
}

// Search returns the k best rows for the query.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]int, error) {
	if k <= 0 || f.n == 0 {
		return []int{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has %d dimensions, expected %d: %w", len(query), f.dim, ErrDimensionMismatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k = min(k, f.n)
	h := make(worstFirst, 0, k)
	for row := 0; row < f.n; row++ {
		candidate := scoredRow{row: row, score: dot(f.data[row*f.dim:(row+1)*f.dim], query)}
		if h.Len() < k {
			heap.Push(&h, candidate)
			continue
		}
		if ranksBefore(candidate, h[0]) {
			h[0] = candidate
			heap.Fix(&h, 0)
		}
	}

	out := make([]int, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(scoredRow).row
	}
	return out, nil
}

// worstFirst is a heap whose root is the lowest-ranked retained row.
type worstFirst []scoredRow

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return ranksBefore(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(scoredRow)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// FlatBuilder builds FlatIndex instances.
type FlatBuilder struct{}

// Build creates a FlatIndex over m.
func (FlatBuilder) Build(_ context.Context, m *Matrix) (Index, error) {
	return NewFlatIndex(m), nil
}

// Kind returns KindFlat.
func (FlatBuilder) Kind() string {
	return KindFlat
}
