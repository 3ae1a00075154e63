package vectorstore

import (
	"fmt"
	"sort"
)

// Matrix is an immutable N×D set of unit vectors; row i belongs to chunk i.
type Matrix struct {
	rows [][]float32
	dim  int
}

// NewMatrix validates that all rows share one non-zero dimension and copies them.
func NewMatrix(rows [][]float32) (*Matrix, error) {
	m := &Matrix{rows: make([][]float32, len(rows))}
	for i, row := range rows {
		if len(row) == 0 {
			return nil, fmt.Errorf("row %d is empty: %w", i, ErrDimensionMismatch)
		}
		if i == 0 {
			m.dim = len(row)
		} else if len(row) != m.dim {
			return nil, fmt.Errorf("row %d has %d dimensions, expected %d: %w", i, len(row), m.dim, ErrDimensionMismatch)
		}
		m.rows[i] = append([]float32(nil), row...)
	}
	return m, nil
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.rows)
}

// Dim returns the vector dimension (0 for an empty matrix).
func (m *Matrix) Dim() int {
	return m.dim
}

// Row returns row i. The slice must not be modified.
func (m *Matrix) Row(i int) []float32 {
	return m.rows[i]
}

// TopK scores every row against q by inner product and returns the indices
// of the k best rows, best first, ties broken by ascending row index.
// It returns min(k, Len()) indices.
func (m *Matrix) TopK(q []float32, k int) ([]int, error) {
	if k <= 0 || len(m.rows) == 0 {
		return []int{}, nil
	}
	if len(q) != m.dim {
		return nil, fmt.Errorf("query has %d dimensions, expected %d: %w", len(q), m.dim, ErrDimensionMismatch)
	}

	scored := make([]scoredRow, len(m.rows))
	for i, row := range m.rows {
		scored[i] = scoredRow{row: i, score: dot(row, q)}
	}
	sort.Slice(scored, func(a, b int) bool {
		return ranksBefore(scored[a], scored[b])
	})

	k = min(k, len(scored))
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = scored[i].row
	}
	return out, nil
}

type scoredRow struct {
	row   int
	score float32
}

// ranksBefore is the shared result ordering: higher score first, then lower row.
func ranksBefore(a, b scoredRow) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.row < b.row
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
