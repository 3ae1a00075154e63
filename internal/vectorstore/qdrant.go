package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"traffic-advisor-ai/internal/contextutil"
)

// KindQdrant names the Qdrant-backed index.
const KindQdrant = "qdrant"

// upsertBatchSize bounds the number of points sent per Upsert call.
const upsertBatchSize = 256

// QdrantBuilder loads a matrix into a Qdrant collection and searches it with
// exact (non-HNSW) dot-product scoring.
type QdrantBuilder struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantBuilder creates a Qdrant client for the given URL.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantBuilder(urlStr, collection string) (*QdrantBuilder, error) {
	host, port, err := parseQdrantAddr(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantBuilder{
		client:     client,
		collection: collection,
	}, nil
}

// parseQdrantAddr derives the gRPC host and port from a Qdrant HTTP URL.
func parseQdrantAddr(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return "", 0, fmt.Errorf("invalid Qdrant port %q: %w", parsedURL.Port(), err)
		}
		// gRPC port is typically HTTP port + 1
		port = httpPort + 1
	}
	return host, port, nil
}

// Kind returns KindQdrant.
func (b *QdrantBuilder) Kind() string {
	return KindQdrant
}

// Build recreates the collection and upserts every matrix row as point ID = row index.
func (b *QdrantBuilder) Build(ctx context.Context, m *Matrix) (Index, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if m.Len() == 0 {
		return nil, fmt.Errorf("cannot build Qdrant index over an empty matrix")
	}

	exists, err := b.client.CollectionExists(ctx, b.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		if err := b.client.DeleteCollection(ctx, b.collection); err != nil {
			return nil, fmt.Errorf("failed to drop stale collection: %w", err)
		}
	}

	err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: b.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(m.Dim()),
			Distance: qdrant.Distance_Dot,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	logger.InfoContext(ctx, "collection created", "collection", b.collection, "vector_size", m.Dim())

	wait := true
	for start := 0; start < m.Len(); start += upsertBatchSize {
		end := min(start+upsertBatchSize, m.Len())
		points := make([]*qdrant.PointStruct, 0, end-start)
		for row := start; row < end; row++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(row)),
				Vectors: qdrant.NewVectors(m.Row(row)...),
			})
		}
		_, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: b.collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert points", "collection", b.collection, "count", len(points), "error", err)
			return nil, fmt.Errorf("failed to upsert points: %w", err)
		}
	}

	logger.InfoContext(ctx, "upserted points", "collection", b.collection, "count", m.Len())
	return &QdrantIndex{client: b.client, collection: b.collection, n: m.Len()}, nil
}

// QdrantIndex searches a collection built by QdrantBuilder.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	n          int
}

// Len returns the number of indexed rows.
func (q *QdrantIndex) Len() int {
	return q.n
}

// Search runs an exact dot-product query and returns row indices.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return []int{}, nil
	}

	limit := uint64(k)
	exact := true
	scoredPoints, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		Params:         &qdrant.SearchParams{Exact: &exact},
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", q.collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	return rowsFromScoredPoints(scoredPoints), nil
}

// rowsFromScoredPoints converts numeric point IDs back to rows, applying the
// shared ordering so ties come back in ascending row order.
func rowsFromScoredPoints(points []*qdrant.ScoredPoint) []int {
	scored := make([]scoredRow, 0, len(points))
	for _, p := range points {
		if p.GetId() == nil {
			continue
		}
		scored = append(scored, scoredRow{row: int(p.GetId().GetNum()), score: p.GetScore()})
	}
	sort.Slice(scored, func(a, b int) bool {
		return ranksBefore(scored[a], scored[b])
	})

	rows := make([]int, len(scored))
	for i, s := range scored {
		rows[i] = s.row
	}
	return rows
}

// CollectionInfo contains information about a Qdrant collection.
type CollectionInfo struct {
	VectorSize  int
	PointsCount int
	Status      string
}

// Info returns information about the collection backing the index.
func (q *QdrantIndex) Info(ctx context.Context) (*CollectionInfo, error) {
	info, err := q.client.GetCollectionInfo(ctx, q.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	var vectorSize int
	if config := info.Config; config != nil && config.Params != nil {
		if vectorsConfig := config.Params.GetVectorsConfig(); vectorsConfig != nil {
			if params := vectorsConfig.GetParams(); params != nil {
				vectorSize = int(params.Size)
			}
		}
	}

	var pointsCount int
	if info.PointsCount != nil {
		pointsCount = int(*info.PointsCount)
	}

	status := "unknown"
	if info.Status != 0 {
		status = info.Status.String()
	}

	return &CollectionInfo{
		VectorSize:  vectorSize,
		PointsCount: pointsCount,
		Status:      status,
	}, nil
}
