package rag

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"traffic-advisor-ai/internal/indexer"
	indexer_mocks "traffic-advisor-ai/internal/indexer/mocks"
	"traffic-advisor-ai/internal/knowledge"
	"traffic-advisor-ai/internal/llm"
	llm_mocks "traffic-advisor-ai/internal/llm/mocks"
	"traffic-advisor-ai/internal/vectorstore"
	vectorstore_mocks "traffic-advisor-ai/internal/vectorstore/mocks"
)

func writeKB(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

func lexicalEngine(t *testing.T, dir string, maxWords int) *Engine {
	t.Helper()
	return NewEngine(Options{
		Pipeline: indexer.NewPipeline(knowledge.NewLoader(dir), maxWords, 0),
		Backend:  llm.Unavailable("disabled for test"),
	})
}

// keywords defines the axes of the test embedding space.
var keywords = []string{"fees", "speed", "parking"}

// keywordVectors embeds text as normalized keyword counts plus a small bias.
func keywordVectors(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(keywords)+1)
		vec[len(keywords)] = 0.1
		for j, kw := range keywords {
			vec[j] = float32(strings.Count(strings.ToLower(text), kw))
		}
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		norm := float32(math.Sqrt(sum))
		for j := range vec {
			vec[j] /= norm
		}
		out[i] = vec
	}
	return out
}

func vectorEmbedder(ctrl *gomock.Controller) *llm_mocks.MockEmbedder {
	m := llm_mocks.NewMockEmbedder(ctrl)
	m.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, texts []string) ([][]float32, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return keywordVectors(texts), nil
		}).AnyTimes()
	return m
}

type stubBuilder struct {
	index vectorstore.Index
	err   error
}

func (b stubBuilder) Build(context.Context, *vectorstore.Matrix) (vectorstore.Index, error) {
	return b.index, b.err
}

func (b stubBuilder) Kind() string { return "stub" }

func TestEngine_EmptyKnowledgeBase(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
	}{
		{name: "missing directory", dir: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") }},
		{name: "empty directory", dir: func(t *testing.T) string { return t.TempDir() }},
		{name: "only blank documents", dir: func(t *testing.T) string {
			dir := t.TempDir()
			writeKB(t, dir, map[string]string{"blank.md": "  \n\t "})
			return dir
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := lexicalEngine(t, tt.dir(t), 400)
			got, err := engine.Retrieve(context.Background(), "anything", 5)
			if err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("Retrieve() = %v, want empty non-nil slice", got)
			}
			if status := engine.Status(); status.State != StateUninitialized {
				t.Errorf("State = %q, want %q", status.State, StateUninitialized)
			}
		})
	}
}

func TestEngine_EmptyBuildIsRetried(t *testing.T) {
	dir := t.TempDir()
	engine := lexicalEngine(t, dir, 400)

	if got, _ := engine.Retrieve(context.Background(), "late fees", 5); len(got) != 0 {
		t.Fatalf("Retrieve() on empty KB = %v", got)
	}

	writeKB(t, dir, map[string]string{"fees.md": "late fees accrue monthly"})
	got, err := engine.Retrieve(context.Background(), "late fees", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Retrieve() after adding a document = %v, want 1 result", got)
	}
}

func TestEngine_ArabicLexicalRanking(t *testing.T) {
	dir := t.TempDir()
	writeKB(t, dir, map[string]string{
		"a_unrelated.md": "يجب ربط حزام الأمان أثناء القيادة في جميع الطرق",
		"b_fees.md":      "رسوم التأخير تحتسب شهريا",
	})
	engine := lexicalEngine(t, dir, 400)

	hits, err := engine.Hits(context.Background(), "ما رسوم التأخير", 5)
	if err != nil {
		t.Fatalf("Hits() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Source != "b_fees.md" {
		t.Errorf("first hit source = %q, want b_fees.md", hits[0].Source)
	}
	if hits[0].Text != "رسوم التأخير تحتسب شهريا" {
		t.Errorf("first hit text = %q", hits[0].Text)
	}
	if status := engine.Status(); status.Strategy != StrategyLexical || status.State != StateBuilt {
		t.Errorf("Status() = %+v", status)
	}
}

func TestEngine_LexicalBehaviour(t *testing.T) {
	dir := t.TempDir()
	writeKB(t, dir, map[string]string{
		"1.md": "alpha beta gamma delta",
		"2.md": "speed limit on highways is enforced by radar",
		"3.md": "parking fines double after thirty days",
		"4.md": "alpha beta",
	})

	tests := []struct {
		name  string
		query string
		topK  int
		want  []string
	}{
		{
			name:  "full match ranks first",
			query: "parking fines double after thirty days",
			topK:  2,
			want:  []string{"parking fines double after thirty days", "alpha beta gamma delta"},
		},
		{
			name:  "ties keep collection order",
			query: "zzz unknown",
			topK:  3,
			want:  []string{"alpha beta gamma delta", "speed limit on highways is enforced by radar", "parking fines double after thirty days"},
		},
		{
			name:  "higher overlap beats collection order",
			query: "alpha beta",
			topK:  2,
			want:  []string{"alpha beta", "alpha beta gamma delta"},
		},
		{
			name:  "query without tokens returns first chunks",
			query: "? ! a",
			topK:  2,
			want:  []string{"alpha beta gamma delta", "speed limit on highways is enforced by radar"},
		},
		{
			name:  "top_k larger than collection",
			query: "radar",
			topK:  10,
			want: []string{
				"speed limit on highways is enforced by radar",
				"alpha beta gamma delta",
				"parking fines double after thirty days",
				"alpha beta",
			},
		},
	}

	engine := lexicalEngine(t, dir, 400)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Retrieve(context.Background(), tt.query, tt.topK)
			if err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Retrieve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngine_TopKBound(t *testing.T) {
	dir := t.TempDir()
	writeKB(t, dir, map[string]string{
		"a.md": strings.Repeat("fees ", 10),
		"b.md": "fees and speed",
	})
	engine := lexicalEngine(t, dir, 3)

	// a.md yields 4 chunks, b.md yields 1
	for _, topK := range []int{1, 3, 5, 8} {
		got, err := engine.Retrieve(context.Background(), "fees", topK)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if want := min(topK, 5); len(got) != want {
			t.Errorf("topK=%d: got %d results, want %d", topK, len(got), want)
		}
	}

	got, err := engine.Retrieve(context.Background(), "fees", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != DefaultTopK {
		t.Errorf("topK=0 should use the default, got %d results", len(got))
	}
}

func TestEngine_VectorPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	writeKB(t, dir, map[string]string{
		"a.md": "parking rules downtown",
		"b.md": "speed cameras and speed limits",
		"c.md": "late fees accrue monthly",
	})

	embedder := vectorEmbedder(ctrl)
	engine := NewEngine(Options{
		Pipeline:     indexer.NewPipeline(knowledge.NewLoader(dir), 400, 2),
		Backend:      llm.Availability{Embedder: embedder, Dimension: 4},
		IndexBuilder: vectorstore.FlatBuilder{},
	})

	got, err := engine.Retrieve(context.Background(), "how are fees computed", 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 2 || got[0] != "late fees accrue monthly" {
		t.Errorf("Retrieve() = %q, want fees chunk first", got)
	}

	status := engine.Status()
	if status.Strategy != StrategyVector {
		t.Errorf("Strategy = %q, want vector", status.Strategy)
	}
	if status.IndexKind != vectorstore.KindFlat {
		t.Errorf("IndexKind = %q, want %q", status.IndexKind, vectorstore.KindFlat)
	}
	if status.Chunks != 3 || status.Dimension != 4 {
		t.Errorf("Status() = %+v", status)
	}

	s := engine.current.Load()
	if s.matrix.Len() != len(s.chunks) {
		t.Fatalf("matrix has %d rows for %d chunks", s.matrix.Len(), len(s.chunks))
	}
	want := keywordVectors(s.chunks.Texts())
	for i := range s.chunks {
		if !reflect.DeepEqual(s.matrix.Row(i), want[i]) {
			t.Errorf("row %d was not computed from chunk %d", i, i)
		}
	}
}

func TestEngine_VectorPathMatchesBruteForce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	writeKB(t, dir, map[string]string{
		"a.md": "parking parking fees",
		"b.md": "speed fees",
		"c.md": "fees fees parking",
		"d.md": "speed speed speed",
	})

	queries := []string{"fees", "parking", "speed fees", "nothing relevant"}
	results := make(map[string][][]string)
	for _, builder := range []vectorstore.Builder{nil, vectorstore.FlatBuilder{}} {
		engine := NewEngine(Options{
			Pipeline:     indexer.NewPipeline(knowledge.NewLoader(dir), 400, 0),
			Backend:      llm.Availability{Embedder: vectorEmbedder(ctrl), Dimension: 4},
			IndexBuilder: builder,
		})
		for _, q := range queries {
			got, err := engine.Retrieve(context.Background(), q, 3)
			if err != nil {
				t.Fatal(err)
			}
			results[q] = append(results[q], got)
		}
	}
	for _, q := range queries {
		if !reflect.DeepEqual(results[q][0], results[q][1]) {
			t.Errorf("query %q: brute force %q, flat %q", q, results[q][0], results[q][1])
		}
	}
}

func TestEngine_CorpusEmbeddingFailureDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	writeKB(t, dir, map[string]string{
		"a.md": "unrelated text about seat belts",
		"b.md": "رسوم التأخير تحتسب شهريا",
	})

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, errors.New("model crashed")).Times(1)

	engine := NewEngine(Options{
		Pipeline: indexer.NewPipeline(knowledge.NewLoader(dir), 400, 0),
		Backend:  llm.Availability{Embedder: embedder, Dimension: 4},
	})

	for i := 0; i < 3; i++ {
		got, err := engine.Retrieve(context.Background(), "ما رسوم التأخير", 1)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if len(got) != 1 || got[0] != "رسوم التأخير تحتسب شهريا" {
			t.Errorf("Retrieve() = %q", got)
		}
	}

	status := engine.Status()
	if status.Strategy != StrategyLexical {
		t.Errorf("Strategy = %q, want lexical", status.Strategy)
	}
	if status.DegradedReason == "" {
		t.Error("DegradedReason should be set")
	}
}

func TestEngine_QueryEmbeddingFailureDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	writeKB(t, dir, map[string]string{
		"a.md": "speed limits",
		"b.md": "late fees accrue monthly",
	})

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	gomock.InOrder(
		embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"speed limits", "late fees accrue monthly"}).
			Return(keywordVectors([]string{"speed limits", "late fees accrue monthly"}), nil),
		embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"late fees"}).
			Return(nil, errors.New("timeout")),
	)

	engine := NewEngine(Options{
		Pipeline: indexer.NewPipeline(knowledge.NewLoader(dir), 400, 0),
		Backend:  llm.Availability{Embedder: embedder, Dimension: 4},
	})

	for i := 0; i < 2; i++ {
		got, err := engine.Retrieve(context.Background(), "late fees", 1)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if len(got) != 1 || got[0] != "late fees accrue monthly" {
			t.Errorf("Retrieve() = %q", got)
		}
	}
	if engine.Status().Strategy != StrategyLexical {
		t.Error("engine should have degraded to lexical")
	}
}

func TestEngine_CancelledQueryKeepsVectorPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	writeKB(t, dir, map[string]string{
		"a.md": "speed limits",
		"b.md": "late fees accrue monthly",
	})

	engine := NewEngine(Options{
		Pipeline: indexer.NewPipeline(knowledge.NewLoader(dir), 400, 0),
		Backend:  llm.Availability{Embedder: vectorEmbedder(ctrl), Dimension: 4},
	})

	if _, err := engine.Retrieve(context.Background(), "fees", 1); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := engine.Retrieve(ctx, "late fees", 1)
	if err != nil {
		t.Fatalf("Retrieve() with cancelled context error = %v", err)
	}
	if len(got) != 1 || got[0] != "late fees accrue monthly" {
		t.Errorf("Retrieve() with cancelled context = %q, want lexical result", got)
	}

	status := engine.Status()
	if status.Strategy != StrategyVector {
		t.Errorf("Strategy = %q after a cancelled query, want vector", status.Strategy)
	}
	if status.DegradedReason != "" {
		t.Errorf("DegradedReason = %q, want empty", status.DegradedReason)
	}
}

func TestEngine_CancelledBuildIsNotKept(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	docs := []knowledge.Document{
		{ID: "a.md", Text: "parking rules downtown"},
		{ID: "b.md", Text: "late fees accrue monthly"},
	}
	source := indexer_mocks.NewMockDocumentSource(ctrl)
	source.EXPECT().Load(gomock.Any()).Return(docs, nil).Times(2)

	engine := NewEngine(Options{
		Pipeline:     indexer.NewPipeline(source, 400, 0),
		Backend:      llm.Availability{Embedder: vectorEmbedder(ctrl), Dimension: 4},
		IndexBuilder: vectorstore.FlatBuilder{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Retrieve(ctx, "fees", 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("Retrieve() error = %v, want context.Canceled", err)
	}
	status := engine.Status()
	if status.State != StateUninitialized || status.Strategy != StrategyVector {
		t.Fatalf("Status() after cancelled build = %+v", status)
	}

	got, err := engine.Retrieve(context.Background(), "fees", 1)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 || got[0] != "late fees accrue monthly" {
		t.Errorf("Retrieve() = %q", got)
	}
	status = engine.Status()
	if status.State != StateBuilt || status.Strategy != StrategyVector || status.IndexKind != vectorstore.KindFlat {
		t.Errorf("Status() = %+v", status)
	}
}

func TestEngine_StatsIndexVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	writeKB(t, dir, map[string]string{"a.md": "late fees"})

	tests := []struct {
		name      string
		backend   llm.Availability
		wantModel string
	}{
		{name: "vector build records the model", backend: llm.Availability{Embedder: vectorEmbedder(ctrl), Dimension: 4}, wantModel: "test-model"},
		{name: "lexical build records no model", backend: llm.Unavailable("disabled for test"), wantModel: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(Options{
				Pipeline:   indexer.NewPipeline(knowledge.NewLoader(dir), 400, 0),
				Backend:    tt.backend,
				EmbedModel: "test-model",
			})
			stats, err := engine.Stats(context.Background())
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if want := indexer.IndexVersion(tt.wantModel, 400); stats.IndexVersion != want {
				t.Errorf("IndexVersion = %q, want %q", stats.IndexVersion, want)
			}
		})
	}
}

func TestEngine_OutOfRangeIndexResultsFiltered(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	writeKB(t, dir, map[string]string{
		"a.md": "parking",
		"b.md": "speed",
		"c.md": "fees",
	})

	index := vectorstore_mocks.NewMockIndex(ctrl)
	index.EXPECT().Len().Return(3).AnyTimes()
	index.EXPECT().Search(gomock.Any(), gomock.Any(), 3).Return([]int{7, 2, -1, 0, 3}, nil)

	engine := NewEngine(Options{
		Pipeline:     indexer.NewPipeline(knowledge.NewLoader(dir), 400, 0),
		Backend:      llm.Availability{Embedder: vectorEmbedder(ctrl), Dimension: 4},
		IndexBuilder: stubBuilder{index: index},
	})

	got, err := engine.Retrieve(context.Background(), "fees", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if want := []string{"fees", "parking"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Retrieve() = %q, want %q", got, want)
	}
}

func TestEngine_IndexFailuresFallBackToBruteForce(t *testing.T) {
	dir := t.TempDir()
	writeKB(t, dir, map[string]string{
		"a.md": "parking",
		"b.md": "fees",
	})

	tests := []struct {
		name      string
		builder   func(ctrl *gomock.Controller) vectorstore.Builder
		wantIndex string
	}{
		{
			name: "build error",
			builder: func(ctrl *gomock.Controller) vectorstore.Builder {
				return stubBuilder{err: errors.New("qdrant unreachable")}
			},
			wantIndex: IndexBruteForce,
		},
		{
			name: "search error",
			builder: func(ctrl *gomock.Controller) vectorstore.Builder {
				index := vectorstore_mocks.NewMockIndex(ctrl)
				index.EXPECT().Len().Return(2).AnyTimes()
				index.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))
				return stubBuilder{index: index}
			},
			wantIndex: "stub",
		},
		{
			name: "size mismatch",
			builder: func(ctrl *gomock.Controller) vectorstore.Builder {
				index := vectorstore_mocks.NewMockIndex(ctrl)
				index.EXPECT().Len().Return(1).AnyTimes()
				return stubBuilder{index: index}
			},
			wantIndex: IndexBruteForce,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			engine := NewEngine(Options{
				Pipeline:     indexer.NewPipeline(knowledge.NewLoader(dir), 400, 0),
				Backend:      llm.Availability{Embedder: vectorEmbedder(ctrl), Dimension: 4},
				IndexBuilder: tt.builder(ctrl),
			})

			got, err := engine.Retrieve(context.Background(), "fees", 1)
			if err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if len(got) != 1 || got[0] != "fees" {
				t.Errorf("Retrieve() = %q, want [fees]", got)
			}
			status := engine.Status()
			if status.Strategy != StrategyVector {
				t.Errorf("Strategy = %q, want vector", status.Strategy)
			}
			if status.IndexKind != tt.wantIndex {
				t.Errorf("IndexKind = %q, want %q", status.IndexKind, tt.wantIndex)
			}
		})
	}
}

func TestEngine_ConcurrentFirstUse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	docs := []knowledge.Document{
		{ID: "a.md", Text: "parking rules downtown"},
		{ID: "b.md", Text: "late fees accrue monthly"},
		{ID: "c.md", Text: "speed cameras"},
	}
	source := indexer_mocks.NewMockDocumentSource(ctrl)
	source.EXPECT().Load(gomock.Any()).Return(docs, nil).Times(1)

	engine := NewEngine(Options{
		Pipeline: indexer.NewPipeline(source, 400, 0),
		Backend:  llm.Availability{Embedder: vectorEmbedder(ctrl), Dimension: 4},
	})

	const workers = 32
	var wg sync.WaitGroup
	results := make([][]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Retrieve(context.Background(), "fees", 2)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if !reflect.DeepEqual(results[i], results[0]) {
			t.Errorf("worker %d got %q, worker 0 got %q", i, results[i], results[0])
		}
	}
	if results[0][0] != "late fees accrue monthly" {
		t.Errorf("unexpected first result %q", results[0][0])
	}

	s := engine.current.Load()
	if s.matrix.Len() != len(s.chunks) {
		t.Errorf("matrix has %d rows for %d chunks", s.matrix.Len(), len(s.chunks))
	}
}

func TestEngine_LoaderErrorIsReturnedAndRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := indexer_mocks.NewMockDocumentSource(ctrl)
	gomock.InOrder(
		source.EXPECT().Load(gomock.Any()).Return(nil, errors.New("permission denied")),
		source.EXPECT().Load(gomock.Any()).Return([]knowledge.Document{{ID: "a.md", Text: "fees"}}, nil),
	)

	engine := NewEngine(Options{
		Pipeline: indexer.NewPipeline(source, 400, 0),
	})

	if _, err := engine.Retrieve(context.Background(), "fees", 1); err == nil {
		t.Fatal("Retrieve() should return the loader error")
	}
	got, err := engine.Retrieve(context.Background(), "fees", 1)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Retrieve() = %q", got)
	}
}

func TestEngine_Rebuild(t *testing.T) {
	dir := t.TempDir()
	writeKB(t, dir, map[string]string{"a.md": "speed limits"})
	engine := lexicalEngine(t, dir, 400)

	if got, _ := engine.Retrieve(context.Background(), "fees", 5); len(got) != 1 {
		t.Fatalf("Retrieve() = %q", got)
	}

	writeKB(t, dir, map[string]string{"b.md": "late fees"})
	if got, _ := engine.Retrieve(context.Background(), "fees", 5); len(got) != 1 {
		t.Errorf("built state should be kept until Rebuild, got %q", got)
	}

	status, err := engine.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if status.Documents != 2 || status.Chunks != 2 || status.State != StateBuilt {
		t.Errorf("Rebuild() status = %+v", status)
	}
	got, _ := engine.Retrieve(context.Background(), "fees", 5)
	if len(got) != 2 || got[0] != "late fees" {
		t.Errorf("Retrieve() after Rebuild = %q", got)
	}

	stats, err := engine.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Documents != 2 || stats.Chunks != 2 || stats.MaxWords != 400 {
		t.Errorf("Stats() = %+v", stats)
	}

	chunks, err := engine.Chunks(context.Background())
	if err != nil || len(chunks) != 2 {
		t.Errorf("Chunks() = %v, %v", chunks, err)
	}
}

func TestEngine_CheckIndex(t *testing.T) {
	dir := t.TempDir()
	writeKB(t, dir, map[string]string{"a.md": "fees"})
	engine := lexicalEngine(t, dir, 400)

	active, err := engine.CheckIndex(context.Background())
	if active || err != nil {
		t.Errorf("CheckIndex() = %v, %v before build", active, err)
	}
	if _, err := engine.Retrieve(context.Background(), "fees", 1); err != nil {
		t.Fatal(err)
	}
	active, err = engine.CheckIndex(context.Background())
	if active || err != nil {
		t.Errorf("CheckIndex() = %v, %v for lexical engine", active, err)
	}
}
