package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ChunkerVersion is the version identifier for the chunker implementation.
// Update this when chunking logic changes.
const ChunkerVersion = "words-v1"

// CollectionStats describes a built chunk collection.
type CollectionStats struct {
	// Documents is the number of documents loaded.
	Documents int `json:"documents"`
	// DocsWith0Chunks is the number of documents that contained no words.
	DocsWith0Chunks int `json:"docs_with_0_chunks"`
	// Chunks is the total number of chunks in the collection.
	Chunks int `json:"chunks"`
	// ChunkWordStats contains statistics about word counts per chunk.
	ChunkWordStats ChunkWordStats `json:"chunk_word_stats"`
	// MaxWords is the chunk size limit used.
	MaxWords int `json:"max_words"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the build parameters (chunker + embedding model + max words).
	IndexVersion string `json:"index_version"`
}

// ChunkWordStats contains statistics about word counts in chunks.
type ChunkWordStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// ComputeStats summarizes a collection built from the given number of documents.
func ComputeStats(documents int, chunks Collection, embedModel string, maxWords int) CollectionStats {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	stats := CollectionStats{
		Documents:      documents,
		Chunks:         len(chunks),
		MaxWords:       maxWords,
		ChunkerVersion: ChunkerVersion,
		IndexVersion:   IndexVersion(embedModel, maxWords),
	}

	sources := make(map[string]struct{})
	wordCounts := make([]int, 0, len(chunks))
	for _, chunk := range chunks {
		sources[chunk.Source] = struct{}{}
		wordCounts = append(wordCounts, len(strings.Fields(chunk.Text)))
	}
	if documents > len(sources) {
		stats.DocsWith0Chunks = documents - len(sources)
	}
	stats.ChunkWordStats = computeWordStats(wordCounts)

	return stats
}

// IndexVersion returns a short hash of the parameters that determine the contents of an index.
func IndexVersion(embedModel string, maxWords int) string {
	input := fmt.Sprintf("%s|%s|maxWords=%d", ChunkerVersion, embedModel, maxWords)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16] // 16 hex chars = 64 bits
}

// computeWordStats computes min, max, mean, and p95 from word counts.
func computeWordStats(counts []int) ChunkWordStats {
	if len(counts) == 0 {
		return ChunkWordStats{}
	}

	sorted := make([]int, len(counts))
	copy(sorted, counts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range counts {
		sum += count
	}
	mean := float64(sum) / float64(len(counts))

	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	if p95Index < 0 {
		p95Index = 0
	}

	return ChunkWordStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
