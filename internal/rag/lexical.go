package rag

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"traffic-advisor-ai/internal/indexer"
)

// tokenPattern matches runs of Arabic-block characters (U+0600–U+06FF,
// including diacritics), letters, digits, and underscore.
var tokenPattern = regexp.MustCompile(`[\x{0600}-\x{06FF}\p{L}\p{N}_]+`)

// TokenSet is the set of distinct tokens of a text.
type TokenSet map[string]struct{}

// Tokenize lowercases text and extracts its tokens. Tokens of a single
// character are dropped. Order follows first occurrence; duplicates are kept.
func Tokenize(text string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if utf8.RuneCountInString(m) > 1 {
			tokens = append(tokens, m)
		}
	}
	return tokens
}

// NewTokenSet returns the distinct tokens of text.
func NewTokenSet(text string) TokenSet {
	tokens := Tokenize(text)
	set := make(TokenSet, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b TokenSet) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		union = 1
	}
	return float64(inter) / float64(union)
}

// lexicalTopK ranks chunks by Jaccard similarity to the query and returns the
// indices of the best topK, ties broken by collection order. A query without
// tokens returns the first topK chunks in collection order.
func lexicalTopK(query string, chunkTokens []TokenSet, topK int) []int {
	n := min(topK, len(chunkTokens))
	if n <= 0 {
		return []int{}
	}

	q := NewTokenSet(query)
	if len(q) == 0 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(chunkTokens))
	for i, set := range chunkTokens {
		ranked[i] = scored{index: i, score: Jaccard(q, set)}
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].index < ranked[b].index
	})

	out := make([]int, n)
	for i := range out {
		out[i] = ranked[i].index
	}
	return out
}

// tokenizeCollection precomputes the token set of every chunk.
func tokenizeCollection(chunks indexer.Collection) []TokenSet {
	sets := make([]TokenSet, len(chunks))
	for i, chunk := range chunks {
		sets[i] = NewTokenSet(chunk.Text)
	}
	return sets
}
