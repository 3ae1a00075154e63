package indexer

import (
	"strings"

	"traffic-advisor-ai/internal/knowledge"
)

// DefaultMaxWords is the chunk size limit used when none is configured.
const DefaultMaxWords = 400

// ChunkWords splits text on whitespace runs and groups the words, in order,
// into chunks of at most maxWords words joined by a single space.
// Every chunk but the last holds exactly maxWords words. Text with no words
// produces no chunks. A non-positive maxWords means DefaultMaxWords.
func ChunkWords(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := min(start+maxWords, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// BuildCollection chunks every document in order and concatenates the results.
// Documents with no words contribute nothing.
func BuildCollection(docs []knowledge.Document, maxWords int) Collection {
	collection := Collection{}
	for _, doc := range docs {
		for ordinal, text := range ChunkWords(doc.Text, maxWords) {
			collection = append(collection, Chunk{
				Index:   len(collection),
				Source:  doc.ID,
				Ordinal: ordinal,
				Text:    text,
			})
		}
	}
	return collection
}
