package storage

import "time"

// Generator values recorded with each draft.
const (
	GeneratorLLM      = "llm"
	GeneratorTemplate = "template"
)

// DraftRecord is a generated objection letter as stored in the database.
type DraftRecord struct {
	ID             string    // UUID
	Query          string    // Retrieval query built from the request
	LetterAr       string    // Letter body (Arabic)
	Citations      []string  // Ordered citations, stored in draft_citations
	Confidence     float64   // 0..1
	Generator      string    // GeneratorLLM or GeneratorTemplate
	ReferenceCount int       // Number of knowledge-base references used
	CreatedAt      time.Time // Set by the database on insert
}
