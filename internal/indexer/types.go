package indexer

// Chunk is one entry of the chunk collection.
type Chunk struct {
	Index   int    `json:"index"`   // Position in the collection (0-based, stable for a build)
	Source  string `json:"source"`  // Document ID the chunk came from
	Ordinal int    `json:"ordinal"` // Chunk number within its document (starts at 0)
	Text    string `json:"text"`    // Words joined by single spaces
}

// Collection is the ordered list of all chunks of a build.
// Its order is document order, then chunk order within each document.
type Collection []Chunk

// Texts returns the chunk texts in collection order.
func (c Collection) Texts() []string {
	texts := make([]string, len(c))
	for i, chunk := range c {
		texts[i] = chunk.Text
	}
	return texts
}
