// Package knowledge holds the retrievable chunk set: the in-memory vector
// store, cosine similarity search, embedding helpers and the loader that
// populates the store from the knowledge-base file.
package knowledge

// Metadata records where a chunk came from. It is kept for provenance and
// never used for ranking.
type Metadata struct {
	Source    string `json:"source"`
	Category  string `json:"category"`
	Section   string `json:"section"`
	Timestamp string `json:"timestamp"` // ISO-8601 creation time
}

// Chunk is an atomic retrievable unit of text with its embedding.
type Chunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// Result is a chunk returned by a search together with its similarity score.
type Result struct {
	Chunk
	Similarity float32 `json:"similarity"`
}
