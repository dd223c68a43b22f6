package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Store is an in-memory vector store searched by exact linear scan.
// It is sized for tens to hundreds of chunks; search cost is O(N·D).
// Writes take an exclusive lock; searches work on a snapshot.
type Store struct {
	mu       sync.RWMutex
	chunks   []Chunk
	embedder Embedder
	logger   *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used by the store.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates an empty Store that embeds queries with embedder.
func NewStore(embedder Embedder, opts ...StoreOption) *Store {
	s := &Store{
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize replaces the entire store contents.
func (s *Store) Initialize(chunks []Chunk) {
	cp := make([]Chunk, len(chunks))
	copy(cp, chunks)

	s.mu.Lock()
	s.chunks = cp
	s.mu.Unlock()

	s.logger.Info("vector store initialized", "chunks", len(cp))
}

// Append adds chunks to the end of the store. Ids are not deduplicated.
func (s *Store) Append(chunks ...Chunk) {
	s.mu.Lock()
	s.chunks = append(s.chunks, chunks...)
	total := len(s.chunks)
	s.mu.Unlock()

	s.logger.Info("chunks added to vector store", "added", len(chunks), "chunks", total)
}

// Ingest embeds the text of each chunk with EmbedBatch and appends the
// enriched chunks. Nothing is appended if any embedding fails.
func (s *Store) Ingest(ctx context.Context, chunks []Chunk, opts ...BatchOption) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := EmbedBatch(ctx, s.embedder, texts, opts...)
	if err != nil {
		return err
	}

	enriched := make([]Chunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = vectors[i]
		enriched[i] = c
	}
	s.Append(enriched...)
	return nil
}

// Search returns at most topK chunks whose similarity to queryText is at
// least threshold, best first. Equal scores keep store order. An empty store
// returns no results without embedding the query.
func (s *Store) Search(ctx context.Context, queryText string, topK int, threshold float32) ([]Result, error) {
	snapshot := s.snapshot()
	if len(snapshot) == 0 {
		s.logger.Warn("vector store is empty, search skipped")
		return []Result{}, nil
	}

	query, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, wrapEmbedError("query", err)
	}

	results := make([]Result, 0, len(snapshot))
	for _, chunk := range snapshot {
		score, err := CosineSimilarity(query, chunk.Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		if score >= threshold {
			results = append(results, Result{Chunk: chunk, Similarity: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if topK < 0 {
		topK = 0
	}
	if len(results) > topK {
		results = results[:topK]
	}

	s.logger.Debug("vector search", "query", queryText, "results", len(results))
	return results, nil
}

// Chunks returns a copy of the stored chunks in order.
func (s *Store) Chunks() []Chunk {
	snapshot := s.snapshot()
	cp := make([]Chunk, len(snapshot))
	copy(cp, snapshot)
	return cp
}

// Len returns the number of stored chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.chunks = nil
	s.mu.Unlock()

	s.logger.Info("vector store cleared")
}

// Serialize encodes the whole store as an indented JSON array of chunks,
// the same format as the knowledge-base file.
func (s *Store) Serialize() ([]byte, error) {
	return EncodeChunks(s.snapshot())
}

// Deserialize replaces the store contents with the chunks encoded in data.
func (s *Store) Deserialize(data []byte) error {
	chunks, err := DecodeChunks(data)
	if err != nil {
		return err
	}
	s.Initialize(chunks)
	return nil
}

func (s *Store) snapshot() []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks[:len(s.chunks):len(s.chunks)]
}

// EncodeChunks renders chunks as an indented JSON array.
func EncodeChunks(chunks []Chunk) ([]byte, error) {
	if chunks == nil {
		chunks = []Chunk{}
	}
	return json.MarshalIndent(chunks, "", "  ")
}

// DecodeChunks parses a JSON array of chunks. Failures wrap
// ErrMalformedKnowledgeBase.
func DecodeChunks(data []byte) ([]Chunk, error) {
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKnowledgeBase, err)
	}
	return chunks, nil
}
