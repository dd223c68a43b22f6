// Package builder turns a structured content document into the enriched
// chunk set consumed by knowledge.Loader.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/barekit/folio/pkg/knowledge"
)

// DefaultDelay is the pause between successive embedding requests.
const DefaultDelay = 250 * time.Millisecond

// TimestampFormat is the ISO-8601 layout stamped on every chunk.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Publisher mirrors a finished chunk set into an external system.
type Publisher interface {
	Publish(ctx context.Context, chunks []knowledge.Chunk) error
}

// Builder embeds drafts one at a time and assembles the knowledge base.
type Builder struct {
	embedder   knowledge.Embedder
	delay      time.Duration
	now        func() time.Time
	logger     *slog.Logger
	publishers []Publisher
}

// Option configures a Builder.
type Option func(*Builder)

// WithDelay sets the pause between embedding requests.
func WithDelay(d time.Duration) Option {
	return func(b *Builder) {
		b.delay = d
	}
}

// WithClock sets the clock used for chunk timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithPublishers adds mirrors that receive the chunk set after it is built.
func WithPublishers(publishers ...Publisher) Option {
	return func(b *Builder) {
		b.publishers = append(b.publishers, publishers...)
	}
}

// New creates a Builder.
func New(embedder knowledge.Embedder, opts ...Option) *Builder {
	b := &Builder{
		embedder: embedder,
		delay:    DefaultDelay,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build chunks content and embeds every chunk sequentially. The first
// embedding failure aborts the build; no partial chunk set is returned.
func (b *Builder) Build(ctx context.Context, content *Content) ([]knowledge.Chunk, error) {
	timestamp := b.now().UTC().Format(TimestampFormat)
	drafts := ChunkContent(content, timestamp)
	b.logger.Info("content chunked", "chunks", len(drafts))

	chunks := make([]knowledge.Chunk, 0, len(drafts))
	for i, d := range drafts {
		vec, err := b.embedder.Embed(ctx, d.Text)
		if err != nil {
			return nil, fmt.Errorf("chunk %d (%s/%s): %w", i, d.Metadata.Source, d.Metadata.Section, err)
		}

		chunks = append(chunks, knowledge.Chunk{
			ID:        fmt.Sprintf("chunk_%d", i),
			Text:      d.Text,
			Embedding: vec,
			Metadata:  d.Metadata,
		})

		if (i+1)%5 == 0 || i == len(drafts)-1 {
			b.logger.Info("embedding progress", "done", i+1, "total", len(drafts))
		}

		if i < len(drafts)-1 && b.delay > 0 {
			t := time.NewTimer(b.delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			}
		}
	}

	return chunks, nil
}

// Publish sends chunks to every configured publisher in order.
func (b *Builder) Publish(ctx context.Context, chunks []knowledge.Chunk) error {
	for _, p := range b.publishers {
		if err := p.Publish(ctx, chunks); err != nil {
			return fmt.Errorf("publish %T: %w", p, err)
		}
	}
	return nil
}

// WriteFile persists chunks to path atomically.
func WriteFile(path string, chunks []knowledge.Chunk) error {
	data, err := knowledge.EncodeChunks(chunks)
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmp, path)
}
