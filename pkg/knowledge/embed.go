package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the number of texts embedded concurrently per group.
	DefaultBatchSize = 100
	// DefaultBatchDelay is the pause between successive groups.
	DefaultBatchDelay = time.Second
)

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type batchConfig struct {
	size    int
	delay   time.Duration
	onGroup func(group, groups int)
}

// BatchOption configures EmbedBatch.
type BatchOption func(*batchConfig)

// WithBatchSize sets how many texts are embedded per group.
func WithBatchSize(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithBatchDelay sets the pause between groups.
func WithBatchDelay(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		c.delay = d
	}
}

// WithGroupStarted registers a callback invoked before each group (1-based).
func WithGroupStarted(fn func(group, groups int)) BatchOption {
	return func(c *batchConfig) {
		c.onGroup = fn
	}
}

// EmbedBatch embeds texts in fixed-size groups, one call per text within a
// group, waiting between groups. The output order matches texts. Any failure
// aborts the whole batch; no partial result is returned.
func EmbedBatch(ctx context.Context, e Embedder, texts []string, opts ...BatchOption) ([][]float32, error) {
	cfg := batchConfig{size: DefaultBatchSize, delay: DefaultBatchDelay}
	for _, opt := range opts {
		opt(&cfg)
	}

	vectors := make([][]float32, len(texts))
	groups := (len(texts) + cfg.size - 1) / cfg.size

	for start := 0; start < len(texts); start += cfg.size {
		end := min(start+cfg.size, len(texts))
		if cfg.onGroup != nil {
			cfg.onGroup(start/cfg.size+1, groups)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				vec, err := e.Embed(gctx, texts[i])
				if err != nil {
					return wrapEmbedError(fmt.Sprintf("batch item %d", i), err)
				}
				vectors[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if end < len(texts) && cfg.delay > 0 {
			if err := sleep(ctx, cfg.delay); err != nil {
				return nil, err
			}
		}
	}

	return vectors, nil
}

func wrapEmbedError(op string, err error) error {
	var embedErr *EmbeddingError
	if errors.As(err, &embedErr) {
		return err
	}
	return &EmbeddingError{Op: op, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
