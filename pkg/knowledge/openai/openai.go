package openai

import (
	"context"
	"errors"
	"time"

	"github.com/barekit/folio/pkg/knowledge"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultTimeout bounds a single embedding request.
const DefaultTimeout = 15 * time.Second

// Embedder implements knowledge.Embedder using OpenAI.
type Embedder struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
}

// NewEmbedder creates a new OpenAI Embedder. Retries are disabled unless
// opts enable them again.
func NewEmbedder(opts ...option.RequestOption) *Embedder {
	opts = append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &Embedder{
		client:  &client,
		model:   openai.EmbeddingModelTextEmbedding3Small,
		timeout: DefaultTimeout,
	}
}

// SetModel sets the embedding model.
func (e *Embedder) SetModel(model string) {
	e.model = openai.EmbeddingModel(model)
}

// SetTimeout sets the per-request timeout. Zero disables it.
func (e *Embedder) SetTimeout(d time.Duration) {
	e.timeout = d
}

// Embed generates the embedding for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, &knowledge.EmbeddingError{Op: "input", Err: errors.New("cannot embed empty text")}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: e.model,
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, &knowledge.EmbeddingError{Op: "request", Err: err}
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &knowledge.EmbeddingError{Op: "response", Err: errors.New("no embedding data returned from API")}
	}

	// Convert []float64 to []float32
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}

	return vec, nil
}
