// Package answer drives the generative model that turns retrieved context
// and prior turns into a streamed reply.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/barekit/folio/pkg/llm"
)

// DefaultTimeout bounds one generation stream.
const DefaultTimeout = 120 * time.Second

// DefaultInstructions is the persona and policy given to the model. %[1]s is
// replaced with the portfolio owner's name.
const DefaultInstructions = `You are %[1]s's AI assistant, helping visitors learn about their professional experience.

Core traits:
- Direct and concise (no fluff)
- Focus on impact and outcomes
- Use specific metrics when available

Guidelines:
- Answer based ONLY on provided context
- If information isn't in context, say "I don't have specific information about that, but I can tell you..."
- Keep responses under 150 words unless asked for more detail
- Use bullet points for lists of 3+ items
- End with a relevant follow-up question when appropriate`

// GenerationError reports a failed generation call, before or during streaming.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator produces answers from a question, its context and history.
type Generator struct {
	llm          llm.Provider
	owner        string
	instructions string
	timeout      time.Duration
	logger       *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithOwner sets the name of the person the assistant speaks for. An empty
// name keeps the default.
func WithOwner(name string) Option {
	return func(g *Generator) {
		if name != "" {
			g.owner = name
		}
	}
}

// WithInstructions replaces the system instruction. It is used verbatim.
func WithInstructions(instructions string) Option {
	return func(g *Generator) {
		g.instructions = instructions
	}
}

// WithTimeout bounds each stream. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		g.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// New creates a Generator backed by provider.
func New(provider llm.Provider, opts ...Option) *Generator {
	g := &Generator{
		llm:     provider,
		owner:   "the portfolio owner",
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.instructions == "" {
		g.instructions = fmt.Sprintf(DefaultInstructions, g.owner)
	}
	return g
}

// Prompt renders the single user turn combining retrieved context and question.
func (g *Generator) Prompt(question, retrieved string) string {
	return fmt.Sprintf("Context from %s's portfolio:\n%s\n\nQuestion: %s\n\nAnswer:", g.owner, retrieved, question)
}

// Messages builds the full conversation sent to the model.
func (g *Generator) Messages(question, retrieved string, history []llm.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: g.instructions})
	for _, h := range history {
		role := llm.RoleUser
		if h.Role == llm.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: h.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: g.Prompt(question, retrieved)})
	return messages
}

// Stream starts a generation and returns its fragments in order. The channel
// is finite and cannot be restarted. A failure is delivered as a final chunk
// whose Err is a *GenerationError; fragments sent before it stay valid.
// Consumers must drain the channel or cancel ctx, which stops the upstream
// request.
func (g *Generator) Stream(ctx context.Context, question, retrieved string, history []llm.Message) (<-chan llm.Chunk, error) {
	parent := ctx
	cancel := context.CancelFunc(func() {})
	if g.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, g.timeout)
	}

	upstream, err := g.llm.Stream(ctx, g.Messages(question, retrieved, history))
	if err != nil {
		cancel()
		return nil, &GenerationError{Err: err}
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		defer cancel()

		fragments := 0
		for chunk := range upstream {
			if chunk.Err != nil {
				g.logger.Error("generation stream failed", "fragments", fragments, "error", chunk.Err)
				select {
				case out <- llm.Chunk{Err: &GenerationError{Err: chunk.Err}}:
				case <-parent.Done():
				}
				return
			}
			select {
			case out <- chunk:
				fragments++
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}

		// A timed-out stream must not look complete. The error is dropped
		// only when the caller's own context is done and nobody reads.
		if err := ctx.Err(); errors.Is(err, context.DeadlineExceeded) {
			g.logger.Error("generation timed out", "fragments", fragments)
			select {
			case out <- llm.Chunk{Err: &GenerationError{Err: err}}:
			case <-parent.Done():
			}
		}
	}()

	return out, nil
}

// Answer is the non-streaming variant: it drains Stream and concatenates.
func (g *Generator) Answer(ctx context.Context, question, retrieved string, history []llm.Message) (string, error) {
	stream, err := g.Stream(ctx, question, retrieved, history)
	if err != nil {
		return "", err
	}
	return llm.Drain(stream)
}
