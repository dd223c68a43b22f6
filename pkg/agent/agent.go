// Package agent answers one chat turn: it retrieves context from the
// knowledge store, streams a generated reply and records the turn.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/barekit/folio/pkg/knowledge"
	"github.com/barekit/folio/pkg/llm"
	"github.com/barekit/folio/pkg/memory"
)

const (
	DefaultTopK         = 5
	DefaultThreshold    = 0.5
	DefaultHistoryLimit = 6

	// SourceSeparator joins the rendered sources in the context string.
	SourceSeparator = "\n\n---\n\n"
)

// ErrEmptyMessage is returned when a request carries no question.
var ErrEmptyMessage = errors.New("message is required")

// Retriever finds the chunks most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, topK int, threshold float32) ([]knowledge.Result, error)
}

// Responder streams an answer for a question, its context and history.
type Responder interface {
	Stream(ctx context.Context, question, retrieved string, history []llm.Message) (<-chan llm.Chunk, error)
}

// Request is one chat turn.
type Request struct {
	Message   string
	History   []llm.Message
	SessionID string
}

// Agent represents the portfolio chat assistant.
type Agent struct {
	retriever    Retriever
	responder    Responder
	memory       memory.Memory
	topK         int
	threshold    float32
	historyLimit int
	fallback     string
	logger       *slog.Logger
}

// Option is a function that configures an Agent.
type Option func(*Agent)

// FallbackContext is the context used when nothing relevant was retrieved.
func FallbackContext(owner string) string {
	if owner == "" {
		owner = "the portfolio owner"
	}
	return fmt.Sprintf("No specific context found. Provide general information about %s.", owner)
}

// New creates a new Agent.
func New(retriever Retriever, responder Responder, opts ...Option) *Agent {
	a := &Agent{
		retriever:    retriever,
		responder:    responder,
		topK:         DefaultTopK,
		threshold:    DefaultThreshold,
		historyLimit: DefaultHistoryLimit,
		fallback:     FallbackContext(""),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) Option {
	return func(a *Agent) {
		a.topK = k
	}
}

// WithThreshold sets the minimum similarity of a retrieved chunk.
func WithThreshold(threshold float32) Option {
	return func(a *Agent) {
		a.threshold = threshold
	}
}

// WithHistoryLimit sets how many of the most recent history entries are used.
func WithHistoryLimit(n int) Option {
	return func(a *Agent) {
		a.historyLimit = n
	}
}

// WithFallback sets the context text used when retrieval finds nothing.
func WithFallback(text string) Option {
	return func(a *Agent) {
		a.fallback = text
	}
}

// WithMemory records every completed turn of a session in mem.
func WithMemory(mem memory.Memory) Option {
	return func(a *Agent) {
		a.memory = mem
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// BuildContext renders retrieved chunks as numbered sources, or returns
// fallback when there are none.
func BuildContext(results []knowledge.Result, fallback string) string {
	if len(results) == 0 {
		return fallback
	}
	sources := make([]string, len(results))
	for i, r := range results {
		sources[i] = fmt.Sprintf("[Source %d]: %s", i+1, r.Text)
	}
	return strings.Join(sources, SourceSeparator)
}

// Ask retrieves context for the request and streams the answer. Retrieval
// and generation start-up failures are returned directly; failures after
// that arrive as the final chunk of the stream.
func (a *Agent) Ask(ctx context.Context, req Request) (<-chan llm.Chunk, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return nil, ErrEmptyMessage
	}

	a.logger.Info("received message", "session_id", req.SessionID, "length", len(question))

	results, err := a.retriever.Search(ctx, question, a.topK, a.threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	if len(results) == 0 {
		a.logger.Warn("no relevant chunks found, answering with general context")
	}
	a.logger.Info("retrieved relevant chunks", "count", len(results))

	history := req.History
	if a.historyLimit >= 0 && len(history) > a.historyLimit {
		history = history[len(history)-a.historyLimit:]
	}

	stream, err := a.responder.Stream(ctx, question, BuildContext(results, a.fallback), history)
	if err != nil {
		return nil, err
	}

	a.remember(ctx, req.SessionID, llm.Message{Role: llm.RoleUser, Content: question})

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)

		var reply strings.Builder
		for chunk := range stream {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Err != nil {
				return
			}
			reply.WriteString(chunk.Content)
		}
		if ctx.Err() != nil {
			return
		}

		a.remember(ctx, req.SessionID, llm.Message{Role: llm.RoleAssistant, Content: reply.String()})
	}()

	return out, nil
}

// Answer is the non-streaming variant of Ask.
func (a *Agent) Answer(ctx context.Context, req Request) (string, error) {
	stream, err := a.Ask(ctx, req)
	if err != nil {
		return "", err
	}
	return llm.Drain(stream)
}

// remember saves msg when a memory and a session are set. Failures are
// logged and never fail the turn.
func (a *Agent) remember(ctx context.Context, sessionID string, msg llm.Message) {
	if a.memory == nil || sessionID == "" {
		return
	}
	if err := a.memory.Save(ctx, sessionID, msg); err != nil {
		a.logger.Error("failed to save message", "session_id", sessionID, "role", msg.Role, "error", err)
	}
}
