package llm

import "context"

// Role represents the role of the message sender (system, user, assistant).
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Chunk is one fragment of a streamed response. A chunk carrying Err is
// always the last value sent before the channel is closed.
type Chunk struct {
	Content string
	Err     error
}

// GenerationConfig holds sampling parameters for a completion.
type GenerationConfig struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// DefaultGenerationConfig returns the sampling parameters used by the assistant.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature: 0.7,
		TopP:        0.95,
		MaxTokens:   2048,
	}
}

// Provider defines the interface for an LLM provider.
type Provider interface {
	// Stream sends a list of messages to the LLM and returns a channel of response chunks.
	// The channel is closed when the model finishes, fails, or ctx is done.
	Stream(ctx context.Context, messages []Message) (<-chan Chunk, error)
}

// Drain reads the stream to completion and concatenates its content.
// Content received before a failure is returned along with the error.
func Drain(stream <-chan Chunk) (string, error) {
	var out []byte
	for chunk := range stream {
		if chunk.Err != nil {
			return string(out), chunk.Err
		}
		out = append(out, chunk.Content...)
	}
	return string(out), nil
}
