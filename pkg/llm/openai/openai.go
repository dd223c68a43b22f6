package openai

import (
	"context"
	"fmt"

	"github.com/barekit/folio/pkg/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Provider implements llm.Provider using the OpenAI chat completions API.
type Provider struct {
	client *openai.Client
	model  string
	config llm.GenerationConfig
}

// New creates a Provider. Retries are disabled unless opts enable them again.
func New(opts ...option.RequestOption) *Provider {
	opts = append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &Provider{
		client: &client,
		model:  openai.ChatModelGPT4oMini,
		config: llm.DefaultGenerationConfig(),
	}
}

// SetModel sets the model to use.
func (p *Provider) SetModel(model string) {
	p.model = model
}

// SetGenerationConfig sets the sampling parameters sent with every request.
func (p *Provider) SetGenerationConfig(cfg llm.GenerationConfig) {
	p.config = cfg
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.model
}

// Stream sends a list of messages to the LLM and returns a channel of response chunks.
// Upstream failures are delivered as the final chunk. Cancelling ctx stops the
// producer and closes the upstream stream.
func (p *Provider) Stream(ctx context.Context, messages []llm.Message) (<-chan llm.Chunk, error) {
	openaiMessages, err := buildMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Messages: openaiMessages,
		Model:    p.model,
	}
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}
	if p.config.TopP > 0 {
		params.TopP = openai.Float(p.config.TopP)
	}
	if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.config.MaxTokens))
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case out <- llm.Chunk{Content: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			select {
			case out <- llm.Chunk{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

func buildMessages(messages []llm.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			openaiMessages[i] = openai.SystemMessage(msg.Content)
		case llm.RoleUser:
			openaiMessages[i] = openai.UserMessage(msg.Content)
		case llm.RoleAssistant:
			openaiMessages[i] = openai.AssistantMessage(msg.Content)
		default:
			return nil, fmt.Errorf("unknown role: %s", msg.Role)
		}
	}
	return openaiMessages, nil
}
