package answer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/barekit/folio/pkg/llm"
)

type mockProvider struct {
	fragments []string
	failAfter error
	startErr  error
	got       []llm.Message
}

func (m *mockProvider) Stream(ctx context.Context, messages []llm.Message) (<-chan llm.Chunk, error) {
	m.got = messages
	if m.startErr != nil {
		return nil, m.startErr
	}
	ch := make(chan llm.Chunk, len(m.fragments)+1)
	for _, f := range m.fragments {
		ch <- llm.Chunk{Content: f}
	}
	if m.failAfter != nil {
		ch <- llm.Chunk{Err: m.failAfter}
	}
	close(ch)
	return ch, nil
}

// endlessProvider streams until ctx is done and reports when it stopped.
type endlessProvider struct {
	stopped chan struct{}
}

func (p *endlessProvider) Stream(ctx context.Context, messages []llm.Message) (<-chan llm.Chunk, error) {
	ch := make(chan llm.Chunk)
	go func() {
		defer close(p.stopped)
		defer close(ch)
		for {
			select {
			case ch <- llm.Chunk{Content: "x"}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// stalledProvider never produces anything and closes once ctx is done.
type stalledProvider struct{}

func (stalledProvider) Stream(ctx context.Context, messages []llm.Message) (<-chan llm.Chunk, error) {
	ch := make(chan llm.Chunk)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerator_Messages(t *testing.T) {
	g := New(&mockProvider{}, WithOwner("Jordan"), WithLogger(discardLogger()))
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
	}

	msgs := g.Messages("What did Jordan ship?", "[Source 1]: an agent", history)
	if len(msgs) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem || !strings.HasPrefix(msgs[0].Content, "You are Jordan's AI assistant") {
		t.Errorf("Unexpected system message: %+v", msgs[0])
	}
	if msgs[1].Role != llm.RoleUser || msgs[2].Role != llm.RoleAssistant {
		t.Errorf("History roles not preserved: %+v", msgs[1:3])
	}
	want := "Context from Jordan's portfolio:\n[Source 1]: an agent\n\nQuestion: What did Jordan ship?\n\nAnswer:"
	if msgs[3].Role != llm.RoleUser || msgs[3].Content != want {
		t.Errorf("Unexpected prompt: %q", msgs[3].Content)
	}
}

func TestGenerator_Answer(t *testing.T) {
	p := &mockProvider{fragments: []string{"Jordan ", "shipped ", "an agent."}}
	g := New(p, WithLogger(discardLogger()))

	got, err := g.Answer(context.Background(), "q", "ctx", nil)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if got != "Jordan shipped an agent." {
		t.Errorf("Expected concatenated fragments, got %q", got)
	}
}

func TestGenerator_FailureAfterTwoFragments(t *testing.T) {
	p := &mockProvider{fragments: []string{"one ", "two "}, failAfter: errors.New("upstream reset")}
	g := New(p, WithLogger(discardLogger()))

	stream, err := g.Stream(context.Background(), "q", "ctx", nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	var fragments []string
	var streamErr error
	for chunk := range stream {
		if chunk.Err != nil {
			if len(fragments) != 2 {
				t.Errorf("Error arrived after %d fragments, expected 2", len(fragments))
			}
			streamErr = chunk.Err
			continue
		}
		if streamErr != nil {
			t.Error("Fragment received after error")
		}
		fragments = append(fragments, chunk.Content)
	}

	if strings.Join(fragments, "") != "one two " {
		t.Errorf("Expected the two fragments to remain observable, got %v", fragments)
	}
	var genErr *GenerationError
	if !errors.As(streamErr, &genErr) {
		t.Fatalf("Expected GenerationError, got %v", streamErr)
	}
}

func TestGenerator_StartFailure(t *testing.T) {
	g := New(&mockProvider{startErr: errors.New("bad request")}, WithLogger(discardLogger()))

	_, err := g.Stream(context.Background(), "q", "ctx", nil)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected GenerationError, got %v", err)
	}
}

func TestGenerator_CancelStopsProducer(t *testing.T) {
	p := &endlessProvider{stopped: make(chan struct{})}
	g := New(p, WithLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := g.Stream(ctx, "q", "ctx", nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	<-stream
	cancel()

	select {
	case <-p.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Producer did not stop after cancellation")
	}
	for range stream {
	}
}

func TestGenerator_Timeout(t *testing.T) {
	g := New(stalledProvider{}, WithTimeout(20*time.Millisecond), WithLogger(discardLogger()))

	_, err := g.Answer(context.Background(), "q", "ctx", nil)
	var genErr *GenerationError
	if !errors.As(err, &genErr) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected GenerationError wrapping deadline, got %v", err)
	}
}

func TestGenerator_CallerDeadlineReleasesUnreadStream(t *testing.T) {
	g := New(stalledProvider{}, WithTimeout(time.Minute), WithLogger(discardLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	stream, err := g.Stream(ctx, "q", "ctx", nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	// Nobody reads until well after the caller's deadline.
	<-ctx.Done()
	time.Sleep(100 * time.Millisecond)

	select {
	case chunk, ok := <-stream:
		if ok {
			t.Fatalf("Expected the producer to have exited, got pending chunk %+v", chunk)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stream was never closed")
	}
}

func TestGenerator_EmptyOwnerKeepsDefault(t *testing.T) {
	g := New(&mockProvider{}, WithOwner(""), WithLogger(discardLogger()))

	msgs := g.Messages("q", "ctx", nil)
	if !strings.HasPrefix(msgs[0].Content, "You are the portfolio owner's AI assistant") {
		t.Errorf("Expected default owner in persona, got %q", msgs[0].Content[:60])
	}
	if !strings.HasPrefix(msgs[1].Content, "Context from the portfolio owner's portfolio:") {
		t.Errorf("Expected default owner in prompt, got %q", msgs[1].Content)
	}
}
