package inmemory

import (
	"context"
	"sync"

	"github.com/barekit/folio/pkg/llm"
)

// InMemory implements Memory using a map.
type InMemory struct {
	mu       sync.RWMutex
	messages map[string][]llm.Message
	counts   map[string]int64
}

// New creates a new InMemory adapter.
func New() *InMemory {
	return &InMemory{
		messages: make(map[string][]llm.Message),
		counts:   make(map[string]int64),
	}
}

// Save appends the message and bumps the session count under one lock.
func (m *InMemory) Save(ctx context.Context, sessionID string, msg llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages[sessionID] = append(m.messages[sessionID], msg)
	m.counts[sessionID]++
	return nil
}

// Load loads messages from the in-memory store.
func (m *InMemory) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy so callers cannot alias the stored slice
	msgs := m.messages[sessionID]
	result := make([]llm.Message, len(msgs))
	copy(result, msgs)

	return result, nil
}

// Count returns the number of messages saved for the session.
func (m *InMemory) Count(ctx context.Context, sessionID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[sessionID], nil
}

// Close is a no-op.
func (m *InMemory) Close(ctx context.Context) error {
	return nil
}
