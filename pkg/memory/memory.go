// Package memory records conversation turns per session.
package memory

import (
	"context"

	"github.com/barekit/folio/pkg/llm"
)

// Memory represents a storage for chat history.
type Memory interface {
	// Save appends a message to the session and increments its message
	// count in the same backend operation.
	Save(ctx context.Context, sessionID string, msg llm.Message) error
	// Load loads the chat history for a given session, oldest first.
	Load(ctx context.Context, sessionID string) ([]llm.Message, error)
	// Count returns the number of messages saved for the session.
	Count(ctx context.Context, sessionID string) (int64, error)
	// Close releases the backend connection.
	Close(ctx context.Context) error
}
