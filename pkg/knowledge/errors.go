package knowledge

import (
	"errors"
	"fmt"
)

// ErrMalformedKnowledgeBase is returned when the knowledge-base file exists
// but cannot be decoded into chunks.
var ErrMalformedKnowledgeBase = errors.New("malformed knowledge base")

// EmbeddingError reports a failed or unusable upstream embedding call.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// DimensionMismatchError reports a similarity computed over vectors of
// unequal length. It indicates corrupted store contents.
type DimensionMismatchError struct {
	Left  int
	Right int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: %d != %d", e.Left, e.Right)
}
