package schema

import (
	"errors"
	"fmt"
)

// ErrEmptyInput rejects empty or whitespace-only text before any call to an
// external model provider.
var ErrEmptyInput = errors.New("input text is empty")

// DimensionMismatchError aborts an upsert whose vectors do not match the
// fixed dimension of the index.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: index has %d, got %d", e.Want, e.Got)
}

// EmbeddingServiceError wraps a network or auth failure from the embedding
// provider. It is recoverable: callers surface it as a retryable failure and
// must not treat it as an empty retrieval.
type EmbeddingServiceError struct {
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service failure: %v", e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// GenerationError wraps a failure from the language model provider. It is
// recoverable: the user sees a retryable failure message, never a fabricated
// answer and never the refusal message.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failure: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
