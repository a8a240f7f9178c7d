package ai

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrEmptyResponse is returned by clients when the model produced no text.
var ErrEmptyResponse = errors.New("empty model response")

// GenerationError means the model call itself failed (network, quota, timeout).
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation failed: %v", e.Err) }

func (e *GenerationError) Unwrap() error { return e.Err }

// ExtractionError means a response arrived but no payload could be located or parsed.
// Raw is kept for server-side diagnostics and is not part of Error().
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string { return fmt.Sprintf("extract payload: %v", e.Err) }

func (e *ExtractionError) Unwrap() error { return e.Err }
