package chat

import (
	"context"
	"fmt"
)

// Request is one streaming completion request.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   uint16
	Temperature float64
	Stream      bool // false asks for the whole reply as a single chunk
}

// Chunk is one streamed response chunk. It may carry no deltas at all.
type Chunk struct {
	Deltas []string
}

// ChunkStream is a lazy, finite, non-restartable sequence of chunks.
// Next blocks until a chunk arrives; it returns false on exhaustion or error,
// after which Err tells the two apart.
type ChunkStream interface {
	Next() bool
	Current() Chunk
	Err() error
	Close() error
}

// Completer opens streaming completions against a remote service.
type Completer interface {
	Stream(ctx context.Context, req Request) ChunkStream
}

// StreamError is returned when a stream fails mid-way. Partial holds the text
// received before the failure, which is kept in the transcript.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d bytes): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
