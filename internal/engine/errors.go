package engine

import (
	"errors"

	"live-transcription-service/internal/engine/buffer"
)

// Errors returned by the session manager and session operations.
var (
	// ErrUnsupportedFormat means the configured inference backend cannot
	// accept audio in the requested format.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrUnknownSession means no session with the given ID exists.
	ErrUnknownSession = errors.New("unknown session")

	// ErrSessionClosed means the session already left the OPEN state.
	ErrSessionClosed = errors.New("session closed")

	// ErrOutOfOrderChunk is re-exported so callers need not import the
	// buffer package to classify chunk rejections.
	ErrOutOfOrderChunk = buffer.ErrOutOfOrderChunk
)
