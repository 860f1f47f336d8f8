// Package inference defines the boundary to speech-to-text backends.
package inference

import (
	"context"
	"errors"

	"live-transcription-service/internal/audio"
)

// Errors adapters report so callers can tell transient backend trouble from
// a failed transcription pass.
var (
	// ErrUnavailable means the backend could not be reached at all.
	ErrUnavailable = errors.New("inference backend unavailable")

	// ErrFailed means the backend was reached but the pass failed.
	ErrFailed = errors.New("inference failed")
)

// Adapter transcribes one window of audio per call. Implementations must be
// safe for concurrent use across sessions; within a session the engine
// guarantees at most one call is in flight.
type Adapter interface {
	// Transcribe converts a span of PCM audio to text. A cancelled or
	// expired context aborts the call.
	Transcribe(ctx context.Context, pcm []byte, format audio.Format) (string, error)

	// SupportsFormat reports whether the backend accepts audio in the
	// given format.
	SupportsFormat(f audio.Format) bool
}
