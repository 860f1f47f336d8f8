// Package transport maps engine errors onto the wire-level codes shared by
// the HTTP and WebSocket surfaces.
package transport

import (
	"errors"
	"net/http"

	"live-transcription-service/internal/engine"
	"live-transcription-service/internal/engine/buffer"
	"live-transcription-service/internal/inference"
)

// Code returns the stable error code for an engine error.
func Code(err error) string {
	switch {
	case errors.Is(err, engine.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, engine.ErrUnknownSession):
		return "unknown_session"
	case errors.Is(err, engine.ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, engine.ErrOutOfOrderChunk):
		return "out_of_order_chunk"
	case errors.Is(err, buffer.ErrRangeUnavailable):
		return "range_unavailable"
	case errors.Is(err, inference.ErrUnavailable):
		return "inference_unavailable"
	case errors.Is(err, inference.ErrFailed):
		return "inference_failed"
	default:
		return "internal"
	}
}

// HTTPStatus returns the HTTP status for an engine error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnsupportedFormat),
		errors.Is(err, engine.ErrOutOfOrderChunk):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, inference.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
