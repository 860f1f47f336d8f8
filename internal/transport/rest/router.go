package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"live-transcription-service/internal/engine"
	"live-transcription-service/internal/observability"
	"live-transcription-service/internal/transport/ws"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(m *engine.Manager) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger())

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	h := NewHandler(m)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/transcribe", h.Transcribe)
		r.Handle("/stream", ws.NewHandler(m))
	})

	return r
}
