// Package rest implements the non-streaming HTTP surface.
package rest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"live-transcription-service/internal/audio"
	"live-transcription-service/internal/engine"
	"live-transcription-service/internal/transport"
)

type transcribeRequest struct {
	AudioData  string `json:"audio_data"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type transcribeResponse struct {
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Handler serves one-shot transcription requests.
type Handler struct {
	manager *engine.Manager
}

// NewHandler creates a REST handler backed by the session manager.
func NewHandler(m *engine.Manager) *Handler {
	return &Handler{manager: m}
}

// Transcribe handles POST /v1/transcribe: a complete base64 audio payload in,
// the full transcript out.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.AudioData == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "audio_data is required")
		return
	}

	pcm, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "audio_data is not valid base64")
		return
	}

	f := audio.DefaultFormat()
	f.Encoding = audio.ParseEncoding(req.Format)
	if req.SampleRate > 0 {
		f.SampleRateHz = req.SampleRate
	}

	text, err := h.manager.TranscribeOnce(r.Context(), pcm, f)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(pcm)).Msg("one-shot transcription failed")
		writeError(w, transport.HTTPStatus(err), transport.Code(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{Status: "success", Text: text})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, transcribeResponse{Status: "error", Code: code, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
