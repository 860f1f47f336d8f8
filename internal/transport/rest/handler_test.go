package rest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"live-transcription-service/internal/audio"
	"live-transcription-service/internal/engine"
	"live-transcription-service/internal/events"
	"live-transcription-service/internal/inference"
	"live-transcription-service/internal/inference/mock"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	return testRouterWith(t, mock.New())
}

func testRouterWith(t *testing.T, adapter *mock.Adapter) http.Handler {
	t.Helper()
	cfg := engine.Config{
		WindowInterval:    10 * time.Millisecond,
		OverlapSpan:       2 * time.Millisecond,
		InferenceTimeout:  5 * time.Second,
		InactivityTimeout: time.Minute,
		OutboxSize:        16,
	}
	m := engine.NewManager(cfg, adapter, events.New(&events.Config{Enabled: false}), "mock")
	t.Cleanup(func() { m.Close(context.Background()) })
	return NewRouter(m)
}

func postTranscribe(t *testing.T, router http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTranscribe_Success(t *testing.T) {
	router := testRouter(t)

	f := audio.DefaultFormat()
	pcm := make([]byte, f.BytesFor(25*time.Millisecond))

	rec := postTranscribe(t, router, map[string]any{
		"audio_data":  base64.StdEncoding.EncodeToString(pcm),
		"format":      "pcm",
		"sample_rate": 16000,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("expected status 'success', got %q", resp.Status)
	}
	if resp.Text == "" {
		t.Error("expected a non-empty transcript")
	}
}

func TestTranscribe_MissingAudio(t *testing.T) {
	router := testRouter(t)

	rec := postTranscribe(t, router, map[string]any{"sample_rate": 16000})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestTranscribe_InvalidBase64(t *testing.T) {
	router := testRouter(t)

	rec := postTranscribe(t, router, map[string]any{"audio_data": "not base64!!!"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestTranscribe_InvalidJSON(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/transcribe", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestTranscribe_UnsupportedFormat(t *testing.T) {
	router := testRouter(t)

	rec := postTranscribe(t, router, map[string]any{
		"audio_data": base64.StdEncoding.EncodeToString([]byte("audio")),
		"format":     "mulaw",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
		Code   string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != "unsupported_format" {
		t.Errorf("expected code 'unsupported_format', got %q", resp.Code)
	}
}

func TestTranscribe_InferenceFailure(t *testing.T) {
	adapter := mock.New()
	adapter.FailOn(0, inference.ErrFailed)
	router := testRouterWith(t, adapter)

	f := audio.DefaultFormat()
	pcm := make([]byte, f.BytesFor(5*time.Millisecond))

	rec := postTranscribe(t, router, map[string]any{
		"audio_data":  base64.StdEncoding.EncodeToString(pcm),
		"format":      "pcm",
		"sample_rate": 16000,
	})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
		Code   string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "error" {
		t.Errorf("expected status 'error', got %q", resp.Status)
	}
	if resp.Code != "inference_failed" {
		t.Errorf("expected code 'inference_failed', got %q", resp.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for %s, got %d", path, rec.Code)
		}
	}
}
