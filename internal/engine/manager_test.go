package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"live-transcription-service/internal/audio"
	"live-transcription-service/internal/events"
	"live-transcription-service/internal/inference"
	"live-transcription-service/internal/inference/mock"
)

func testConfig() Config {
	return Config{
		WindowInterval:    10 * time.Millisecond,
		OverlapSpan:       2 * time.Millisecond,
		InferenceTimeout:  5 * time.Second,
		InactivityTimeout: time.Minute,
		OutboxSize:        16,
	}
}

func testManager(adapter inference.Adapter) *Manager {
	return NewManager(testConfig(), adapter, events.New(&events.Config{Enabled: false}), "mock")
}

// waitEvent blocks until the session emits an event or the test times out.
func waitEvent(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session event")
		return Event{}
	}
}

func TestOpen_UnsupportedFormat(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	_, err := m.Open(audio.Format{Encoding: "MULAW", SampleRateHz: 8000, Channels: 1})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSubmitChunk_UnknownSession(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	err := m.SubmitChunk("no-such-id", 0, []byte("audio"))
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestEndSession_UnknownSession(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	_, err := m.EndSession(context.Background(), "no-such-id")
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestSession_Lifecycle(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	f := audio.DefaultFormat()
	chunk := make([]byte, f.BytesFor(10*time.Millisecond))

	s, err := m.Open(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State() != StateOpen {
		t.Fatalf("expected OPEN, got %s", s.State())
	}

	// Each chunk fills exactly one window interval; wait for the delta
	// before sending the next so the window sequence is deterministic.
	if err := s.Submit(0, chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := waitEvent(t, s)
	if ev.Kind != EventDelta || ev.Delta != "the quick brown" {
		t.Fatalf("unexpected first event: %+v", ev)
	}

	if err := s.Submit(1, chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev = waitEvent(t, s)
	if ev.Kind != EventDelta || ev.Delta != " fox jumps over" {
		t.Fatalf("unexpected second event: %+v", ev)
	}

	text, err := s.End(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "the quick brown fox jumps over" {
		t.Errorf("unexpected transcript %q", text)
	}
	if s.State() != StateClosed {
		t.Errorf("expected CLOSED, got %s", s.State())
	}

	ev = waitEvent(t, s)
	if ev.Kind != EventFinal || ev.Transcript != text {
		t.Errorf("unexpected final event: %+v", ev)
	}
	if _, ok := <-s.Events(); ok {
		t.Error("expected event channel to be closed after final")
	}
}

func TestSession_EndFlushesShortTail(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	f := audio.DefaultFormat()
	s, err := m.Open(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Less than one window interval: only the end-of-stream flush can
	// cover it.
	short := make([]byte, f.BytesFor(4*time.Millisecond))
	if err := s.Submit(0, short); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := s.End(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "the quick brown" {
		t.Errorf("expected flushed tail transcript, got %q", text)
	}
}

func TestSession_EndTwice(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	s, _ := m.Open(audio.DefaultFormat())
	if _, err := s.End(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := m.EndSession(context.Background(), s.ID)
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_SubmitAfterEnd(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	s, _ := m.Open(audio.DefaultFormat())
	if _, err := s.End(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := s.Submit(0, []byte("late"))
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_OutOfOrderChunk(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	s, _ := m.Open(audio.DefaultFormat())
	defer s.Abort()

	if err := s.Submit(0, []byte("aa")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Submit(2, []byte("bb"))
	if !errors.Is(err, ErrOutOfOrderChunk) {
		t.Fatalf("expected ErrOutOfOrderChunk, got %v", err)
	}
}

func TestSession_InferenceFailureIsNotFatal(t *testing.T) {
	adapter := mock.New()
	adapter.FailOn(0, inference.ErrFailed)
	m := testManager(adapter)
	defer m.Close(context.Background())

	f := audio.DefaultFormat()
	chunk := make([]byte, f.BytesFor(10*time.Millisecond))

	s, _ := m.Open(f)
	if err := s.Submit(0, chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := waitEvent(t, s)
	if ev.Kind != EventError || ev.Code != "inference_failed" {
		t.Fatalf("expected inference_failed error event, got %+v", ev)
	}

	// The session keeps going; the next window succeeds.
	if err := s.Submit(1, chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev = waitEvent(t, s)
	if ev.Kind != EventDelta || ev.Delta != "the quick brown" {
		t.Fatalf("unexpected event after failure: %+v", ev)
	}

	text, err := s.End(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "the quick brown" {
		t.Errorf("unexpected transcript %q", text)
	}
}

func TestSession_Abort(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	s, _ := m.Open(audio.DefaultFormat())
	if err := s.Submit(0, []byte("audio")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Abort()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for abort")
	}

	if s.State() != StateClosed {
		t.Errorf("expected CLOSED, got %s", s.State())
	}
	for ev := range s.Events() {
		if ev.Kind == EventFinal {
			t.Error("aborted session must not emit a final transcript")
		}
	}
}

func TestTranscribeOnce(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	f := audio.DefaultFormat()
	pcm := make([]byte, f.BytesFor(25*time.Millisecond))

	text, err := m.TranscribeOnce(context.Background(), pcm, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text == "" {
		t.Error("expected a non-empty transcript")
	}
	if m.Sessions() != 0 {
		t.Errorf("expected throwaway session to be removed, got %d", m.Sessions())
	}
}

func TestTranscribeOnce_InferenceFailure(t *testing.T) {
	tests := []struct {
		name   string
		inject error
		want   error
	}{
		{"failed", inference.ErrFailed, inference.ErrFailed},
		{"unavailable", inference.ErrUnavailable, inference.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := mock.New()
			adapter.FailOn(0, tt.inject)
			m := testManager(adapter)
			defer m.Close(context.Background())

			f := audio.DefaultFormat()
			pcm := make([]byte, f.BytesFor(5*time.Millisecond))

			// The only window is the flush window and it fails, so the
			// caller must see the failure, not an empty success.
			_, err := m.TranscribeOnce(context.Background(), pcm, f)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if m.Sessions() != 0 {
				t.Errorf("expected throwaway session to be removed, got %d", m.Sessions())
			}
		})
	}
}

func TestSession_SerialInferenceUnderRapidSubmission(t *testing.T) {
	adapter := mock.New()
	adapter.SetDelay(5 * time.Millisecond)
	m := testManager(adapter)
	defer m.Close(context.Background())

	f := audio.DefaultFormat()
	chunk := make([]byte, f.BytesFor(10*time.Millisecond))

	s, err := m.Open(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Submit far faster than the adapter can transcribe.
	for i := 0; i < 20; i++ {
		if err := s.Submit(uint64(i), chunk); err != nil {
			t.Fatalf("unexpected error on chunk %d: %v", i, err)
		}
	}
	if _, err := s.End(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range s.Events() {
	}

	if adapter.Calls() == 0 {
		t.Fatal("expected at least one inference call")
	}
	if got := adapter.MaxInFlight(); got > 1 {
		t.Errorf("adapter entered concurrently: max in-flight %d", got)
	}
}

func TestNewManager_ZeroConfigDefaults(t *testing.T) {
	m := NewManager(Config{}, mock.New(), events.New(nil), "mock")
	defer m.Close(context.Background())

	f := audio.DefaultFormat()
	s, err := m.Open(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Submit(0, make([]byte, f.BytesFor(5*time.Millisecond))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := s.End(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "the quick brown" {
		t.Errorf("unexpected transcript %q", text)
	}
}

func TestSweep_AbortsIdleAndRemovesClosed(t *testing.T) {
	m := testManager(mock.New())
	defer m.Close(context.Background())

	s, _ := m.Open(audio.DefaultFormat())

	// Far enough in the future that the session counts as idle
	m.sweep(time.Now().Add(10 * time.Minute))
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reaper abort")
	}

	m.sweep(time.Now().Add(10 * time.Minute))
	if m.Sessions() != 0 {
		t.Errorf("expected closed session to be removed, got %d", m.Sessions())
	}
}
