// Package engine implements the live transcription session engine: per
// session it buffers audio chunks, schedules overlapping inference windows,
// and reconciles window results into a single growing transcript.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"live-transcription-service/internal/audio"
	"live-transcription-service/internal/events"
	"live-transcription-service/internal/inference"
	"live-transcription-service/internal/observability/logging"
	"live-transcription-service/internal/observability/metrics"
)

// Config holds engine tuning parameters.
type Config struct {
	// WindowInterval is how much new audio accumulates before an
	// inference window is scheduled.
	WindowInterval time.Duration

	// OverlapSpan is how far each window reaches back into the previous
	// one so boundary words can be stitched.
	OverlapSpan time.Duration

	// InferenceTimeout bounds a single inference call.
	InferenceTimeout time.Duration

	// InactivityTimeout is how long an idle session survives before the
	// reaper aborts it. Closed sessions linger this long for late
	// lifecycle calls before being removed.
	InactivityTimeout time.Duration

	// OutboxSize is the per-session event channel capacity.
	OutboxSize int
}

// DefaultConfig returns engine defaults.
func DefaultConfig() Config {
	return Config{
		WindowInterval:    2 * time.Second,
		OverlapSpan:       500 * time.Millisecond,
		InferenceTimeout:  30 * time.Second,
		InactivityTimeout: 2 * time.Minute,
		OutboxSize:        64,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WindowInterval <= 0 {
		c.WindowInterval = def.WindowInterval
	}
	if c.OverlapSpan <= 0 {
		c.OverlapSpan = def.OverlapSpan
	}
	if c.InferenceTimeout <= 0 {
		c.InferenceTimeout = def.InferenceTimeout
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = def.InactivityTimeout
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = def.OutboxSize
	}
	return c
}

// Manager owns the session registry and the inactivity reaper.
type Manager struct {
	cfg       Config
	adapter   inference.Adapter
	publisher *events.Publisher
	metrics   *metrics.Metrics
	provider  string

	mu       sync.RWMutex
	sessions map[string]*Session

	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a manager and starts its background reaper.
func NewManager(cfg Config, adapter inference.Adapter, publisher *events.Publisher, provider string) *Manager {
	m := &Manager{
		cfg:       cfg.withDefaults(),
		adapter:   adapter,
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		provider:  provider,
		sessions:  make(map[string]*Session),
		stop:      make(chan struct{}),
	}
	go m.reap()
	return m
}

// Open creates a new session for the given audio format and starts its
// worker. Fails with ErrUnsupportedFormat if the inference backend cannot
// accept the format.
func (m *Manager) Open(format audio.Format) (*Session, error) {
	if !m.adapter.SupportsFormat(format) {
		m.metrics.RecordChunkRejected("unsupported_format")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	s := newSession(uuid.NewString(), format, m.cfg, m.adapter, m.publisher, m.provider)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.metrics.RecordSessionOpened()
	l := logging.WithSession(s.ID)
	l.Info().
		Str("format", format.String()).
		Str("provider", m.provider).
		Msg("session opened")
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s, nil
}

// SubmitChunk appends a chunk to the identified session.
func (m *Manager) SubmitChunk(id string, seq uint64, chunk []byte) error {
	s, err := m.Get(id)
	if err != nil {
		m.metrics.RecordChunkRejected("unknown_session")
		return err
	}
	return s.Submit(seq, chunk)
}

// EndSession flushes and closes the identified session, returning the final
// transcript. The closed session stays in the registry until the reaper
// removes it, so a repeated End yields ErrSessionClosed rather than
// ErrUnknownSession.
func (m *Manager) EndSession(ctx context.Context, id string) (string, error) {
	s, err := m.Get(id)
	if err != nil {
		return "", err
	}
	return s.End(ctx)
}

// Abort discards the identified session, e.g. on client disconnect. Unknown
// IDs are ignored.
func (m *Manager) Abort(id string) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Abort()
	}
}

// TranscribeOnce runs a complete audio payload through a throwaway session:
// open, one chunk, end. Used for non-streaming requests.
//
// A streaming client sees window failures as error events; the one-shot
// caller has no event stream, so any window failure becomes the request
// error here.
func (m *Manager) TranscribeOnce(ctx context.Context, pcm []byte, format audio.Format) (string, error) {
	s, err := m.Open(format)
	if err != nil {
		return "", err
	}
	defer m.remove(s.ID)

	inferr := make(chan error, 1)
	go func() {
		var last error
		for ev := range s.Events() {
			if ev.Kind == EventError {
				last = inferenceError(ev)
			}
		}
		inferr <- last
	}()

	if err := s.Submit(0, pcm); err != nil {
		s.Abort()
		return "", err
	}
	text, err := s.End(ctx)
	if err != nil {
		s.Abort()
		return "", err
	}
	if err := <-inferr; err != nil {
		return "", err
	}
	return text, nil
}

// inferenceError rebuilds the adapter error behind an error event so the
// transport layer can map it back to a wire code.
func inferenceError(ev Event) error {
	if ev.Code == "inference_unavailable" {
		return fmt.Errorf("%w: %s", inference.ErrUnavailable, ev.Message)
	}
	return fmt.Errorf("%w: %s", inference.ErrFailed, ev.Message)
}

// Close aborts all sessions and stops the reaper. It waits for session
// workers to finish or the context to expire.
func (m *Manager) Close(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.RLock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.RUnlock()

	for _, s := range open {
		s.Abort()
	}
	for _, s := range open {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Sessions returns the number of sessions in the registry.
func (m *Manager) Sessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// reap periodically aborts idle sessions and clears out closed ones.
func (m *Manager) reap() {
	interval := m.cfg.InactivityTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	cutoff := now.Add(-m.cfg.InactivityTimeout)

	m.mu.RLock()
	stale := make([]*Session, 0)
	for _, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range stale {
		if s.State() == StateClosed {
			m.remove(s.ID)
			continue
		}
		l := logging.WithSession(s.ID)
		l.Warn().Msg("session idle too long, aborting")
		s.Abort()
	}
}
