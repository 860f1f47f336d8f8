package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"live-transcription-service/internal/audio"
	"live-transcription-service/internal/engine/buffer"
	"live-transcription-service/internal/engine/reconcile"
	"live-transcription-service/internal/engine/window"
	"live-transcription-service/internal/events"
	"live-transcription-service/internal/inference"
	"live-transcription-service/internal/models"
	"live-transcription-service/internal/observability/logging"
	"live-transcription-service/internal/observability/metrics"
)

// State is a session's lifecycle position.
type State int32

// Lifecycle: OPEN accepts chunks, FLUSHING drains buffered audio after the
// client signalled end-of-stream, CLOSED is terminal.
const (
	StateOpen State = iota
	StateFlushing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateFlushing:
		return "FLUSHING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Event kinds delivered on a session's event channel.
const (
	EventDelta = "delta"
	EventFinal = "final"
	EventError = "error"
)

// Event is one update from a session's worker: a committed transcript delta,
// the final transcript, or a non-fatal error notice.
type Event struct {
	Kind          string
	Delta         string
	Transcript    string
	Discontinuity bool
	Window        int
	Code          string
	Message       string
}

// Session owns one audio stream's buffer, window schedule, and transcript.
//
// All inference runs on the session's single worker goroutine, which
// guarantees at most one window is in flight per session no matter how fast
// chunks arrive.
type Session struct {
	ID        string
	Format    audio.Format
	createdAt time.Time

	mu           sync.Mutex
	state        State
	aborted      bool
	buf          *buffer.Buffer
	sched        *window.Scheduler
	rec          *reconcile.Reconciler
	lastActivity time.Time

	adapter   inference.Adapter
	publisher *events.Publisher
	metrics   *metrics.Metrics
	provider  string
	timeout   time.Duration
	log       zerolog.Logger

	nudge  chan struct{}
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
}

func newSession(id string, format audio.Format, cfg Config, adapter inference.Adapter, publisher *events.Publisher, provider string) *Session {
	interval := format.BytesFor(cfg.WindowInterval)
	overlap := format.BytesFor(cfg.OverlapSpan)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:           id,
		Format:       format,
		createdAt:    time.Now(),
		state:        StateOpen,
		buf:          buffer.New(overlap),
		sched:        window.New(interval, overlap),
		rec:          reconcile.New(),
		lastActivity: time.Now(),
		adapter:      adapter,
		publisher:    publisher,
		metrics:      metrics.DefaultMetrics,
		provider:     provider,
		timeout:      cfg.InferenceTimeout,
		log:          logging.WithSession(id),
		nudge:        make(chan struct{}, 1),
		events:       make(chan Event, cfg.OutboxSize),
		done:         make(chan struct{}),
		cancel:       cancel,
	}
	go s.run(ctx)
	return s
}

// Submit appends one audio chunk to the session's buffer. Chunks must arrive
// with strictly sequential sequence numbers starting at zero.
func (s *Session) Submit(seq uint64, chunk []byte) error {
	s.mu.Lock()
	if s.state != StateOpen {
		state := s.state
		s.mu.Unlock()
		s.metrics.RecordChunkRejected("session_closed")
		return fmt.Errorf("%w: session %s is %s", ErrSessionClosed, s.ID, state)
	}
	if _, err := s.buf.Append(seq, chunk); err != nil {
		s.mu.Unlock()
		s.metrics.RecordChunkRejected("out_of_order")
		return err
	}
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.metrics.RecordChunkAccepted(len(chunk))
	s.wake()
	return nil
}

// End signals end-of-stream, waits for the remaining audio to be flushed
// through inference, and returns the final transcript. A second End (or End
// after Abort) fails with ErrSessionClosed.
func (s *Session) End(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateOpen {
		state := s.state
		s.mu.Unlock()
		return "", fmt.Errorf("%w: session %s is %s", ErrSessionClosed, s.ID, state)
	}
	s.state = StateFlushing
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.wake()

	select {
	case <-s.done:
		return s.Transcript(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Abort discards the session without emitting a final transcript. Any
// in-flight inference call is cancelled. Safe to call more than once.
func (s *Session) Abort() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	if s.state == StateOpen {
		s.state = StateFlushing
	}
	s.mu.Unlock()

	s.cancel()
}

// Events returns the session's outbound event stream. The channel is closed
// once the session reaches CLOSED.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed when the session reaches CLOSED.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Transcript returns the transcript committed so far.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Transcript()
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivity returns when the session last accepted a chunk or lifecycle
// call.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) wake() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

// run is the session worker. It is the only goroutine that calls the
// inference adapter for this session.
func (s *Session) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			s.mu.Lock()
			s.aborted = true
			s.mu.Unlock()
		}

		s.mu.Lock()
		if s.aborted {
			s.state = StateClosed
			s.lastActivity = time.Now()
			s.mu.Unlock()
			s.finish(true)
			return
		}
		w, ok := s.sched.Next(s.buf.End())
		if !ok && s.state == StateFlushing {
			w, ok = s.sched.Flush(s.buf.End())
			if !ok {
				s.state = StateClosed
				s.lastActivity = time.Now()
				s.mu.Unlock()
				s.finish(false)
				return
			}
		}
		s.mu.Unlock()

		if !ok {
			select {
			case <-s.nudge:
			case <-ctx.Done():
			}
			continue
		}

		s.process(ctx, w)
	}
}

// process runs one window through inference and folds the result into the
// transcript.
func (s *Session) process(ctx context.Context, w window.Window) {
	wlog := logging.WithWindow(s.ID, w.Start, w.End)

	pcm, err := s.buf.Read(w.Start, w.End)
	if err != nil {
		// Retention is sized so this cannot happen; skip the window
		// rather than wedge the session.
		wlog.Error().Err(err).Msg("window span not readable")
		s.mu.Lock()
		s.sched.Done()
		s.mu.Unlock()
		return
	}
	s.metrics.RecordWindow(w.Len())
	wlog.Debug().Int64("bytes", w.Len()).Bool("final", w.Final).Msg("running inference window")

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	start := time.Now()
	text, err := s.adapter.Transcribe(cctx, pcm, s.Format)
	cancel()
	s.metrics.RecordInference(s.provider, err, errorKind(err), time.Since(start).Seconds())

	s.mu.Lock()
	s.sched.Done()
	s.buf.MarkConsumed(w.End)
	if s.aborted || ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.mu.Unlock()
		code := "inference_failed"
		if errors.Is(err, inference.ErrUnavailable) {
			code = "inference_unavailable"
		}
		wlog.Warn().Err(err).Msg("window inference failed, span skipped")
		s.emit(Event{Kind: EventError, Code: code, Message: err.Error()})
		return
	}
	res := s.rec.Merge(text)
	windowIdx := s.sched.Emitted()
	s.mu.Unlock()

	if res.Delta == "" {
		return
	}
	s.metrics.RecordDelta(res.Discontinuity)
	s.emit(Event{
		Kind:          EventDelta,
		Delta:         res.Delta,
		Transcript:    res.Transcript,
		Discontinuity: res.Discontinuity,
		Window:        windowIdx,
	})

	ev := models.TranscriptDelta{
		EventType:     "session.transcript.delta",
		SessionID:     s.ID,
		Timestamp:     time.Now().UnixMilli(),
		Window:        windowIdx,
		Delta:         res.Delta,
		Transcript:    res.Transcript,
		Discontinuity: res.Discontinuity,
	}
	if err := s.publisher.PublishDelta(context.Background(), s.ID, ev); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish delta event")
	}
}

// finish completes the session after the state moved to CLOSED.
func (s *Session) finish(aborted bool) {
	s.metrics.RecordSessionEnded(aborted, time.Since(s.createdAt).Seconds())

	if !aborted {
		s.mu.Lock()
		transcript := s.rec.Transcript()
		windows := s.sched.Emitted()
		audioBytes := s.buf.End()
		s.mu.Unlock()

		s.emit(Event{Kind: EventFinal, Transcript: transcript, Window: windows})

		ev := models.TranscriptFinal{
			EventType:  "session.transcript.final",
			SessionID:  s.ID,
			Timestamp:  time.Now().UnixMilli(),
			Windows:    windows,
			Transcript: transcript,
			AudioBytes: audioBytes,
		}
		if err := s.publisher.PublishFinal(context.Background(), s.ID, ev); err != nil {
			s.log.Warn().Err(err).Msg("failed to publish final event")
		}
		s.log.Info().Int("windows", windows).Int64("audioBytes", audioBytes).
			Msg("session closed")
	} else {
		s.log.Info().Msg("session aborted")
	}

	close(s.events)
	close(s.done)
	s.cancel()
}

// emit delivers an event without blocking the worker. A full outbox means the
// consumer is not keeping up; the event is dropped and counted.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.metrics.RecordEventDropped()
		s.log.Warn().Str("kind", ev.Kind).Msg("event dropped, slow consumer")
	}
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, inference.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "failed"
	}
}
