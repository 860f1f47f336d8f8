// Package ws implements the streaming WebSocket surface. A connection maps
// to one session: audio_chunk messages feed the buffer, an end message
// flushes and returns the final transcript, and a disconnect before end
// aborts the session.
package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"live-transcription-service/internal/audio"
	"live-transcription-service/internal/engine"
	"live-transcription-service/internal/observability/logging"
	"live-transcription-service/internal/transport"
)

// Inbound message types.
const (
	typeAudioChunk = "audio_chunk"
	typeEnd        = "end"
)

type inboundMsg struct {
	Type       string `json:"type"`
	Data       string `json:"data,omitempty"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type sessionMsg struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

type ackMsg struct {
	Status string `json:"status"`
	Chunk  uint64 `json:"chunk"`
}

type processingMsg struct {
	Status string `json:"status"`
}

type transcriptionMsg struct {
	Status        string `json:"status"`
	Text          string `json:"text"`
	Delta         string `json:"delta,omitempty"`
	IsFinal       bool   `json:"is_final"`
	Discontinuity bool   `json:"discontinuity,omitempty"`
}

type errorMsg struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler upgrades connections and runs the streaming protocol.
type Handler struct {
	manager  *engine.Manager
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler backed by the session manager.
func NewHandler(m *engine.Manager) *Handler {
	return &Handler{
		manager: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.serve(conn)
}

// outbox serializes all writes to the connection; gorilla allows a single
// writer. send never blocks past the writer's death.
type outbox struct {
	ch   chan any
	dead chan struct{}
}

func newOutbox(conn *websocket.Conn) *outbox {
	o := &outbox{ch: make(chan any, 64), dead: make(chan struct{})}
	go func() {
		defer close(o.dead)
		for msg := range o.ch {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()
	return o
}

func (o *outbox) send(msg any) {
	select {
	case o.ch <- msg:
	case <-o.dead:
	}
}

// close stops the writer after the queue drains and waits for it to exit.
func (o *outbox) close() {
	close(o.ch)
	<-o.dead
}

func (h *Handler) serve(conn *websocket.Conn) {
	defer conn.Close()

	out := newOutbox(conn)

	var (
		sess     *engine.Session
		seq      uint64
		pumpDone chan struct{}
		ended    bool
	)

	for !ended {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg inboundMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			out.send(errorMsg{Status: "error", Code: "bad_message", Message: "invalid JSON"})
			continue
		}

		switch msg.Type {
		case typeAudioChunk:
			if sess == nil {
				s, err := h.manager.Open(formatFrom(msg))
				if err != nil {
					out.send(errorMsg{Status: "error", Code: transport.Code(err), Message: err.Error()})
					continue
				}
				sess = s
				pumpDone = pumpEvents(sess, out)
				out.send(sessionMsg{Status: "session", SessionID: sess.ID})
			}

			chunk, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				out.send(errorMsg{Status: "error", Code: "bad_message", Message: "invalid base64 audio data"})
				continue
			}
			if err := sess.Submit(seq, chunk); err != nil {
				out.send(errorMsg{Status: "error", Code: transport.Code(err), Message: err.Error()})
				continue
			}
			out.send(ackMsg{Status: "received", Chunk: seq})
			seq++

		case typeEnd:
			if sess == nil {
				out.send(errorMsg{Status: "error", Code: "no_session", Message: "no audio received"})
				continue
			}
			out.send(processingMsg{Status: "processing"})
			if _, err := sess.End(context.Background()); err != nil {
				out.send(errorMsg{Status: "error", Code: transport.Code(err), Message: err.Error()})
				continue
			}
			ended = true

		default:
			out.send(errorMsg{Status: "error", Code: "bad_message", Message: "unknown message type: " + msg.Type})
		}
	}

	if sess != nil {
		if !ended {
			l := logging.WithSession(sess.ID)
			l.Info().Msg("client disconnected, aborting session")
			sess.Abort()
		}
		// Drain remaining session events (including the final
		// transcription) before tearing down the writer.
		<-pumpDone
	}
	out.close()
}

// pumpEvents forwards session events to the connection writer until the
// session closes.
func pumpEvents(sess *engine.Session, out *outbox) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sess.Events() {
			switch ev.Kind {
			case engine.EventDelta:
				out.send(transcriptionMsg{
					Status:        "transcription",
					Text:          ev.Transcript,
					Delta:         ev.Delta,
					IsFinal:       false,
					Discontinuity: ev.Discontinuity,
				})
			case engine.EventFinal:
				out.send(transcriptionMsg{
					Status:  "transcription",
					Text:    ev.Transcript,
					IsFinal: true,
				})
			case engine.EventError:
				out.send(errorMsg{Status: "error", Code: ev.Code, Message: ev.Message})
			}
		}
	}()
	return done
}

// formatFrom builds the session audio format from the first chunk message.
func formatFrom(msg inboundMsg) audio.Format {
	f := audio.DefaultFormat()
	f.Encoding = audio.ParseEncoding(msg.Format)
	if msg.SampleRate > 0 {
		f.SampleRateHz = msg.SampleRate
	}
	return f
}
