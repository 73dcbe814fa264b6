package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"speechd/internal/session"
)

// wsWriteTimeout bounds each outbound event write. Sink callbacks run on the
// session's ingest and decode paths, so a client that stops reading must not
// stall its session indefinitely; a timed-out write closes the connection and
// the read loop tears the session down.
const wsWriteTimeout = 5 * time.Second

// wsEvent is the JSON frame sent to streaming clients. Type mirrors the
// session event vocabulary.
type wsEvent struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	Text    string `json:"text,omitempty"`
	Stable  *bool  `json:"stable,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsControl is the JSON frame received from streaming clients. Audio travels
// as binary frames; text frames carry control messages.
type wsControl struct {
	Type string `json:"type"` // "stop" or "close"
}

// wsSink adapts the session event vocabulary to websocket JSON frames.
// Writes are serialized; a failed write closes the connection and the
// session's read loop notices on its next read.
type wsSink struct {
	conn         *websocket.Conn
	log          zerolog.Logger
	writeTimeout time.Duration

	mu        sync.Mutex
	sessionID string
}

func (s *wsSink) send(ev wsEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Session == "" {
		ev.Session = s.sessionID
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	timeout := s.writeTimeout
	if timeout <= 0 {
		timeout = wsWriteTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.conn.Write(ctx, websocket.MessageText, b); err != nil {
		s.log.Debug().Err(err).Msg("websocket write failed; closing connection")
		s.conn.Close(websocket.StatusPolicyViolation, "slow consumer")
	}
}

func (s *wsSink) setSessionID(id string) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
}

func (s *wsSink) Ready()         { s.send(wsEvent{Type: "ready"}) }
func (s *wsSink) SpeechStarted() { s.send(wsEvent{Type: "speech_started"}) }
func (s *wsSink) SpeechEnded()   { s.send(wsEvent{Type: "speech_ended"}) }

func (s *wsSink) PartialTranscript(text string, stable bool) {
	s.send(wsEvent{Type: "partial_transcript", Text: text, Stable: &stable})
}

func (s *wsSink) FinalTranscript(text string) {
	s.send(wsEvent{Type: "final_transcript", Text: text})
}

func (s *wsSink) Error(kind, message string) {
	s.send(wsEvent{Type: "error", Kind: kind, Message: message})
}

func (s *wsSink) Closed() { s.send(wsEvent{Type: "closed"}) }

// handleTranscriptionWS godoc
// @Summary Streaming transcription over websocket
// @Description Binary frames carry 16-bit mono PCM audio; text frames carry
// @Description control messages. The server pushes JSON transcript events.
// @Param model query string false "model id, default transcription model if omitted"
// @Router /v1/audio/transcriptions/ws [get]
func (s *Server) handleTranscriptionWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket accept failed")
		return
	}
	conn.SetReadLimit(1 << 20)

	sink := &wsSink{conn: conn, log: s.log, writeTimeout: wsWriteTimeout}
	sess, err := s.sessions.Start(r.Context(), r.URL.Query().Get("model"), sink)
	if err != nil {
		status, kind := statusForError(err)
		sink.Error(kind, err.Error())
		code := websocket.StatusInternalError
		if status == http.StatusTooManyRequests {
			code = websocket.StatusTryAgainLater
		}
		conn.Close(code, kind)
		return
	}
	sink.setSessionID(sess.ID())
	defer sess.Close()
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		switch typ {
		case websocket.MessageBinary:
			if err := sess.Ingest(data); err != nil {
				if session.IsClosed(err) {
					return
				}
				_, kind := statusForError(err)
				sink.Error(kind, err.Error())
			}
		case websocket.MessageText:
			var ctl wsControl
			if err := json.Unmarshal(data, &ctl); err != nil {
				sink.Error("invalid_request", "malformed control frame")
				continue
			}
			switch ctl.Type {
			case "stop":
				if err := sess.Stop(); err != nil {
					return
				}
			case "close":
				return
			default:
				sink.Error("invalid_request", "unknown control type: "+ctl.Type)
			}
		}
	}
}
