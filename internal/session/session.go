package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"speechd/internal/vad"
)

// modelHandle is the slice of the lifecycle manager's handle a session needs.
type modelHandle interface {
	ModelID() string
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
	Release()
}

// State is the lifecycle state of a streaming session.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening_speech"
	StateFinalizing State = "finalizing_utterance"
	StateClosed     State = "closed"
)

// Config holds the segmentation and decoding tunables for a session.
type Config struct {
	// SpeechThreshold is the VAD probability at or above which a frame
	// counts as speech.
	SpeechThreshold float64
	// EndpointingMs is the consecutive-silence duration that finalizes an
	// utterance.
	EndpointingMs int
	// ChunkMs is the cadence of incremental re-decodes of the utterance
	// buffer.
	ChunkMs int
	// MaxUtteranceMs forces finalization of very long utterances, bounding
	// the cost of whole-buffer re-decoding.
	MaxUtteranceMs int
	// SampleRate of the incoming PCM frames, in Hz.
	SampleRate int
}

// Defaults applied by the supervisor when fields are unset.
const (
	defaultSpeechThreshold = 0.5
	defaultEndpointingMs   = 600
	defaultChunkMs         = 1000
	defaultMaxUtteranceMs  = 30_000
	defaultSampleRate      = 16000
)

func (c *Config) applyDefaults() {
	if c.SpeechThreshold <= 0 {
		c.SpeechThreshold = defaultSpeechThreshold
	}
	if c.EndpointingMs <= 0 {
		c.EndpointingMs = defaultEndpointingMs
	}
	if c.ChunkMs <= 0 {
		c.ChunkMs = defaultChunkMs
	}
	if c.MaxUtteranceMs <= 0 {
		c.MaxUtteranceMs = defaultMaxUtteranceMs
	}
	if c.SampleRate <= 0 {
		c.SampleRate = defaultSampleRate
	}
}

// Session is the state machine for one live audio connection. It owns its
// utterance buffer, VAD detector, and reconciler, and holds one ref-counted
// claim on its model from start to close.
//
// Ingest, Stop, and Close are intended to be called from the adapter's single
// read loop; internal state is still locked because decode goroutines report
// back concurrently.
type Session struct {
	id     string
	cfg    Config
	handle modelHandle
	det    vad.Detector
	sink   Sink
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// onClose is set by the supervisor to deregister the session.
	onClose func()

	mu          sync.Mutex
	state       State
	buf         []byte
	silenceMs   int
	pendingMs   int
	utteranceMs int
	seq         uint64 // last issued hypothesis sequence number
	applied     uint64 // last reconciled hypothesis sequence number
	rec         reconciler
	createdAt   time.Time
	lastActive  time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ModelID returns the id of the model this session is bound to.
func (s *Session) ModelID() string { return s.handle.ModelID() }

// Ingest processes one fixed-duration audio frame: VAD gate, utterance
// segmentation, and incremental decode scheduling. The frame must be 16-bit
// signed little-endian mono PCM at the configured sample rate.
func (s *Session) Ingest(frame []byte) error {
	if len(frame) == 0 || len(frame)%2 != 0 {
		return ErrInvalidAudio("frame must be non-empty 16-bit PCM")
	}
	frameMs := len(frame) / 2 * 1000 / s.cfg.SampleRate

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return sessionClosedError{id: s.id}
	}
	s.lastActive = time.Now()

	p, err := s.det.Process(frame)
	if err != nil {
		return ErrInvalidAudio(err.Error())
	}

	switch s.state {
	case StateIdle:
		if p < s.cfg.SpeechThreshold {
			return nil
		}
		// Speech onset: the triggering frame opens the utterance buffer so
		// onsets are never truncated.
		s.state = StateListening
		s.buf = append(s.buf[:0], frame...)
		s.utteranceMs = frameMs
		s.pendingMs = frameMs
		s.silenceMs = 0
		s.sink.SpeechStarted()

	case StateListening:
		s.buf = append(s.buf, frame...)
		s.utteranceMs += frameMs
		s.pendingMs += frameMs
		if p < s.cfg.SpeechThreshold {
			s.silenceMs += frameMs
		} else {
			s.silenceMs = 0
		}

		if s.silenceMs >= s.cfg.EndpointingMs || s.utteranceMs >= s.cfg.MaxUtteranceMs {
			s.finalizeLocked()
			return nil
		}
		if s.pendingMs >= s.cfg.ChunkMs {
			s.pendingMs = 0
			s.scheduleDecodeLocked()
		}
	}
	return nil
}

// Stop ends the current utterance immediately, as if silence had been
// detected, and leaves the session ready for the next utterance.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return sessionClosedError{id: s.id}
	}
	if s.state == StateListening {
		s.finalizeLocked()
	}
	return nil
}

// Close terminates the session: in-flight decodes are cancelled best-effort,
// the model claim is released, and all session-owned state is destroyed.
// Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.buf = nil
	s.rec.reset()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.handle.Release()
	_ = s.det.Close()
	if s.onClose != nil {
		s.onClose()
	}

	s.mu.Lock()
	s.sink.Closed()
	s.mu.Unlock()
	s.log.Info().Str("session", s.id).Msg("session closed")
}

// scheduleDecodeLocked starts an incremental decode of the utterance buffer
// so far. Decodes carry a sequence number; a decode that finishes after a
// newer one has been reconciled is discarded, never applied out of order.
func (s *Session) scheduleDecodeLocked() {
	s.seq++
	seq := s.seq
	buf := make([]byte, len(s.buf))
	copy(buf, s.buf)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		text, err := s.handle.Transcribe(s.ctx, buf, s.cfg.SampleRate)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != StateListening || seq <= s.applied {
			return
		}
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.recoverDecodeFailureLocked(err)
			return
		}
		s.applied = seq
		grew := s.rec.apply(text)
		if grew {
			s.sink.PartialTranscript(s.rec.confirmedText(), true)
		}
		s.sink.PartialTranscript(s.rec.volatileText(), false)
	}()
}

// finalizeLocked runs the last decode over the complete utterance buffer,
// promotes the reconciled hypothesis to final, and resets for the next
// utterance. Called with s.mu held; the lock is dropped for the decode.
func (s *Session) finalizeLocked() {
	s.state = StateFinalizing
	s.sink.SpeechEnded()

	s.seq++
	seq := s.seq
	buf := make([]byte, len(s.buf))
	copy(buf, s.buf)

	s.mu.Unlock()
	text, err := s.handle.Transcribe(s.ctx, buf, s.cfg.SampleRate)
	s.mu.Lock()

	if s.state == StateClosed {
		return
	}
	if err != nil {
		if s.ctx.Err() == nil {
			s.recoverDecodeFailureLocked(err)
		}
		return
	}
	s.applied = seq
	s.rec.apply(text)
	s.rec.promote()
	s.sink.FinalTranscript(s.rec.fullText())
	utterancesTotal.Inc()
	s.resetUtteranceLocked()
}

// recoverDecodeFailureLocked handles a transient engine failure: the utterance
// is abandoned with an error event, already-confirmed text stays emitted, and
// the session returns to Idle instead of closing.
func (s *Session) recoverDecodeFailureLocked(err error) {
	s.log.Warn().Str("session", s.id).Err(err).Msg("decode failed; dropping utterance")
	s.sink.Error(KindDecodeFailed, err.Error())
	s.resetUtteranceLocked()
}

// resetUtteranceLocked clears per-utterance state and returns to Idle.
func (s *Session) resetUtteranceLocked() {
	s.state = StateIdle
	s.buf = s.buf[:0]
	s.silenceMs = 0
	s.pendingMs = 0
	s.utteranceMs = 0
	s.rec.reset()
	s.det.Reset()
}
