package session

import "fmt"

// Error kinds surfaced through session error events and at session start.
const (
	KindCapacityExceeded   = "capacity_exceeded"
	KindDecodeFailed       = "decode_failed"
	KindInvalidAudioFormat = "invalid_audio_format"
	KindSessionClosed      = "session_closed"
)

type capacityError struct{ limit int }

func (e capacityError) Error() string {
	return fmt.Sprintf("session limit reached (%d concurrent sessions)", e.limit)
}
func (e capacityError) Kind() string { return KindCapacityExceeded }

// ErrCapacityExceeded is returned when a new session would exceed the
// configured concurrent-session limit. Callers must retry; nothing is queued.
func ErrCapacityExceeded(limit int) error { return capacityError{limit: limit} }

// IsCapacityExceeded reports whether err indicates the session limit.
func IsCapacityExceeded(err error) bool {
	_, ok := err.(capacityError)
	return ok
}

type invalidAudioError struct{ msg string }

func (e invalidAudioError) Error() string { return "invalid audio: " + e.msg }
func (e invalidAudioError) Kind() string  { return KindInvalidAudioFormat }

// ErrInvalidAudio returns an error for malformed audio input.
func ErrInvalidAudio(msg string) error { return invalidAudioError{msg: msg} }

// IsInvalidAudio reports whether err indicates malformed audio input.
func IsInvalidAudio(err error) bool {
	_, ok := err.(invalidAudioError)
	return ok
}

type sessionClosedError struct{ id string }

func (e sessionClosedError) Error() string { return "session " + e.id + " is closed" }
func (e sessionClosedError) Kind() string  { return KindSessionClosed }

// IsClosed reports whether err indicates use of a closed session.
func IsClosed(err error) bool {
	_, ok := err.(sessionClosedError)
	return ok
}
