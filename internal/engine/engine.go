// Package engine defines the capability interfaces for speech inference
// backends and a closed registry that maps model-id prefixes to constructors.
//
// An engine wraps one loaded set of model weights. Instantiating an engine is
// potentially slow (seconds) and may fail; the manager owns instantiation and
// teardown, and callers only ever see an engine through a manager handle.
//
// Implementations must be safe for concurrent use: one loaded engine may serve
// multiple sessions at once.
package engine

import "context"

// Engine is the common surface of every inference backend.
type Engine interface {
	// Close releases all resources held by the engine. Calling Close more
	// than once is safe and returns nil.
	Close() error
}

// SpeechToText transcribes buffered PCM audio in a single batch call.
//
// Transcribe is blocking and potentially CPU/GPU-bound; callers must not hold
// metadata locks across it. The pcm buffer is 16-bit signed little-endian
// mono audio at the given sample rate.
type SpeechToText interface {
	Engine
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

// TextToSpeech synthesizes raw PCM audio for a text input. Container muxing
// (wav/mp3/opus) is the caller's concern.
type TextToSpeech interface {
	Engine
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}
