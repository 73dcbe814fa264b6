package engine

import (
	"errors"

	"speechd/pkg/types"
)

// ErrUnavailable is returned by factories whose backend was not compiled in.
// The manager maps it to an incompatible-device load failure.
var ErrUnavailable = errors.New("backend not available in this build")

// registerBuiltins wires the compiled-in backend table. The id prefixes track
// the curated registry: whisper variants for STT, kokoro/piper/pocket-tts for
// TTS. Whether a factory is real or a stub is decided by build tags in the
// per-backend files.
func registerBuiltins(r *Registry) {
	r.Register("whisper", types.KindSTT, newWhisperEngine)

	r.Register("kokoro", types.KindTTS, newTTSStub("kokoro"))
	r.Register("piper/", types.KindTTS, newTTSStub("piper"))
	r.Register("pocket-tts", types.KindTTS, newTTSStub("pocket-tts"))
}

// newTTSStub returns a factory that fails with ErrUnavailable until a real
// synthesis backend is linked in for the named provider.
func newTTSStub(name string) Factory {
	return func(mdl types.Model) (Engine, error) {
		return nil, errors.Join(ErrUnavailable, errors.New("tts backend "+name+" is not linked into this binary"))
	}
}
