//go:build !whisper

package engine

import (
	"errors"

	"speechd/pkg/types"
)

// newWhisperEngine is the no-CGO stub. Build with -tags=whisper (and the
// whisper.cpp static library on the link path) to enable the real backend.
func newWhisperEngine(mdl types.Model) (Engine, error) {
	return nil, errors.Join(ErrUnavailable, errors.New("whisper backend requires building with -tags=whisper"))
}
