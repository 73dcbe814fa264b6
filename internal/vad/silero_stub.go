//go:build !silero

package vad

import "errors"

// NewSilero is unavailable without the silero build tag; the factory fails at
// session start rather than at process start so energy-only deployments are
// unaffected.
func NewSilero(modelPath string) Factory {
	return func(sampleRate int) (Detector, error) {
		return nil, errors.New("silero vad not available in this build")
	}
}
