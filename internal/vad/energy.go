package vad

import (
	"encoding/binary"
	"math"
)

const (
	// silenceRMS is the root-mean-square level (16-bit PCM units) at or
	// below which a frame scores 0. 300 corresponds to near-silence.
	silenceRMS = 300.0

	// speechRMS is the level at or above which a frame scores 1. Levels in
	// between map linearly.
	speechRMS = 2000.0
)

// EnergyDetector is an RMS-based detector used when no neural VAD is linked
// in. It is stateless across frames.
type EnergyDetector struct{}

// NewEnergy returns a Factory producing energy detectors for any sample rate.
func NewEnergy() Factory {
	return func(sampleRate int) (Detector, error) {
		return &EnergyDetector{}, nil
	}
}

func (d *EnergyDetector) Process(frame []byte) (float64, error) {
	n := len(frame) / 2
	if n == 0 {
		return 0, nil
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(frame[i*2:])))
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(n))
	switch {
	case rms <= silenceRMS:
		return 0, nil
	case rms >= speechRMS:
		return 1, nil
	default:
		return (rms - silenceRMS) / (speechRMS - silenceRMS), nil
	}
}

func (d *EnergyDetector) Reset() {}

func (d *EnergyDetector) Close() error { return nil }
