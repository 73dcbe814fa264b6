// Package vad provides per-frame voice activity detection.
//
// A Detector scores one fixed-size audio frame at a time and returns a speech
// probability in [0,1]. Detectors may keep internal model state across frames
// (Silero does), so create one Detector per audio stream; temporal smoothing
// such as endpointing is the caller's job.
package vad

// Detector scores a single frame of 16-bit signed little-endian mono PCM.
// A Detector is not safe for concurrent use; sessions own their detector.
type Detector interface {
	// Process returns the speech probability for one frame.
	Process(frame []byte) (float64, error)

	// Reset clears any accumulated state so the detector can be reused for
	// a new stream.
	Reset()

	// Close releases detector resources. Safe to call more than once.
	Close() error
}

// Factory creates one detector per streaming session.
type Factory func(sampleRate int) (Detector, error)
