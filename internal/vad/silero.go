//go:build silero

package vad

import (
	"encoding/binary"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// sileroSampleRate is the only input rate Silero VAD v5 supports here.
	sileroSampleRate = 16000

	// sileroWindowSize is the number of float32 samples per inference call:
	// 512 samples = 32 ms at 16 kHz.
	sileroWindowSize = 512

	// sileroStateSize is the hidden state dimension per layer; the combined
	// state tensor has shape [2, 1, 128].
	sileroStateSize = 128
)

// ortInitOnce ensures the ONNX Runtime environment is initialized exactly
// once. The error is kept so later constructors surface the failure instead
// of running against an uninitialized environment.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// NewSilero returns a Factory producing Silero VAD v5 detectors backed by the
// ONNX model at modelPath. Each detector holds its own RNN state, so one
// detector per stream.
func NewSilero(modelPath string) Factory {
	return func(sampleRate int) (Detector, error) {
		if sampleRate != sileroSampleRate {
			return nil, fmt.Errorf("silero: unsupported sample rate %d (want %d)", sampleRate, sileroSampleRate)
		}
		return newSileroDetector(modelPath)
	}
}

// SileroDetector runs Silero VAD inference via ONNX Runtime. Incoming frames
// are buffered to 512-sample windows; Process returns the maximum probability
// across the complete windows in the frame, carrying the remainder forward.
type SileroDetector struct {
	session *ort.AdvancedSession

	inputTensor  *ort.Tensor[float32] // [1, 512]
	stateTensor  *ort.Tensor[float32] // [2, 1, 128]
	srTensor     *ort.Tensor[int64]   // scalar
	outputTensor *ort.Tensor[float32] // [1, 1]
	stateNTensor *ort.Tensor[float32] // [2, 1, 128]

	pcmBuf   []float32
	lastProb float64
}

func newSileroDetector(modelPath string) (*SileroDetector, error) {
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("silero: %w", ortInitErr)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, sileroWindowSize))
	if err != nil {
		return nil, fmt.Errorf("silero: create input tensor: %w", err)
	}
	stateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("silero: create state tensor: %w", err)
	}
	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(sileroSampleRate)})
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		return nil, fmt.Errorf("silero: create sr tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		return nil, fmt.Errorf("silero: create output tensor: %w", err)
	}
	stateNTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("silero: create stateN tensor: %w", err)
	}

	// onnxruntime_go does not guarantee zeroed tensor memory.
	clearFloat32(stateTensor.GetData())
	clearFloat32(stateNTensor.GetData())

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{inputTensor, stateTensor, srTensor},
		[]ort.Value{outputTensor, stateNTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		stateNTensor.Destroy()
		return nil, fmt.Errorf("silero: create session: %w", err)
	}

	return &SileroDetector{
		session:      session,
		inputTensor:  inputTensor,
		stateTensor:  stateTensor,
		srTensor:     srTensor,
		outputTensor: outputTensor,
		stateNTensor: stateNTensor,
		pcmBuf:       make([]float32, 0, sileroWindowSize*2),
	}, nil
}

func (d *SileroDetector) Process(frame []byte) (float64, error) {
	if len(frame)%2 != 0 {
		return 0, fmt.Errorf("silero: PCM frame has odd length %d", len(frame))
	}
	if d.session == nil {
		return 0, fmt.Errorf("silero: detector is closed")
	}
	for i := 0; i+1 < len(frame); i += 2 {
		s := int16(binary.LittleEndian.Uint16(frame[i:]))
		d.pcmBuf = append(d.pcmBuf, float32(s)/32768.0)
	}

	var (
		prob float64
		ran  bool
	)
	for len(d.pcmBuf) >= sileroWindowSize {
		p, err := d.infer(d.pcmBuf[:sileroWindowSize])
		if err != nil {
			return 0, err
		}
		d.pcmBuf = d.pcmBuf[sileroWindowSize:]
		if !ran || float64(p) > prob {
			prob = float64(p)
			ran = true
		}
	}
	// Frames shorter than one window reuse the previous score so short
	// ingest frames do not read as silence between inferences.
	if !ran {
		return d.lastProb, nil
	}
	d.lastProb = prob
	return prob, nil
}

func (d *SileroDetector) Reset() {
	clearFloat32(d.stateTensor.GetData())
	d.pcmBuf = d.pcmBuf[:0]
	d.lastProb = 0
}

func (d *SileroDetector) Close() error {
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	for _, t := range []interface{ Destroy() error }{
		d.inputTensor, d.stateTensor, d.srTensor, d.outputTensor, d.stateNTensor,
	} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	d.inputTensor, d.stateTensor, d.srTensor, d.outputTensor, d.stateNTensor = nil, nil, nil, nil, nil
	return nil
}

// infer runs one inference on exactly 512 samples and copies the recurrent
// state forward.
func (d *SileroDetector) infer(window []float32) (float32, error) {
	copy(d.inputTensor.GetData(), window)
	if err := d.session.Run(); err != nil {
		return 0, fmt.Errorf("silero: run: %w", err)
	}
	copy(d.stateTensor.GetData(), d.stateNTensor.GetData())
	return d.outputTensor.GetData()[0], nil
}

func clearFloat32(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
