//go:build whisper

package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"speechd/pkg/types"
)

// whisperSampleRate is the only sample rate whisper.cpp accepts.
const whisperSampleRate = 16000

// whisperEngine wraps a whisper.cpp model loaded via the CGO bindings. The
// model is shared; each Transcribe call creates its own context so concurrent
// sessions do not interfere.
type whisperEngine struct {
	mu    sync.Mutex
	model whisperlib.Model
}

func newWhisperEngine(mdl types.Model) (Engine, error) {
	m, err := whisperlib.New(mdl.Path)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", mdl.Path, err)
	}
	return &whisperEngine{model: m}, nil
}

func (e *whisperEngine) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sampleRate != whisperSampleRate {
		return "", fmt.Errorf("whisper: unsupported sample rate %d (want %d)", sampleRate, whisperSampleRate)
	}
	samples := pcm16ToFloat32(pcm)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return "", fmt.Errorf("whisper: engine is closed")
	}
	wctx, err := e.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: new context: %w", err)
	}
	wctx.SetTranslate(false)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process: %w", err)
	}

	var out strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: segment: %w", err)
		}
		out.WriteString(segment.Text)
	}
	return strings.TrimSpace(out.String()), nil
}

func (e *whisperEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		e.model.Close()
		e.model = nil
	}
	return nil
}

// pcm16ToFloat32 converts 16-bit signed little-endian PCM to the normalized
// float32 samples whisper.cpp expects. A trailing odd byte is dropped.
func pcm16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}
