package manager

import (
	"context"

	"speechd/pkg/types"
)

// Synthesize runs one-shot text-to-speech through the lifecycle manager:
// acquire (loading on demand), infer, release. An empty modelID selects the
// default synthesis model.
func (m *Manager) Synthesize(ctx context.Context, modelID, text, voice string) ([]byte, error) {
	if modelID == "" {
		modelID = m.DefaultModel(types.KindTTS)
		if modelID == "" {
			return nil, ErrModelNotFound("(default synthesis model)")
		}
	}
	h, err := m.Acquire(ctx, modelID)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return h.Synthesize(ctx, text, voice)
}
