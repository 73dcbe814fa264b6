package manager

import (
	"sort"
	"time"

	"speechd/pkg/types"
)

// Status returns snapshots of every model plus aggregate capacity figures.
func (m *Manager) Status() types.StatusResponse {
	resp := types.StatusResponse{
		Models:        make([]types.ModelStatus, 0, len(m.entries)),
		MaxLoaded:     m.maxLoaded,
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
	}
	for _, e := range m.entries {
		st := e.snapshot()
		resp.Models = append(resp.Models, st)
		if st.State == string(StateLoaded) {
			resp.LoadedCount++
		}
	}
	sort.Slice(resp.Models, func(i, j int) bool { return resp.Models[i].ID < resp.Models[j].ID })
	resp.OverCapacity = m.maxLoaded > 0 && resp.LoadedCount > m.maxLoaded
	return resp
}

// ModelStatus returns the snapshot for a single model.
func (m *Manager) ModelStatus(modelID string) (types.ModelStatus, error) {
	e, ok := m.entry(modelID)
	if !ok {
		return types.ModelStatus{}, ErrModelNotFound(modelID)
	}
	return e.snapshot(), nil
}

// Ready reports whether at least one model is loaded, or none are expected
// to be. Used by the readiness probe.
func (m *Manager) Ready() bool {
	for _, e := range m.entries {
		e.mu.Lock()
		loaded := e.state == StateLoaded
		e.mu.Unlock()
		if loaded {
			return true
		}
	}
	return len(m.entries) == 0
}
