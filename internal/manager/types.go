package manager

import (
	"sync"
	"time"

	"speechd/internal/engine"
	"speechd/pkg/types"
)

// ModelState is the lifecycle state of one model.
type ModelState string

const (
	StateNotDownloaded ModelState = "not_downloaded"
	StateDownloaded    ModelState = "downloaded"
	StateLoading       ModelState = "loading"
	StateLoaded        ModelState = "loaded"
	StateUnloading     ModelState = "unloading"
	StateFailed        ModelState = "failed"
)

// entry is the lifecycle record for one model. The mutex guards metadata
// transitions only; the engine itself is never called under it. The engine
// handle never leaves the manager — sessions work through Handle.
type entry struct {
	mu       sync.Mutex
	model    types.Model
	state    ModelState
	refCount int
	lastUsed time.Time
	lastErr  string
	engine   engine.Engine
}

// snapshot copies the entry's metadata under its lock.
func (e *entry) snapshot() types.ModelStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := types.ModelStatus{
		Model:    e.model,
		State:    string(e.state),
		RefCount: e.refCount,
		Error:    e.lastErr,
	}
	if !e.lastUsed.IsZero() {
		st.LastUsed = e.lastUsed.Unix()
	}
	return st
}
