package manager

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"speechd/internal/engine"
	"speechd/pkg/types"
)

// Manager owns every instantiated engine and its lifecycle record. All
// exported methods are safe for concurrent use.
type Manager struct {
	// entries is written only during construction; per-entry mutation goes
	// through each entry's own mutex.
	entries map[string]*entry

	// loads coalesces concurrent loads of the same model id: one execution,
	// one shared outcome for every waiter.
	loads singleflight.Group

	engines       *engine.Registry
	fetcher       Fetcher
	idleTTL       time.Duration
	maxLoaded     int
	loadTimeout   time.Duration
	sweepInterval time.Duration
	publisher     EventPublisher
	log           zerolog.Logger
	startTime     time.Time
}

// entry returns the lifecycle record for id.
func (m *Manager) entry(id string) (*entry, bool) {
	e, ok := m.entries[id]
	return e, ok
}

// ListModels returns lifecycle snapshots of all known models.
func (m *Manager) ListModels() []types.ModelStatus {
	out := make([]types.ModelStatus, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultModel returns the id of the default model of the given kind, or "".
func (m *Manager) DefaultModel(kind types.ModelKind) string {
	for _, e := range m.entries {
		e.mu.Lock()
		mdl := e.model
		e.mu.Unlock()
		if mdl.Default && mdl.Kind == kind {
			return mdl.ID
		}
	}
	return ""
}
