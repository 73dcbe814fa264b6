package manager

import (
	"context"
	"sort"
	"time"
)

// candidate is an eviction-eligible loaded model observed during a scan.
type candidate struct {
	id       string
	lastUsed time.Time
}

// scanLoaded returns the count of loaded models and the eviction-eligible
// subset (loaded, unreferenced, not pinned as default), oldest first with
// ties broken by ascending id for determinism.
func (m *Manager) scanLoaded() (loaded int, eligible []candidate) {
	for id, e := range m.entries {
		e.mu.Lock()
		if e.state == StateLoaded {
			loaded++
			if e.refCount == 0 && !e.model.Default {
				eligible = append(eligible, candidate{id: id, lastUsed: e.lastUsed})
			}
		}
		e.mu.Unlock()
	}
	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].lastUsed.Equal(eligible[j].lastUsed) {
			return eligible[i].lastUsed.Before(eligible[j].lastUsed)
		}
		return eligible[i].id < eligible[j].id
	})
	return loaded, eligible
}

// EvictIdle unloads every eligible model whose last use is older than ttl.
// Unload races (a claim taken between scan and unload) are logged and left
// for the next sweep. Returns the number of models unloaded.
func (m *Manager) EvictIdle(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	now := time.Now()
	evicted := 0
	_, eligible := m.scanLoaded()
	for _, c := range eligible {
		if now.Sub(c.lastUsed) <= ttl {
			continue
		}
		if err := m.Unload(c.id); err != nil {
			m.log.Warn().Str("model", c.id).Err(err).Msg("idle eviction skipped")
			continue
		}
		evictionsTotal.WithLabelValues("ttl").Inc()
		m.publish(Event{Name: "evict_idle", ModelID: c.id})
		evicted++
	}
	return evicted
}

// EvictLRU unloads least-recently-used eligible models until at most
// maxLoaded remain. It never unloads more than necessary and never touches a
// referenced or default model; if every candidate is pinned the cap may stay
// exceeded, which is reported, not fatal. Returns the number unloaded and
// whether the cap is still exceeded.
func (m *Manager) EvictLRU(maxLoaded int) (evicted int, overCapacity bool) {
	if maxLoaded <= 0 {
		return 0, false
	}
	loaded, eligible := m.scanLoaded()
	for _, c := range eligible {
		if loaded-evicted <= maxLoaded {
			break
		}
		if err := m.Unload(c.id); err != nil {
			m.log.Warn().Str("model", c.id).Err(err).Msg("lru eviction skipped")
			continue
		}
		evictionsTotal.WithLabelValues("lru").Inc()
		m.publish(Event{Name: "evict_lru", ModelID: c.id})
		evicted++
	}
	if loaded-evicted > maxLoaded {
		m.log.Warn().Int("loaded", loaded-evicted).Int("max", maxLoaded).
			Msg("loaded models exceed cap; all candidates pinned or in use")
		return evicted, true
	}
	return evicted, false
}

// StartSweeper runs the periodic eviction pass until ctx is cancelled. The
// sweep is independent of request volume so idle models are reclaimed even
// with zero traffic.
func (m *Manager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Sweep runs one eviction pass: idle TTL first, then the LRU cap.
func (m *Manager) Sweep() {
	if n := m.EvictIdle(m.idleTTL); n > 0 {
		m.log.Info().Int("evicted", n).Msg("idle sweep reclaimed models")
	}
	if m.maxLoaded > 0 {
		m.EvictLRU(m.maxLoaded)
	}
}
