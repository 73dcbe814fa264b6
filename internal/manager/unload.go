package manager

// Unload releases a loaded engine's resources while keeping its weights on
// disk. It fails with an in-use error when any session still holds a claim.
// Unloading a model that is not loaded is a no-op.
func (m *Manager) Unload(modelID string) error {
	e, ok := m.entry(modelID)
	if !ok {
		return ErrModelNotFound(modelID)
	}

	e.mu.Lock()
	if e.refCount > 0 {
		refs := e.refCount
		e.mu.Unlock()
		return ErrInUse(modelID, refs)
	}
	if e.state != StateLoaded || e.engine == nil {
		e.mu.Unlock()
		return nil
	}
	eng := e.engine
	e.engine = nil
	e.state = StateUnloading
	e.mu.Unlock()

	m.publish(Event{Name: "unload_start", ModelID: modelID})
	err := eng.Close()

	e.mu.Lock()
	// A concurrent load may already have moved the entry on; only finish
	// the transition we started.
	if e.state == StateUnloading {
		e.state = StateDownloaded
	}
	e.mu.Unlock()

	modelsLoaded.Dec()
	m.publish(Event{Name: "unload_done", ModelID: modelID})
	if err != nil {
		m.log.Warn().Str("model", modelID).Err(err).Msg("engine close reported an error")
	} else {
		m.log.Info().Str("model", modelID).Msg("model unloaded")
	}
	return nil
}
