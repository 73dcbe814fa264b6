package manager

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"speechd/internal/engine"
)

// Handle is a ref-counted claim on a loaded engine. The engine itself never
// leaves the manager: inference goes through the handle so the manager can
// track usage. Release must be called exactly once; extra calls are no-ops.
type Handle struct {
	m    *Manager
	e    *entry
	once sync.Once
}

// ModelID returns the id of the claimed model.
func (h *Handle) ModelID() string {
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	return h.e.model.ID
}

// Release drops the claim. It never unloads synchronously; reclaiming memory
// is the eviction sweep's job.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.e.mu.Lock()
		if h.e.refCount > 0 {
			h.e.refCount--
		}
		h.e.mu.Unlock()
	})
}

// Transcribe runs STT inference on the claimed engine and records usage on
// success. The entry lock is never held across the engine call.
func (h *Handle) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	eng, err := h.engine()
	if err != nil {
		return "", err
	}
	stt, ok := eng.(engine.SpeechToText)
	if !ok {
		return "", ErrIncompatibleDevice(h.ModelID(), errors.New("model is not a speech-to-text engine"))
	}
	text, err := stt.Transcribe(ctx, pcm, sampleRate)
	if err != nil {
		return "", err
	}
	h.touch()
	return text, nil
}

// Synthesize runs TTS inference on the claimed engine and records usage on
// success.
func (h *Handle) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	eng, err := h.engine()
	if err != nil {
		return nil, err
	}
	tts, ok := eng.(engine.TextToSpeech)
	if !ok {
		return nil, ErrIncompatibleDevice(h.ModelID(), errors.New("model is not a text-to-speech engine"))
	}
	pcm, err := tts.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	h.touch()
	return pcm, nil
}

func (h *Handle) engine() (engine.Engine, error) {
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	if h.e.state != StateLoaded || h.e.engine == nil {
		return nil, unknownLoadError{id: h.e.model.ID, err: errors.New("engine is not loaded")}
	}
	return h.e.engine, nil
}

func (h *Handle) touch() {
	h.e.mu.Lock()
	h.e.lastUsed = time.Now()
	h.e.mu.Unlock()
}

// Acquire returns a claim on a loaded engine for modelID, loading it first if
// necessary. Concurrent acquires of a cold model coalesce into a single load
// whose outcome — success or failure — is shared by every waiter. The wait is
// bounded by the configured load timeout; timing out or cancelling withdraws
// only this caller's interest, the load itself keeps running for others.
func (m *Manager) Acquire(ctx context.Context, modelID string) (*Handle, error) {
	e, ok := m.entry(modelID)
	if !ok {
		return nil, ErrModelNotFound(modelID)
	}

	timeout := time.NewTimer(m.loadTimeout)
	defer timeout.Stop()
	for {
		e.mu.Lock()
		if e.state == StateLoaded && e.engine != nil {
			e.refCount++
			e.mu.Unlock()
			return &Handle{m: m, e: e}, nil
		}
		e.mu.Unlock()

		ch := m.loads.DoChan(modelID, func() (any, error) {
			return nil, m.load(e)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			// Loaded; loop to take the reference. If an eviction slipped
			// in between, the loop simply loads again.
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, ErrLoadTimeout(modelID)
		}
	}
}

// Release drops one reference on modelID. Kept for symmetry with Acquire for
// callers that do not hold on to the Handle.
func (m *Manager) Release(modelID string) {
	if e, ok := m.entry(modelID); ok {
		e.mu.Lock()
		if e.refCount > 0 {
			e.refCount--
		}
		e.mu.Unlock()
	}
}

// Warm loads a model without keeping a claim: acquire then release. This
// backs the HTTP "load" operation.
func (m *Manager) Warm(ctx context.Context, modelID string) error {
	h, err := m.Acquire(ctx, modelID)
	if err != nil {
		return err
	}
	h.Release()
	return nil
}

// load performs one fetch+instantiate cycle for e. It is only ever executed
// inside the singleflight group, so at most one load per model id is in
// flight. It runs detached from any caller context: an abandoned acquire
// must not cancel a load another session may need.
func (m *Manager) load(e *entry) error {
	start := time.Now()

	// An unload may still be closing the old engine; let it finish.
	for {
		e.mu.Lock()
		if e.state != StateUnloading {
			break
		}
		e.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	if e.state == StateLoaded && e.engine != nil {
		e.mu.Unlock()
		return nil
	}
	mdl := e.model
	e.state = StateLoading
	e.lastErr = ""
	e.mu.Unlock()

	m.publish(Event{Name: "load_start", ModelID: mdl.ID})
	m.log.Info().Str("model", mdl.ID).Msg("loading model")

	if mdl.Path == "" {
		path, err := m.fetcher.Fetch(context.Background(), mdl)
		if err != nil {
			return m.failLoad(e, ErrDownloadFailed(mdl.ID, err))
		}
		e.mu.Lock()
		e.model.Path = path
		e.mu.Unlock()
		mdl.Path = path
	}

	eng, err := m.engines.New(mdl)
	if err != nil {
		return m.failLoad(e, classifyLoadError(mdl.ID, err))
	}

	e.mu.Lock()
	e.state = StateLoaded
	e.engine = eng
	e.lastUsed = time.Now()
	e.mu.Unlock()

	loadsTotal.Inc()
	modelsLoaded.Inc()
	m.publish(Event{Name: "load_ready", ModelID: mdl.ID, Fields: map[string]any{
		"dur_ms": int(time.Since(start) / time.Millisecond),
	}})
	m.log.Info().Str("model", mdl.ID).Dur("dur", time.Since(start)).Msg("model loaded")

	// Enforce the loaded-model cap right away rather than waiting for the
	// next sweep.
	if m.maxLoaded > 0 {
		m.EvictLRU(m.maxLoaded)
	}
	return nil
}

// failLoad records a failed load. The entry ends in Failed — never a state
// that looks live — and the typed error is what every coalesced waiter sees.
func (m *Manager) failLoad(e *entry, err error) error {
	e.mu.Lock()
	e.state = StateFailed
	e.lastErr = err.Error()
	e.engine = nil
	id := e.model.ID
	e.mu.Unlock()

	kind := KindUnknown
	if k, ok := err.(Kinder); ok {
		kind = k.Kind()
	}
	loadFailures.WithLabelValues(kind).Inc()
	m.publish(Event{Name: "load_failed", ModelID: id, Fields: map[string]any{"error": err.Error()}})
	m.log.Error().Str("model", id).Err(err).Msg("model load failed")
	return err
}

// classifyLoadError maps an instantiate failure onto the error taxonomy.
func classifyLoadError(id string, err error) error {
	if errors.Is(err, engine.ErrUnavailable) {
		return ErrIncompatibleDevice(id, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "out of memory") || strings.Contains(msg, "alloc") {
		return outOfMemoryError{id: id, err: err}
	}
	return unknownLoadError{id: id, err: err}
}

func (m *Manager) publish(ev Event) {
	if m.publisher != nil {
		m.publisher.Publish(ev)
	}
}
