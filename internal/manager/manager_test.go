package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"speechd/internal/engine"
	"speechd/pkg/types"
)

type fakeEngine struct {
	transcript string
	closed     atomic.Int32
}

func (e *fakeEngine) Close() error {
	e.closed.Add(1)
	return nil
}

func (e *fakeEngine) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	return e.transcript, nil
}

// fakeBackend counts instantiations and can inject latency or failure.
type fakeBackend struct {
	mu           sync.Mutex
	delay        time.Duration
	failWith     error
	instantiated int
	last         *fakeEngine
}

func (b *fakeBackend) factory(mdl types.Model) (engine.Engine, error) {
	b.mu.Lock()
	b.instantiated++
	delay, fail := b.delay, b.failWith
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if fail != nil {
		return nil, fail
	}
	eng := &fakeEngine{transcript: "transcript for " + mdl.ID}
	b.mu.Lock()
	b.last = eng
	b.mu.Unlock()
	return eng, nil
}

func (b *fakeBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.instantiated
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	path  string
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, mdl types.Model) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.path, f.err
}

func testModels() []types.Model {
	return []types.Model{
		{ID: "test-a", Kind: types.KindSTT, Path: "/weights/a.bin"},
		{ID: "test-b", Kind: types.KindSTT, Path: "/weights/b.bin"},
		{ID: "test-default", Kind: types.KindSTT, Path: "/weights/d.bin", Default: true},
	}
}

func newTestManager(t *testing.T, b *fakeBackend, mutate func(*Config)) *Manager {
	t.Helper()
	reg := engine.NewRegistry()
	reg.Register("test-", types.KindSTT, b.factory)
	cfg := Config{
		Registry: testModels(),
		Engines:  reg,
		Fetcher:  &fakeFetcher{path: "/weights/fetched.bin"},
		Logger:   zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

func mustStatus(t *testing.T, m *Manager, id string) types.ModelStatus {
	t.Helper()
	st, err := m.ModelStatus(id)
	if err != nil {
		t.Fatalf("status %s: %v", id, err)
	}
	return st
}

func TestAcquireLoadsOnDemand(t *testing.T) {
	b := &fakeBackend{}
	m := newTestManager(t, b, nil)

	h, err := m.Acquire(context.Background(), "test-a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	st := mustStatus(t, m, "test-a")
	if st.State != string(StateLoaded) || st.RefCount != 1 {
		t.Fatalf("state=%s refs=%d after acquire", st.State, st.RefCount)
	}

	text, err := h.Transcribe(context.Background(), make([]byte, 320), 16000)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "transcript for test-a" {
		t.Fatalf("transcript = %q", text)
	}

	h.Release()
	if st := mustStatus(t, m, "test-a"); st.RefCount != 0 {
		t.Fatalf("refs=%d after release", st.RefCount)
	}
}

func TestAcquireUnknownModel(t *testing.T) {
	m := newTestManager(t, &fakeBackend{}, nil)
	if _, err := m.Acquire(context.Background(), "nope"); !IsModelNotFound(err) {
		t.Fatalf("err = %v, want model not found", err)
	}
}

func TestConcurrentAcquiresCoalesce(t *testing.T) {
	b := &fakeBackend{delay: 50 * time.Millisecond}
	m := newTestManager(t, b, nil)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	handles := make([]*Handle, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = m.Acquire(context.Background(), "test-a")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if got := b.count(); got != 1 {
		t.Fatalf("backend instantiated %d times, want 1", got)
	}
	if st := mustStatus(t, m, "test-a"); st.RefCount != n {
		t.Fatalf("refs=%d, want %d", st.RefCount, n)
	}
	for _, h := range handles {
		h.Release()
	}
}

func TestLoadFailureSharedThenRetriable(t *testing.T) {
	loadErr := errors.Join(engine.ErrUnavailable, errors.New("no cuda"))
	b := &fakeBackend{failWith: loadErr, delay: 20 * time.Millisecond}
	m := newTestManager(t, b, nil)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Acquire(context.Background(), "test-a")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !IsIncompatibleDevice(err) {
			t.Fatalf("waiter %d: err = %v, want incompatible device", i, err)
		}
	}
	if got := b.count(); got != 1 {
		t.Fatalf("backend instantiated %d times during coalesced failure, want 1", got)
	}
	if st := mustStatus(t, m, "test-a"); st.State != string(StateFailed) || st.Error == "" {
		t.Fatalf("state=%s error=%q after failure", st.State, st.Error)
	}

	// A failed entry is retriable once the cause clears.
	b.mu.Lock()
	b.failWith = nil
	b.mu.Unlock()
	h, err := m.Acquire(context.Background(), "test-a")
	if err != nil {
		t.Fatalf("retry acquire: %v", err)
	}
	defer h.Release()
	if st := mustStatus(t, m, "test-a"); st.State != string(StateLoaded) || st.Error != "" {
		t.Fatalf("state=%s error=%q after retry", st.State, st.Error)
	}
}

func TestLoadTimeout(t *testing.T) {
	b := &fakeBackend{delay: 500 * time.Millisecond}
	m := newTestManager(t, b, func(c *Config) { c.LoadTimeout = 30 * time.Millisecond })

	if _, err := m.Acquire(context.Background(), "test-a"); !IsLoadTimeout(err) {
		t.Fatalf("err = %v, want load timeout", err)
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	b := &fakeBackend{delay: 500 * time.Millisecond}
	m := newTestManager(t, b, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := m.Acquire(ctx, "test-a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestUnloadInUseConflict(t *testing.T) {
	b := &fakeBackend{}
	m := newTestManager(t, b, nil)

	h, err := m.Acquire(context.Background(), "test-a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := m.Unload("test-a"); !IsInUse(err) {
		t.Fatalf("err = %v, want in use", err)
	}
	if st := mustStatus(t, m, "test-a"); st.State != string(StateLoaded) {
		t.Fatalf("state=%s, conflict must not change it", st.State)
	}

	h.Release()
	if err := m.Unload("test-a"); err != nil {
		t.Fatalf("unload after release: %v", err)
	}
	if st := mustStatus(t, m, "test-a"); st.State != string(StateDownloaded) {
		t.Fatalf("state=%s after unload, want downloaded", st.State)
	}
	b.mu.Lock()
	eng := b.last
	b.mu.Unlock()
	if eng.closed.Load() != 1 {
		t.Fatalf("engine closed %d times, want 1", eng.closed.Load())
	}
}

func TestUnloadIdempotent(t *testing.T) {
	m := newTestManager(t, &fakeBackend{}, nil)
	if err := m.Unload("test-a"); err != nil {
		t.Fatalf("unload of not-loaded model: %v", err)
	}
	if err := m.Unload("nope"); !IsModelNotFound(err) {
		t.Fatalf("err = %v, want model not found", err)
	}
}

func TestReleaseNeverGoesNegative(t *testing.T) {
	m := newTestManager(t, &fakeBackend{}, nil)
	h, err := m.Acquire(context.Background(), "test-a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	h.Release()
	h.Release()
	m.Release("test-a")
	if st := mustStatus(t, m, "test-a"); st.RefCount != 0 {
		t.Fatalf("refs=%d, want 0", st.RefCount)
	}
}

func TestLRUCapEvictsOldestOnLoad(t *testing.T) {
	b := &fakeBackend{}
	m := newTestManager(t, b, func(c *Config) { c.MaxLoaded = 1 })

	if err := m.Warm(context.Background(), "test-a"); err != nil {
		t.Fatalf("warm a: %v", err)
	}
	if err := m.Warm(context.Background(), "test-b"); err != nil {
		t.Fatalf("warm b: %v", err)
	}

	// The cap is enforced at load completion, not on the next sweep.
	if st := mustStatus(t, m, "test-a"); st.State != string(StateDownloaded) {
		t.Fatalf("test-a state=%s, want evicted", st.State)
	}
	if st := mustStatus(t, m, "test-b"); st.State != string(StateLoaded) {
		t.Fatalf("test-b state=%s, want loaded", st.State)
	}
}

func TestLRUNeverEvictsHeldModels(t *testing.T) {
	b := &fakeBackend{}
	m := newTestManager(t, b, func(c *Config) { c.MaxLoaded = 1 })

	ha, err := m.Acquire(context.Background(), "test-a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	hb, err := m.Acquire(context.Background(), "test-b")
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	defer ha.Release()
	defer hb.Release()

	evicted, over := m.EvictLRU(1)
	if evicted != 0 || !over {
		t.Fatalf("evicted=%d over=%v, want 0/true with both models held", evicted, over)
	}
	if !m.Status().OverCapacity {
		t.Fatalf("status must report over-capacity")
	}
	if st := mustStatus(t, m, "test-a"); st.State != string(StateLoaded) {
		t.Fatalf("held model was evicted")
	}
}

func TestIdleEvictionBoundary(t *testing.T) {
	b := &fakeBackend{}
	m := newTestManager(t, b, nil)

	if err := m.Warm(context.Background(), "test-a"); err != nil {
		t.Fatalf("warm a: %v", err)
	}
	if err := m.Warm(context.Background(), "test-b"); err != nil {
		t.Fatalf("warm b: %v", err)
	}
	m.entries["test-a"].lastUsed = time.Now().Add(-301 * time.Second)
	m.entries["test-b"].lastUsed = time.Now().Add(-299 * time.Second)

	if n := m.EvictIdle(300 * time.Second); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if st := mustStatus(t, m, "test-a"); st.State != string(StateDownloaded) {
		t.Fatalf("test-a state=%s, want evicted past ttl", st.State)
	}
	if st := mustStatus(t, m, "test-b"); st.State != string(StateLoaded) {
		t.Fatalf("test-b state=%s, want kept within ttl", st.State)
	}
}

func TestIdleEvictionSkipsDefaultAndZeroTTL(t *testing.T) {
	b := &fakeBackend{}
	m := newTestManager(t, b, nil)

	if err := m.Warm(context.Background(), "test-default"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	m.entries["test-default"].lastUsed = time.Now().Add(-time.Hour)

	if n := m.EvictIdle(300 * time.Second); n != 0 {
		t.Fatalf("evicted %d, default models are pinned", n)
	}
	if n := m.EvictIdle(0); n != 0 {
		t.Fatalf("evicted %d with ttl disabled", n)
	}
	if st := mustStatus(t, m, "test-default"); st.State != string(StateLoaded) {
		t.Fatalf("default model state=%s, want loaded", st.State)
	}
}

func TestFetcherOnlyForMissingWeights(t *testing.T) {
	b := &fakeBackend{}
	f := &fakeFetcher{path: "/weights/fetched.bin"}
	reg := engine.NewRegistry()
	reg.Register("test-", types.KindSTT, b.factory)
	m := New(Config{
		Registry: []types.Model{{ID: "test-cold", Kind: types.KindSTT, URL: "http://example.com/w.bin"}},
		Engines:  reg,
		Fetcher:  f,
		Logger:   zerolog.Nop(),
	})

	if st := mustStatus(t, m, "test-cold"); st.State != string(StateNotDownloaded) {
		t.Fatalf("state=%s before fetch", st.State)
	}
	if err := m.Warm(context.Background(), "test-cold"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("fetch called %d times, want 1", f.calls)
	}

	// Weights stay on disk across unload; a reload must not refetch.
	if err := m.Unload("test-cold"); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if err := m.Warm(context.Background(), "test-cold"); err != nil {
		t.Fatalf("rewarm: %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("fetch called %d times after reload, want 1", f.calls)
	}
}

func TestDownloadFailure(t *testing.T) {
	b := &fakeBackend{}
	f := &fakeFetcher{err: errors.New("connection refused")}
	reg := engine.NewRegistry()
	reg.Register("test-", types.KindSTT, b.factory)
	m := New(Config{
		Registry: []types.Model{{ID: "test-cold", Kind: types.KindSTT, URL: "http://example.com/w.bin"}},
		Engines:  reg,
		Fetcher:  f,
		Logger:   zerolog.Nop(),
	})

	if _, err := m.Acquire(context.Background(), "test-cold"); !IsDownloadFailed(err) {
		t.Fatalf("err = %v, want download failed", err)
	}
	if st := mustStatus(t, m, "test-cold"); st.State != string(StateFailed) {
		t.Fatalf("state=%s after download failure", st.State)
	}
}

func TestLifecycleEvents(t *testing.T) {
	pub := NewMemoryPublisher()
	m := newTestManager(t, &fakeBackend{}, func(c *Config) { c.Publisher = pub })

	if err := m.Warm(context.Background(), "test-a"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if err := m.Unload("test-a"); err != nil {
		t.Fatalf("unload: %v", err)
	}

	var names []string
	for _, ev := range pub.Events() {
		if ev.ModelID == "test-a" {
			names = append(names, ev.Name)
		}
	}
	want := []string{"load_start", "load_ready", "unload_start", "unload_done"}
	if len(names) != len(want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("event %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestStatusAndReadiness(t *testing.T) {
	m := newTestManager(t, &fakeBackend{}, func(c *Config) { c.MaxLoaded = 2 })

	if m.Ready() {
		t.Fatalf("ready with nothing loaded")
	}
	st := m.Status()
	if st.LoadedCount != 0 || st.MaxLoaded != 2 || st.OverCapacity {
		t.Fatalf("status = %+v before any load", st)
	}

	if err := m.Warm(context.Background(), "test-a"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if !m.Ready() {
		t.Fatalf("not ready with a model loaded")
	}
	st = m.Status()
	if st.LoadedCount != 1 {
		t.Fatalf("loaded=%d, want 1", st.LoadedCount)
	}
	if len(st.Models) != 3 || st.Models[0].ID > st.Models[1].ID {
		t.Fatalf("models not sorted: %+v", st.Models)
	}
}

func TestClassifyLoadError(t *testing.T) {
	if err := classifyLoadError("m", errors.Join(engine.ErrUnavailable, errors.New("stub"))); !IsIncompatibleDevice(err) {
		t.Fatalf("unavailable backend: got %v", err)
	}
	if err := classifyLoadError("m", errors.New("ggml: failed to alloc tensor")); !IsOutOfMemory(err) {
		t.Fatalf("alloc failure: got %v", err)
	}
	if err := classifyLoadError("m", errors.New("mystery")); IsOutOfMemory(err) || IsIncompatibleDevice(err) {
		t.Fatalf("unknown failure misclassified: %v", err)
	}
}

func TestDefaultModelLookup(t *testing.T) {
	m := newTestManager(t, &fakeBackend{}, nil)
	if id := m.DefaultModel(types.KindSTT); id != "test-default" {
		t.Fatalf("default = %q", id)
	}
	if id := m.DefaultModel(types.KindTTS); id != "" {
		t.Fatalf("default tts = %q, want none", id)
	}
}
