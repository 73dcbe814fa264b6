// Package manager owns the lifecycle of speech inference engines: loading,
// ref-counted sharing, unloading, and eviction. It is the single source of
// truth for whether a model is usable right now. The package is structured
// into small files by concern:
//
//   - manager.go: core Manager type, constructor, model listing.
//   - config.go: Config and package defaults.
//   - types.go: lifecycle states and the per-model entry.
//   - errors.go: typed error values and IsXxx predicates.
//   - acquire.go: the engine Handle, Acquire/Release, the coalesced load path.
//   - unload.go: explicit unload with in-use protection.
//   - speech.go: one-shot synthesis through acquire/release.
//   - evict.go: idle-TTL and LRU eviction plus the periodic sweeper.
//   - fetch.go: weight download (the black-box "fetch" step of a load).
//   - status.go: read-only snapshots for the HTTP surface.
//   - events.go: lifecycle event publishing for observers and tests.
//   - metrics.go: Prometheus counters and gauges.
//
// Locking: each model entry carries its own mutex guarding metadata only
// (state, refCount, lastUsed). Engine calls — fetch, instantiate, decode,
// close — always run outside every lock, so unrelated models load and evict
// concurrently and a slow decode never stalls the manager.
package manager
