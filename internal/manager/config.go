package manager

import (
	"time"

	"github.com/rs/zerolog"

	"speechd/internal/engine"
	"speechd/pkg/types"
)

// Defaults applied when the corresponding Config fields are unset.
const (
	defaultLoadTimeout   = 60 * time.Second
	defaultSweepInterval = 30 * time.Second
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Registry is the set of known model descriptors.
	Registry []types.Model
	// Engines resolves a descriptor to a backend constructor.
	Engines *engine.Registry
	// Fetcher downloads missing weights. Defaults to an HTTP fetcher
	// writing into ModelsDir.
	Fetcher Fetcher
	// ModelsDir is where fetched weights are stored.
	ModelsDir string
	// IdleTTL unloads models unused for this long. 0 disables TTL eviction.
	IdleTTL time.Duration
	// MaxLoaded caps concurrently loaded models. 0 means unbounded.
	MaxLoaded int
	// LoadTimeout bounds how long an Acquire waits for a load.
	LoadTimeout time.Duration
	// SweepInterval is the cadence of the background eviction sweep.
	SweepInterval time.Duration
	// Publisher receives lifecycle events; nil drops them.
	Publisher EventPublisher
	// Logger for manager events; defaults to a no-op logger.
	Logger zerolog.Logger
}

// New constructs a Manager from Config, applying package defaults.
func New(cfg Config) *Manager {
	m := &Manager{
		entries:       make(map[string]*entry, len(cfg.Registry)),
		engines:       cfg.Engines,
		fetcher:       cfg.Fetcher,
		idleTTL:       cfg.IdleTTL,
		maxLoaded:     cfg.MaxLoaded,
		loadTimeout:   cfg.LoadTimeout,
		sweepInterval: cfg.SweepInterval,
		publisher:     cfg.Publisher,
		log:           cfg.Logger,
		startTime:     time.Now(),
	}
	if m.engines == nil {
		m.engines = engine.NewRegistry()
	}
	if m.fetcher == nil {
		m.fetcher = NewHTTPFetcher(cfg.ModelsDir)
	}
	if m.loadTimeout <= 0 {
		m.loadTimeout = defaultLoadTimeout
	}
	if m.sweepInterval <= 0 {
		m.sweepInterval = defaultSweepInterval
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	for _, mdl := range cfg.Registry {
		st := StateNotDownloaded
		if mdl.Path != "" {
			st = StateDownloaded
		}
		m.entries[mdl.ID] = &entry{model: mdl, state: st}
	}
	return m
}
