package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"speechd/internal/manager"
	"speechd/internal/vad"
	"speechd/pkg/types"
)

// Supervisor creates and tracks streaming sessions, enforcing the hard cap on
// concurrent sessions. When the cap is reached new sessions are rejected
// outright; nothing is queued.
type Supervisor struct {
	manager  *manager.Manager
	vadNew   vad.Factory
	defaults Config
	max      int
	log      zerolog.Logger

	mu       sync.Mutex
	active   map[string]*Session
	nextID   uint64
	reserved int
}

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	Manager *manager.Manager
	// VAD constructs one detector per session.
	VAD vad.Factory
	// Session holds per-session defaults; zero fields fall back to package
	// defaults.
	Session Config
	// MaxSessions caps concurrent sessions. Zero or negative means 1.
	MaxSessions int
	Logger      zerolog.Logger
}

// NewSupervisor builds a Supervisor from cfg.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1
	}
	if cfg.VAD == nil {
		cfg.VAD = vad.NewEnergy()
	}
	cfg.Session.applyDefaults()
	return &Supervisor{
		manager:  cfg.Manager,
		vadNew:   cfg.VAD,
		defaults: cfg.Session,
		max:      cfg.MaxSessions,
		log:      cfg.Logger,
		active:   make(map[string]*Session),
	}
}

// Start opens a new session bound to modelID, acquiring the model through the
// lifecycle manager (loading it on demand). An empty modelID selects the
// default transcription model. The returned session holds its model claim
// until Close.
func (sv *Supervisor) Start(ctx context.Context, modelID string, sink Sink) (*Session, error) {
	// Capacity is reserved before the (possibly slow) model load so that
	// concurrent starts cannot overshoot the limit.
	sv.mu.Lock()
	if len(sv.active)+sv.reserved >= sv.max {
		sv.mu.Unlock()
		sessionsRejected.Inc()
		return nil, ErrCapacityExceeded(sv.max)
	}
	sv.reserved++
	sv.nextID++
	id := fmt.Sprintf("sess-%06d", sv.nextID)
	sv.mu.Unlock()

	release := func() {
		sv.mu.Lock()
		sv.reserved--
		sv.mu.Unlock()
	}

	if modelID == "" {
		modelID = sv.manager.DefaultModel(types.KindSTT)
		if modelID == "" {
			release()
			return nil, manager.ErrModelNotFound("(default transcription model)")
		}
	}

	handle, err := sv.manager.Acquire(ctx, modelID)
	if err != nil {
		release()
		return nil, err
	}
	det, err := sv.vadNew(sv.defaults.SampleRate)
	if err != nil {
		handle.Release()
		release()
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		cfg:        sv.defaults,
		handle:     handle,
		det:        det,
		sink:       sink,
		log:        sv.log,
		ctx:        sctx,
		cancel:     cancel,
		state:      StateIdle,
		createdAt:  time.Now(),
		lastActive: time.Now(),
	}
	s.onClose = func() {
		sv.mu.Lock()
		delete(sv.active, s.id)
		sv.mu.Unlock()
		sessionsActive.Dec()
	}

	sv.mu.Lock()
	sv.reserved--
	sv.active[id] = s
	sv.mu.Unlock()
	sessionsActive.Inc()
	sessionsTotal.Inc()

	sv.log.Info().Str("session", id).Str("model", modelID).Msg("session started")
	sink.Ready()
	return s, nil
}

// Count returns the number of open sessions.
func (sv *Supervisor) Count() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return len(sv.active)
}

// Max returns the concurrent-session limit.
func (sv *Supervisor) Max() int { return sv.max }

// CloseAll closes every open session. Used at shutdown.
func (sv *Supervisor) CloseAll() {
	sv.mu.Lock()
	open := make([]*Session, 0, len(sv.active))
	for _, s := range sv.active {
		open = append(open, s)
	}
	sv.mu.Unlock()
	for _, s := range open {
		s.Close()
	}
}
