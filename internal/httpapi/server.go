package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"speechd/internal/session"
	"speechd/pkg/types"
)

// Service defines the model-surface methods required by the HTTP API layer.
// The lifecycle manager implements it.
type Service interface {
	ListModels() []types.ModelStatus
	ModelStatus(modelID string) (types.ModelStatus, error)
	Warm(ctx context.Context, modelID string) error
	Unload(modelID string) error
	Synthesize(ctx context.Context, modelID, text, voice string) ([]byte, error)
	Status() types.StatusResponse
	Ready() bool
}

// SessionStarter opens streaming transcription sessions. The session
// supervisor implements it.
type SessionStarter interface {
	Start(ctx context.Context, modelID string, sink session.Sink) (*session.Session, error)
	Count() int
	Max() int
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes int64 = 1 << 20

// Server bundles the dependencies of the HTTP layer.
type Server struct {
	svc      Service
	sessions SessionStarter
	log      zerolog.Logger
}

func NewServer(svc Service, sessions SessionStarter, log zerolog.Logger) *Server {
	return &Server{svc: svc, sessions: sessions, log: log}
}

// Mux builds the router: model lifecycle surface, one-shot synthesis, the
// streaming websocket endpoint, and operational probes.
func (s *Server) Mux() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", s.handleListModels)
		r.Get("/models/{id}", s.handleModelStatus)
		r.Post("/models/{id}/load", s.handleLoad)
		r.Post("/models/{id}/unload", s.handleUnload)
		r.Post("/audio/speech", s.handleSpeech)
		r.Get("/audio/transcriptions/ws", s.handleTranscriptionWS)
	})

	r.Get("/status", s.handleStatus)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// handleListModels godoc
// @Summary List known models
// @Produce json
// @Success 200 {object} types.ModelsResponse
// @Router /v1/models [get]
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.ModelsResponse{Models: s.svc.ListModels()})
}

// handleModelStatus godoc
// @Summary Lifecycle state of one model
// @Produce json
// @Success 200 {object} types.ModelStatus
// @Failure 404 {object} types.ErrorResponse
// @Router /v1/models/{id} [get]
func (s *Server) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.ModelStatus(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, st)
}

// handleLoad godoc
// @Summary Load a model into memory, downloading weights if needed
// @Produce json
// @Success 200 {object} types.ModelStatus
// @Failure 404 {object} types.ErrorResponse
// @Failure 504 {object} types.ErrorResponse
// @Router /v1/models/{id}/load [post]
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Warm(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	st, err := s.svc.ModelStatus(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, st)
}

// handleUnload godoc
// @Summary Unload a model, keeping its weights on disk
// @Produce json
// @Success 200 {object} types.ModelStatus
// @Failure 409 {object} types.ErrorResponse
// @Router /v1/models/{id}/unload [post]
func (s *Server) handleUnload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Unload(id); err != nil {
		writeError(w, err)
		return
	}
	st, err := s.svc.ModelStatus(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, st)
}

// handleSpeech godoc
// @Summary One-shot text-to-speech
// @Accept json
// @Produce octet-stream
// @Success 200
// @Failure 400 {object} types.ErrorResponse
// @Router /v1/audio/speech [post]
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "invalid_request", "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.SpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "input is required")
		return
	}

	audio, err := s.svc.Synthesize(r.Context(), req.Model, req.Input, req.Voice)
	if err != nil {
		writeError(w, err)
		return
	}
	// Raw 16-bit mono PCM; container muxing is the client's concern.
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

// handleStatus godoc
// @Summary Aggregate gateway status
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.svc.Status()
	st.ActiveSessions = s.sessions.Count()
	st.MaxSessions = s.sessions.Max()
	writeJSON(w, st)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "unknown", "failed to encode response")
	}
}
