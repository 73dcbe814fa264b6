package types

// ModelsResponse wraps the list of models returned by GET /v1/models.
type ModelsResponse struct {
	// List of models known to the gateway.
	Models []ModelStatus `json:"models"`
}

// ModelStatus is a point-in-time snapshot of one model's lifecycle record.
type ModelStatus struct {
	Model
	// Current lifecycle state (not_downloaded, downloaded, loading, loaded,
	// unloading, failed).
	// example: loaded
	State string `json:"state" example:"loaded"`
	// Number of sessions/requests currently holding the engine.
	// example: 1
	RefCount int `json:"ref_count" example:"1"`
	// Last successful inference time (unix seconds, 0 if never used).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Last load error observed for this model, if any.
	Error string `json:"error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Snapshots of all known models.
	Models []ModelStatus `json:"models"`
	// Number of currently loaded models.
	// example: 2
	LoadedCount int `json:"loaded_count" example:"2"`
	// Configured cap on loaded models (0 = unbounded).
	// example: 4
	MaxLoaded int `json:"max_loaded" example:"4"`
	// True when more models are loaded than the cap allows because every
	// candidate is pinned or in use.
	OverCapacity bool `json:"over_capacity,omitempty"`
	// Number of live streaming sessions.
	// example: 3
	ActiveSessions int `json:"active_sessions" example:"3"`
	// Configured cap on concurrent sessions.
	// example: 16
	MaxSessions int `json:"max_sessions" example:"16"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// SpeechRequest is the payload for POST /v1/audio/speech.
type SpeechRequest struct {
	// Model identifier. If empty, the server's default TTS model is used.
	// example: kokoro
	Model string `json:"model,omitempty" example:"kokoro"`
	// Text to synthesize.
	// example: The quick brown fox.
	Input string `json:"input" example:"The quick brown fox."`
	// Voice profile name understood by the backend.
	// example: af_bella
	Voice string `json:"voice,omitempty" example:"af_bella"`
}

// ErrorResponse is the consistent JSON error payload.
type ErrorResponse struct {
	// Stable machine-readable error kind.
	// example: model_not_found
	Kind string `json:"kind" example:"model_not_found"`
	// Human-readable message.
	// example: model not found: nonexistent
	Error string `json:"error" example:"model not found: nonexistent"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
