package types

// ModelKind distinguishes the two engine families served by the gateway.
type ModelKind string

const (
	KindSTT ModelKind = "stt"
	KindTTS ModelKind = "tts"
)

// Model describes a speech model known to the gateway. The descriptor is
// immutable once created; lifecycle state lives in the manager.
type Model struct {
	// Stable identifier for the model.
	// example: faster-whisper-base.en
	ID string `json:"id" example:"faster-whisper-base.en"`
	// Engine family: "stt" or "tts".
	// example: stt
	Kind ModelKind `json:"kind" example:"stt"`
	// Backend provider resolved from the id prefix (e.g., whisper, kokoro, piper).
	// example: whisper
	Provider string `json:"provider,omitempty" example:"whisper"`
	// Target device: "cpu" or a GPU index like "gpu-0".
	// example: cpu
	Device string `json:"device,omitempty" example:"cpu"`
	// Default models are pinned: never auto-evicted by TTL or LRU.
	// example: false
	Default bool `json:"is_default,omitempty" example:"false"`
	// Absolute path to the weight file on disk, empty until fetched.
	Path string `json:"path,omitempty"`
	// Download URL for the weight file.
	URL string `json:"url,omitempty"`
	// Approximate weight size in MB, used for registry listings.
	// example: 150
	SizeMB int `json:"size_mb,omitempty" example:"150"`
	// Human-friendly description.
	// example: Good balance for CPU
	Description string `json:"description,omitempty" example:"Good balance for CPU"`
}
