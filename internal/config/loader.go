package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the gateway.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`

	DefaultSTTModel string `json:"default_stt_model" yaml:"default_stt_model" toml:"default_stt_model"`
	DefaultTTSModel string `json:"default_tts_model" yaml:"default_tts_model" toml:"default_tts_model"`

	// Model lifecycle.
	ModelIdleTTLSec  int `json:"model_idle_ttl_sec" yaml:"model_idle_ttl_sec" toml:"model_idle_ttl_sec"`
	MaxLoadedModels  int `json:"max_loaded_models" yaml:"max_loaded_models" toml:"max_loaded_models"`
	LoadTimeoutSec   int `json:"load_timeout_sec" yaml:"load_timeout_sec" toml:"load_timeout_sec"`
	SweepIntervalSec int `json:"sweep_interval_sec" yaml:"sweep_interval_sec" toml:"sweep_interval_sec"`

	// Streaming sessions.
	MaxConcurrentSessions int     `json:"max_concurrent_sessions" yaml:"max_concurrent_sessions" toml:"max_concurrent_sessions"`
	SpeechThreshold       float64 `json:"speech_threshold" yaml:"speech_threshold" toml:"speech_threshold"`
	EndpointingMs         int     `json:"endpointing_ms" yaml:"endpointing_ms" toml:"endpointing_ms"`
	ChunkMs               int     `json:"chunk_ms" yaml:"chunk_ms" toml:"chunk_ms"`
	MaxUtteranceMs        int     `json:"max_utterance_ms" yaml:"max_utterance_ms" toml:"max_utterance_ms"`
	SampleRate            int     `json:"sample_rate" yaml:"sample_rate" toml:"sample_rate"`

	// SileroModelPath selects the ONNX VAD when built with it; empty keeps
	// the energy detector.
	SileroModelPath string `json:"silero_model_path" yaml:"silero_model_path" toml:"silero_model_path"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
