// Package registry holds the curated table of known speech models and
// resolves which of them already have weights on disk.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"speechd/pkg/types"
)

// Known is the curated model table. IDs double as the dispatch key for the
// engine registry (matched by prefix) and as the weight filename stem.
var Known = []types.Model{
	// STT — whisper.cpp ggml weights.
	{ID: "whisper-tiny", Kind: types.KindSTT, Provider: "whisper", SizeMB: 75,
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny-q5_1.bin",
		Description: "Fastest, lowest quality"},
	{ID: "whisper-base", Kind: types.KindSTT, Provider: "whisper", SizeMB: 150,
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base-q5_1.bin",
		Description: "Good balance for CPU"},
	{ID: "whisper-small", Kind: types.KindSTT, Provider: "whisper", SizeMB: 500,
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small-q5_1.bin",
		Description: "Better accuracy"},
	{ID: "whisper-large-v3-turbo", Kind: types.KindSTT, Provider: "whisper", SizeMB: 1500,
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo-q5_0.bin",
		Description: "Best quality, GPU recommended"},

	// TTS.
	{ID: "kokoro", Kind: types.KindTTS, Provider: "kokoro", SizeMB: 330,
		Description: "Fast, 52 voices, voice blending"},
	{ID: "piper/en_US-lessac-medium", Kind: types.KindTTS, Provider: "piper", SizeMB: 35,
		Description: "Lightweight, fast, good quality"},
	{ID: "piper/en_US-amy-medium", Kind: types.KindTTS, Provider: "piper", SizeMB: 35,
		Description: "Female voice, natural"},
	{ID: "pocket-tts", Kind: types.KindTTS, Provider: "pocket-tts", SizeMB: 220,
		Description: "CPU-first low-latency TTS with streaming"},
}

// WeightPath returns where a model's weights live under dir. Slashes in the
// id become subdirectories (piper voices), other ids map to a single file.
func WeightPath(dir string, mdl types.Model) string {
	name := mdl.ID
	if mdl.URL != "" {
		name = filepath.Base(mdl.URL)
	}
	if strings.Contains(mdl.ID, "/") {
		return filepath.Join(dir, filepath.FromSlash(mdl.ID)+".onnx")
	}
	return filepath.Join(dir, name)
}

// Load returns the curated models with Path filled in for every model whose
// weights are present under dir, and the defaults flagged. Unknown defaults
// are an error so a typo in config fails at startup, not at first acquire.
func Load(dir, defaultSTT, defaultTTS string) ([]types.Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}

	models := make([]types.Model, len(Known))
	copy(models, Known)
	foundSTT, foundTTS := defaultSTT == "", defaultTTS == ""
	for i := range models {
		if p := WeightPath(abs, models[i]); pathExists(p) {
			models[i].Path = p
		}
		if models[i].Device == "" {
			models[i].Device = "cpu"
		}
		switch models[i].ID {
		case defaultSTT:
			models[i].Default = true
			foundSTT = true
		case defaultTTS:
			models[i].Default = true
			foundTTS = true
		}
	}
	if !foundSTT {
		return nil, fmt.Errorf("default stt model %q is not in the registry", defaultSTT)
	}
	if !foundTTS {
		return nil, fmt.Errorf("default tts model %q is not in the registry", defaultTTS)
	}
	return models, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

func pathExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Size() > 0
}
