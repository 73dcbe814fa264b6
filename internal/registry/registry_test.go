package registry

import (
	"os"
	"path/filepath"
	"testing"

	"speechd/pkg/types"
)

func TestLoadFlagsDefaultsAndPresence(t *testing.T) {
	dir := t.TempDir()

	// Put fake weights in place for whisper-tiny only.
	var tiny types.Model
	for _, m := range Known {
		if m.ID == "whisper-tiny" {
			tiny = m
		}
	}
	dest := WeightPath(dir, tiny)
	if err := os.WriteFile(dest, []byte("ggml"), 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}

	models, err := Load(dir, "whisper-base", "kokoro")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	byID := make(map[string]types.Model, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}

	if m := byID["whisper-tiny"]; m.Path != dest {
		t.Fatalf("whisper-tiny path = %q, want %q", m.Path, dest)
	}
	if m := byID["whisper-base"]; m.Path != "" || !m.Default {
		t.Fatalf("whisper-base = %+v, want remote default", m)
	}
	if m := byID["kokoro"]; !m.Default || m.Kind != types.KindTTS {
		t.Fatalf("kokoro = %+v, want tts default", m)
	}
	if m := byID["whisper-small"]; m.Default {
		t.Fatalf("whisper-small must not be default")
	}
	for _, m := range models {
		if m.Device == "" {
			t.Fatalf("%s has no device", m.ID)
		}
	}
}

func TestLoadRejectsUnknownDefault(t *testing.T) {
	if _, err := Load(t.TempDir(), "whisper-xxl", ""); err == nil {
		t.Fatalf("expected error for unknown stt default")
	}
	if _, err := Load(t.TempDir(), "", "not-a-voice"); err == nil {
		t.Fatalf("expected error for unknown tts default")
	}
	if _, err := Load(t.TempDir(), "", ""); err != nil {
		t.Fatalf("no defaults requested: %v", err)
	}
}

func TestWeightPathLayout(t *testing.T) {
	urlModel := types.Model{ID: "whisper-base", URL: "https://example.com/ggml-base-q5_1.bin"}
	if got := WeightPath("/m", urlModel); got != "/m/ggml-base-q5_1.bin" {
		t.Fatalf("url model path = %q", got)
	}
	voice := types.Model{ID: "piper/en_US-amy-medium"}
	if got := WeightPath("/m", voice); got != filepath.Join("/m", "piper", "en_US-amy-medium.onnx") {
		t.Fatalf("voice path = %q", got)
	}
	plain := types.Model{ID: "kokoro"}
	if got := WeightPath("/m", plain); got != "/m/kokoro" {
		t.Fatalf("plain path = %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := expandHome("~/models")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != filepath.Join(home, "models") {
		t.Fatalf("expanded = %q", got)
	}
	got, err = expandHome("/abs/models")
	if err != nil || got != "/abs/models" {
		t.Fatalf("absolute path changed: %q, %v", got, err)
	}
}
