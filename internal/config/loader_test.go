package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml",
		"addr: :9999\nmodels_dir: /tmp/models\ndefault_stt_model: whisper-base\nmodel_idle_ttl_sec: 300\nmax_loaded_models: 2\nendpointing_ms: 450\nspeech_threshold: 0.6\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/tmp/models" || cfg.DefaultSTTModel != "whisper-base" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.ModelIdleTTLSec != 300 || cfg.MaxLoadedModels != 2 || cfg.EndpointingMs != 450 || cfg.SpeechThreshold != 0.6 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json",
		`{"addr":":7070","models_dir":"/m","default_tts_model":"kokoro","max_concurrent_sessions":8,"chunk_ms":500}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelsDir != "/m" || cfg.DefaultTTSModel != "kokoro" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.MaxConcurrentSessions != 8 || cfg.ChunkMs != 500 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml",
		"addr=\":8081\"\nmodels_dir=\"/x\"\ndefault_stt_model=\"whisper-tiny\"\nmax_utterance_ms=20000\nload_timeout_sec=90\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.DefaultSTTModel != "whisper-tiny" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.MaxUtteranceMs != 20000 || cfg.LoadTimeoutSec != 90 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error on missing file")
	}
	p = writeTempFile(t, d, "bad.json", "{not json")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
}
