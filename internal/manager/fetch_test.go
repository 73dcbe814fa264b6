package manager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"speechd/pkg/types"
)

func TestHTTPFetcherDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("ggml-weights"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewHTTPFetcher(dir)
	mdl := types.Model{ID: "whisper-tiny", Kind: types.KindSTT, URL: srv.URL + "/ggml-tiny.bin"}

	path, err := f.Fetch(context.Background(), mdl)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read weights: %v", err)
	}
	if string(b) != "ggml-weights" {
		t.Fatalf("weights = %q", b)
	}

	// Present weights short-circuit the download.
	if _, err := f.Fetch(context.Background(), mdl); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1", hits.Load())
	}
}

func TestHTTPFetcherErrors(t *testing.T) {
	f := NewHTTPFetcher(t.TempDir())

	if _, err := f.Fetch(context.Background(), types.Model{ID: "no-url"}); err == nil {
		t.Fatalf("expected error for missing URL")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	mdl := types.Model{ID: "gone", URL: srv.URL + "/gone.bin"}
	if _, err := f.Fetch(context.Background(), mdl); err == nil {
		t.Fatalf("expected error for 404 response")
	}
	// No partial file may survive a failed download.
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("leftover files after failure: %v", entries)
	}
}
