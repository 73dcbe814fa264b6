package manager

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"speechd/internal/registry"
	"speechd/pkg/types"
)

// Fetcher downloads a model's weights and returns the on-disk path. The
// manager treats this as a black box; implementations handle resume,
// checksums, or mirrors as they see fit.
type Fetcher interface {
	Fetch(ctx context.Context, mdl types.Model) (string, error)
}

// HTTPFetcher downloads weight files over plain HTTP(S) into a models
// directory, writing to a temp file first so partial downloads never look
// like complete weights.
type HTTPFetcher struct {
	dir    string
	client *http.Client
}

// NewHTTPFetcher creates a fetcher storing weights under dir.
func NewHTTPFetcher(dir string) *HTTPFetcher {
	return &HTTPFetcher{dir: dir, client: http.DefaultClient}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, mdl types.Model) (string, error) {
	if mdl.URL == "" {
		return "", fmt.Errorf("model %s has no download URL", mdl.ID)
	}
	dest := registry.WeightPath(f.dir, mdl)
	if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
		return dest, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mdl.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", mdl.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", mdl.URL, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".partial-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write weights: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	return dest, nil
}
