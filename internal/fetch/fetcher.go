// Package fetch downloads poster images to disk with retries and an
// atomic write-temp-then-rename pattern.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Daiya404/CoverPics/internal/core"
	"github.com/cenkalti/backoff/v4"
)

var ErrDownloadFailed = errors.New("download failed")

const requestTimeout = 30 * time.Second

// Fetcher retrieves a resolved asset's image and persists it under the
// output directory.
type Fetcher struct {
	client     *http.Client
	outputDir  string
	overwrite  bool
	maxRetries int
	newBackOff func() backoff.BackOff
}

// Config carries the fetcher's policy knobs.
type Config struct {
	OutputDir  string
	Overwrite  bool // false means skip-if-exists
	MaxRetries int

	// Client defaults to a timeout-bounded http.Client.
	Client *http.Client

	// NewBackOff builds the per-download retry schedule. Defaults to
	// exponential backoff; tests inject backoff.ZeroBackOff.
	NewBackOff func() backoff.BackOff
}

// New creates a fetcher rooted at cfg.OutputDir.
func New(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	newBackOff := cfg.NewBackOff
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			return b
		}
	}

	return &Fetcher{
		client:     client,
		outputDir:  cfg.OutputDir,
		overwrite:  cfg.Overwrite,
		maxRetries: maxRetries,
		newBackOff: newBackOff,
	}
}

// Result describes one completed download.
type Result struct {
	SavedPath string
	Skipped   bool // the target already existed; no network call was made
	Attempts  int  // retries attempted beyond the first request
}

// TargetPath returns the final on-disk path for an asset, derived from the
// query text so reruns and skip-if-exists checks are stable.
func (f *Fetcher) TargetPath(asset *core.ResolvedAsset) (string, error) {
	name, err := core.SanitizeFilename(asset.Query.Text)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.outputDir, name+".jpg"), nil
}

// Download fetches the asset's poster. Failures after all retries come back
// wrapped in ErrDownloadFailed together with the retry count used.
func (f *Fetcher) Download(ctx context.Context, asset *core.ResolvedAsset) (*Result, error) {
	target, err := f.TargetPath(asset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	if !f.overwrite {
		if _, err := os.Stat(target); err == nil {
			return &Result{SavedPath: target, Skipped: true}, nil
		}
	}

	if err := os.MkdirAll(f.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %v", ErrDownloadFailed, err)
	}

	attempts := 0
	operation := func() error {
		attempts++
		return f.fetchOnce(ctx, asset.PosterURL, target)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(f.newBackOff(), uint64(f.maxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return &Result{Attempts: attempts - 1},
			fmt.Errorf("%w after %d attempts: %v", ErrDownloadFailed, attempts, err)
	}

	return &Result{SavedPath: target, Attempts: attempts - 1}, nil
}

// fetchOnce performs a single download attempt. The body is written to a
// temporary file in the target directory and renamed into place only after
// a full, non-empty copy, so a partial file is never visible at the final
// path.
func (f *Fetcher) fetchOnce(ctx context.Context, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write image: %w", err)
	}
	if written == 0 {
		os.Remove(tmpName)
		return errors.New("empty response body")
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize image: %w", err)
	}
	return nil
}
