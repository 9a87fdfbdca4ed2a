package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"plenum/internal/config"
	"plenum/internal/manifest"
)

// HTTPFetcher downloads sources over plain HTTP(S) into per-kind subfolders.
// A shared rate limiter spaces requests so several concurrent downloads in a
// partition still respect the per-source budget.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	destDir   string
	userAgent string
}

// NewHTTPFetcher builds a fetcher from the downloads configuration.
func NewHTTPFetcher(cfg *config.Config) *HTTPFetcher {
	interval := time.Minute / time.Duration(cfg.Downloads.RequestsPerMinute)
	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.RequestTimeout()},
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		destDir:   cfg.Paths.DownloadDir,
		userAgent: cfg.Downloads.UserAgent,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, row manifest.Row) (*Result, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, row.URL, nil)
	if err != nil {
		return nil, Permanent("build request", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Transient("request "+row.URL, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, row.URL); err != nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, err
	}

	dest := f.destPath(row)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	written, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Transient("read body for "+row.URL, copyErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("flush download: %w", closeErr)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return nil, fmt.Errorf("finalize download: %w", err)
	}

	return &Result{
		Path:     dest,
		Bytes:    written,
		Duration: time.Since(start),
	}, nil
}

func (f *HTTPFetcher) destPath(row manifest.Row) string {
	name := safeFileName(row.ID) + extensionFor(row)
	return filepath.Join(f.destDir, row.Kind.Subdir(), name)
}

func extensionFor(row manifest.Row) string {
	if parsed, err := url.Parse(row.URL); err == nil {
		if ext := path.Ext(parsed.Path); ext != "" && len(ext) <= 8 {
			return ext
		}
	}
	return row.Kind.DefaultExt()
}

func safeFileName(id string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(id)
}

func classifyStatus(status int, source string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return Permanent(fmt.Sprintf("%s not found (%d)", source, status), nil)
	case status == http.StatusRequestTimeout,
		status == http.StatusTooEarly,
		status == http.StatusTooManyRequests:
		return Transient(fmt.Sprintf("%s throttled (%d)", source, status), nil)
	case status >= 500:
		return Transient(fmt.Sprintf("%s upstream error (%d)", source, status), nil)
	case status >= 400:
		return Permanent(fmt.Sprintf("%s rejected (%d)", source, status), nil)
	default:
		return Transient(fmt.Sprintf("%s unexpected status %d", source, status), errors.New(http.StatusText(status)))
	}
}
