// Package source downloads asset media from the legacy platform.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/mediamigrate/internal/common"
)

// DefaultUserAgent is sent with every download. Some legacy hosts refuse
// requests without a browser agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Config holds configuration options for the HTTP source.
type Config struct {
	UserAgent string
	CacheDir  string
	Retry     common.RetryPolicy
	Timeout   time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent: DefaultUserAgent,
		Retry:     common.DefaultRetryPolicy(),
		Timeout:   30 * time.Second,
	}
}

// HTTPSource fetches media over HTTP, optionally through a download cache.
type HTTPSource struct {
	client    *http.Client
	userAgent string
	cacheDir  string
	retry     common.RetryPolicy
}

// NewHTTPSource creates a source with its own HTTP client.
func NewHTTPSource(cfg Config) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &HTTPSource{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		cacheDir:  cfg.CacheDir,
		retry:     cfg.Retry,
	}
}

// Fetch downloads rawURL. A copy in the cache directory is returned without
// network access. Failures are *common.FetchError.
func (s *HTTPSource) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, &common.FetchError{Err: errors.New("asset has no source URL")}
	}

	cached := s.cachePath(rawURL)
	if cached != "" {
		if data, err := os.ReadFile(cached); err == nil {
			slog.Debug("Using cached download", "url", rawURL, "path", cached)
			return data, nil
		}
	}

	var data []byte
	var status int
	attempts, err := s.retry.Do(ctx, "fetch "+rawURL, func(ctx context.Context, _ int) error {
		body, code, getErr := s.get(ctx, rawURL)
		status = code
		if getErr != nil {
			return getErr
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, &common.FetchError{URL: rawURL, StatusCode: status, Attempts: attempts, Err: err}
	}

	if cached != "" {
		if err := writeAtomic(cached, data); err != nil {
			slog.Warn("Failed to cache download", "url", rawURL, "path", cached, "error", err)
		}
	}

	slog.Debug("Downloaded media", "url", rawURL, "bytes", len(data), "attempts", attempts)
	return data, nil
}

func (s *HTTPSource) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// statusError classifies a response status. Rate limiting, timeouts and
// server errors are retried; other client errors are not.
func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("status %d: %w", code, common.ErrRateLimit)
	case code == http.StatusRequestTimeout || code >= 500:
		return fmt.Errorf("status %d", code)
	default:
		return common.Permanent(fmt.Errorf("status %d", code))
	}
}

// cachePath maps a URL to a file in the cache directory. The name keeps
// the original file name so the cache stays browsable.
func (s *HTTPSource) cachePath(rawURL string) string {
	if s.cacheDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(rawURL))
	prefix := hex.EncodeToString(sum[:4])

	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" || strings.HasPrefix(name, "..") {
		return filepath.Join(s.cacheDir, prefix)
	}
	return filepath.Join(s.cacheDir, prefix+"-"+name)
}

func writeAtomic(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move download into cache: %w", err)
	}
	return nil
}
