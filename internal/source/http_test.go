package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = common.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Multiplier:  2,
	}
	cfg.Timeout = 2 * time.Second
	return cfg
}

func TestHTTPSource_Fetch(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	data, err := NewHTTPSource(testConfig()).Fetch(context.Background(), srv.URL+"/media/photo.jpg")

	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)
	assert.Equal(t, DefaultUserAgent, gotAgent)
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	data, err := NewHTTPSource(testConfig()).Fetch(context.Background(), srv.URL+"/photo.jpg")

	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSource_FetchErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"not found is permanent", http.StatusNotFound, 1},
		{"forbidden is permanent", http.StatusForbidden, 1},
		{"server error exhausts retries", http.StatusBadGateway, 3},
		{"rate limit exhausts retries", http.StatusTooManyRequests, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewHTTPSource(testConfig()).Fetch(context.Background(), srv.URL+"/photo.jpg")

			var fetchErr *common.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
			assert.Equal(t, int(tt.wantCalls), fetchErr.Attempts)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestHTTPSource_EmptyURL(t *testing.T) {
	_, err := NewHTTPSource(testConfig()).Fetch(context.Background(), "")

	var fetchErr *common.FetchError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestHTTPSource_Cache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("cached-bytes"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.CacheDir = t.TempDir()
	src := NewHTTPSource(cfg)
	rawURL := srv.URL + "/uploads/festa.jpg"

	first, err := src.Fetch(context.Background(), rawURL)
	require.NoError(t, err)
	second, err := src.Fetch(context.Background(), rawURL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	path := src.cachePath(rawURL)
	assert.Contains(t, path, "-festa.jpg")
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "cached-bytes", string(onDisk))

	entries, err := os.ReadDir(cfg.CacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestHTTPSource_CachePath(t *testing.T) {
	src := NewHTTPSource(Config{CacheDir: "/cache"})

	a := src.cachePath("https://legacy.example/a/photo.jpg")
	b := src.cachePath("https://legacy.example/b/photo.jpg")
	assert.NotEqual(t, a, b)
	assert.NotContains(t, src.cachePath("https://legacy.example/"), "/cache/..")

	assert.Empty(t, NewHTTPSource(Config{}).cachePath("https://legacy.example/a.jpg"))
}
