package uploader

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/Veraticus/mediamigrate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		Retry: common.RetryPolicy{
			MaxAttempts: attempts,
			BaseDelay:   time.Millisecond,
			MaxDelay:    2 * time.Millisecond,
			Multiplier:  2,
		},
		CallTimeout: time.Second,
	}
}

func staticPayload(data []byte, calls *int) Payload {
	return func(context.Context) ([]byte, error) {
		*calls++
		return data, nil
	}
}

func TestEnsureUploaded_UploadsNewAsset(t *testing.T) {
	store := testutil.NewFakeStore()
	u := NewWithConfig(store, fastConfig(3))

	calls := 0
	res, err := u.EnsureUploaded(context.Background(), model.Asset{FileName: "photo.jpg"}, staticPayload([]byte("jpeg"), &calls))
	require.NoError(t, err)

	assert.False(t, res.Reused)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "photo", res.Handle.Name)
	assert.Equal(t, 1, calls)

	uploads := store.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "image/jpeg", uploads[0].MimeType)
	assert.Equal(t, 4, uploads[0].Size)
}

func TestEnsureUploaded_ReusesExistingAsset(t *testing.T) {
	store := testutil.NewFakeStore()
	existing := store.PutAsset("photo")
	u := NewWithConfig(store, fastConfig(3))

	calls := 0
	res, err := u.EnsureUploaded(context.Background(), model.Asset{FileName: "photo.png"}, staticPayload([]byte("png"), &calls))
	require.NoError(t, err)

	assert.True(t, res.Reused)
	assert.Equal(t, existing, res.Handle)
	assert.Zero(t, calls, "payload must not be read for a reused asset")
	assert.Empty(t, store.Uploads())
}

func TestEnsureUploaded_RetriesTransientFailures(t *testing.T) {
	store := testutil.NewFakeStore()
	store.FailNextUploads(2, errors.New("connection reset"))
	u := NewWithConfig(store, fastConfig(3))

	calls := 0
	res, err := u.EnsureUploaded(context.Background(), model.Asset{FileName: "photo.jpg"}, staticPayload([]byte("jpeg"), &calls))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempts)
	assert.False(t, res.Reused)
	assert.Len(t, store.Uploads(), 3)
	assert.Equal(t, 1, store.SuccessfulUploads())
	assert.Equal(t, 1, calls, "payload is read once across retries")
	// Initial lookup plus one before each retry.
	assert.Equal(t, []string{"photo", "photo", "photo"}, store.Lookups())
}

func TestEnsureUploaded_ExhaustedRetries(t *testing.T) {
	store := testutil.NewFakeStore()
	store.FailNextUploads(5, errors.New("service unavailable"))
	u := NewWithConfig(store, fastConfig(3))

	calls := 0
	res, err := u.EnsureUploaded(context.Background(), model.Asset{FileName: "photo.jpg"}, staticPayload([]byte("jpeg"), &calls))
	require.Error(t, err)

	var transferErr *common.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "photo.jpg", transferErr.FileName)
	assert.Equal(t, 3, transferErr.Attempts)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 3, res.Attempts)
	assert.Zero(t, store.SuccessfulUploads())
	assert.Equal(t, 1, strings.Count(err.Error(), "photo.jpg"), err.Error())
	assert.Contains(t, err.Error(), "service unavailable")
}

func TestEnsureUploaded_PermanentStoreErrorNamedOnce(t *testing.T) {
	store := testutil.NewFakeStore()
	store.FailNextUploads(1, common.Permanent(errors.New("file too large")))
	u := NewWithConfig(store, fastConfig(3))

	calls := 0
	_, err := u.EnsureUploaded(context.Background(), model.Asset{FileName: "poster.png"}, staticPayload([]byte("png"), &calls))
	require.Error(t, err)

	var transferErr *common.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, 1, transferErr.Attempts)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, "upload poster.png failed after 1 attempts: file too large", err.Error())
}

// ambiguousStore stores the file but reports failure on the first upload.
type ambiguousStore struct {
	*testutil.FakeStore
	failed bool
}

func (s *ambiguousStore) UploadAsset(ctx context.Context, data []byte, fileName, mimeType string) (*model.AssetHandle, error) {
	h, err := s.FakeStore.UploadAsset(ctx, data, fileName, mimeType)
	if err != nil {
		return nil, err
	}
	if !s.failed {
		s.failed = true
		return nil, errors.New("timeout reading response")
	}
	return h, nil
}

func TestEnsureUploaded_ReusesAfterAmbiguousFailure(t *testing.T) {
	store := &ambiguousStore{FakeStore: testutil.NewFakeStore()}
	u := NewWithConfig(store, fastConfig(3))

	calls := 0
	res, err := u.EnsureUploaded(context.Background(), model.Asset{FileName: "photo.jpg"}, staticPayload([]byte("jpeg"), &calls))
	require.NoError(t, err)

	assert.True(t, res.Reused)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 1, store.SuccessfulUploads(), "no duplicate upload")
}

func TestEnsureUploaded_PayloadErrorPassesThrough(t *testing.T) {
	store := testutil.NewFakeStore()
	u := NewWithConfig(store, fastConfig(3))

	fetchErr := &common.FetchError{URL: "https://legacy.example/photo.jpg", StatusCode: 404}
	_, err := u.EnsureUploaded(context.Background(), model.Asset{FileName: "photo.jpg"}, func(context.Context) ([]byte, error) {
		return nil, fetchErr
	})

	require.Error(t, err)
	assert.Same(t, fetchErr, err)
	assert.Empty(t, store.Uploads())
}

func TestEnsureUploaded_EmptyIdentity(t *testing.T) {
	u := NewWithConfig(testutil.NewFakeStore(), fastConfig(1))

	_, err := u.EnsureUploaded(context.Background(), model.Asset{FileName: "  "}, func(context.Context) ([]byte, error) {
		t.Fatal("payload should not be called")
		return nil, nil
	})

	var transferErr *common.TransferError
	assert.ErrorAs(t, err, &transferErr)
}

func TestEnsureUploaded_CanceledContext(t *testing.T) {
	store := testutil.NewFakeStore()
	store.FailNextUploads(1, errors.New("boom"))
	u := NewWithConfig(store, Config{
		Retry:       common.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour},
		CallTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	payload := func(context.Context) ([]byte, error) {
		calls++
		cancel()
		return []byte("x"), nil
	}

	_, err := u.EnsureUploaded(ctx, model.Asset{FileName: "photo.jpg"}, payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.Uploads())
}

func TestMimeType(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{"jpeg", "photo.JPG", "image/jpeg"},
		{"png", "diagram.png", "image/png"},
		{"no extension", "README", DefaultMimeType},
		{"unknown extension", "archive.zzqq", DefaultMimeType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MimeType(tt.fileName))
		})
	}
}
