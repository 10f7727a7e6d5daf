// Package uploader transfers assets to the content store at most once per
// identity key.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/Veraticus/mediamigrate/internal/service"
)

// DefaultMimeType is used when the extension is unknown.
const DefaultMimeType = "application/octet-stream"

// Payload produces the bytes of an asset. It is only called when the asset
// is not already in the content store.
type Payload func(ctx context.Context) ([]byte, error)

// Result describes how an asset ended up in the content store.
type Result struct {
	Handle   model.AssetHandle
	Attempts int
	Reused   bool
}

// Config holds configuration options for the uploader.
type Config struct {
	Retry       common.RetryPolicy
	CallTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Retry:       common.DefaultRetryPolicy(),
		CallTimeout: 60 * time.Second,
	}
}

// Uploader ensures each asset is uploaded exactly once.
type Uploader struct {
	store       service.ContentStore
	retry       common.RetryPolicy
	callTimeout time.Duration
}

// New creates an uploader with the default configuration.
func New(store service.ContentStore) *Uploader {
	return NewWithConfig(store, DefaultConfig())
}

// NewWithConfig creates an uploader with custom configuration.
func NewWithConfig(store service.ContentStore, cfg Config) *Uploader {
	return &Uploader{
		store:       store,
		retry:       cfg.Retry,
		callTimeout: cfg.CallTimeout,
	}
}

// EnsureUploaded returns the content-store handle for asset, uploading it
// only when no asset with the same identity key exists. Upload failures are
// retried under the retry policy; once exhausted the error is a
// *common.TransferError. Payload errors are returned unchanged.
func (u *Uploader) EnsureUploaded(ctx context.Context, asset model.Asset, payload Payload) (Result, error) {
	key := asset.IdentityKey()
	if key == "" {
		return Result{}, &common.TransferError{FileName: asset.FileName, Err: errors.New("asset has no identity key")}
	}

	existing, err := u.lookup(ctx, key)
	if err != nil {
		return Result{}, &common.TransferError{FileName: asset.FileName, Err: fmt.Errorf("identity lookup: %w", err)}
	}
	if existing != nil {
		slog.Debug("Reusing uploaded asset", "asset", asset.FileName, "key", key, "handle", existing.ID)
		return Result{Handle: *existing, Reused: true}, nil
	}

	data, err := payload(ctx)
	if err != nil {
		return Result{}, err
	}

	mimeType := MimeType(asset.FileName)
	var handle *model.AssetHandle
	var reused bool

	attempts, err := u.retry.Do(ctx, "upload "+asset.FileName, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			// A failed attempt may still have stored the file.
			found, lookupErr := u.lookup(ctx, key)
			if lookupErr != nil {
				return lookupErr
			}
			if found != nil {
				handle, reused = found, true
				return nil
			}
		}

		callCtx, cancel := u.withTimeout(ctx)
		defer cancel()
		h, uploadErr := u.store.UploadAsset(callCtx, data, asset.FileName, mimeType)
		if uploadErr != nil {
			slog.Warn("Upload attempt failed",
				"asset", asset.FileName,
				"attempt", attempt,
				"error", uploadErr)
			return uploadErr
		}
		if h == nil {
			return common.Permanent(errors.New("content store returned no handle"))
		}
		handle = h
		return nil
	})
	if err != nil {
		return Result{Attempts: attempts}, transferFailure(asset.FileName, attempts, err)
	}

	slog.Info("Uploaded asset",
		"asset", asset.FileName,
		"handle", handle.ID,
		"attempts", attempts,
		"bytes", len(data))
	return Result{Handle: *handle, Attempts: attempts, Reused: reused}, nil
}

// transferFailure reports a failed upload once. A TransferError already
// returned by the store is unwrapped so its file name is not repeated.
func transferFailure(fileName string, attempts int, err error) *common.TransferError {
	cause := err
	var inner *common.TransferError
	if errors.As(err, &inner) {
		cause = inner.Err
		if errors.Is(err, common.ErrMaxRetries) {
			cause = fmt.Errorf("%w: %w", common.ErrMaxRetries, inner.Err)
		}
	}
	return &common.TransferError{FileName: fileName, Attempts: attempts, Err: cause}
}

func (u *Uploader) lookup(ctx context.Context, key string) (*model.AssetHandle, error) {
	callCtx, cancel := u.withTimeout(ctx)
	defer cancel()
	return u.store.FindAssetByIdentity(callCtx, key)
}

func (u *Uploader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, u.callTimeout)
}

// MimeType guesses the media type of a file from its extension.
func MimeType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return DefaultMimeType
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return DefaultMimeType
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}
