// Package service defines the capability interfaces the migration core
// consumes from its collaborators.
package service

import (
	"context"

	"github.com/Veraticus/mediamigrate/internal/model"
)

// ContentStore is the destination content store.
type ContentStore interface {
	// FindRecords returns every content record with its current
	// association state.
	FindRecords(ctx context.Context) ([]model.ContentRecord, error)
	// FindAssetByIdentity returns the uploaded asset whose name equals key,
	// or nil when none exists.
	FindAssetByIdentity(ctx context.Context, key string) (*model.AssetHandle, error)
	// UploadAsset stores a new media file. Failures are *common.TransferError.
	UploadAsset(ctx context.Context, data []byte, fileName, mimeType string) (*model.AssetHandle, error)
	// Associate links an uploaded asset to a record. Failures are
	// *common.AssociationError.
	Associate(ctx context.Context, recordID string, handle model.AssetHandle) error
}

// MediaSource downloads source media. Failures are *common.FetchError.
type MediaSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Ledger is the durable record of reconciliation decisions.
type Ledger interface {
	Record(entry model.LedgerEntry) error
	WasAlreadySettled(assetFileName string) bool
}
