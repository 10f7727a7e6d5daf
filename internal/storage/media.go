package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/mattn/go-sqlite3"
)

// FindAssetByIdentity returns the media file stored under key, or nil.
func (s *SQLiteStorage) FindAssetByIdentity(ctx context.Context, key string) (*model.AssetHandle, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(key, "key"); err != nil {
		return nil, err
	}

	h, err := s.findMedia(ctx, s.db, key)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (s *SQLiteStorage) findMedia(ctx context.Context, q queryable, key string) (*model.AssetHandle, error) {
	var id int64
	var name, fileName string
	err := q.QueryRowContext(ctx, `
		SELECT id, name, file_name FROM media_files WHERE name = ?
	`, key).Scan(&id, &name, &fileName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media file: %w", err)
	}
	return mediaHandle(id, name, fileName), nil
}

// UploadAsset stores a media file under its identity key. Storing a second
// file with the same key fails with common.ErrDuplicateEntry.
func (s *SQLiteStorage) UploadAsset(ctx context.Context, data []byte, fileName, mimeType string) (*model.AssetHandle, error) {
	fail := func(err error) (*model.AssetHandle, error) {
		return nil, &common.TransferError{FileName: fileName, Err: err}
	}
	if err := validateContext(ctx); err != nil {
		return fail(common.Permanent(err))
	}
	key := model.IdentityKey(fileName)
	if err := validateString(key, "fileName"); err != nil {
		return fail(common.Permanent(err))
	}
	if len(data) == 0 {
		return fail(common.Permanent(ErrEmptyMedia))
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO media_files (name, file_name, mime_type, size, data)
		VALUES (?, ?, ?, ?, ?)
	`, key, fileName, mimeType, len(data), data)
	if err != nil {
		if isUniqueViolation(err) {
			return fail(common.Permanent(fmt.Errorf("%w: media %q", common.ErrDuplicateEntry, key)))
		}
		return fail(fmt.Errorf("failed to insert media file: %w", err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fail(fmt.Errorf("failed to read media id: %w", err))
	}
	return mediaHandle(id, key, fileName), nil
}

// Associate links a stored media file to a record.
func (s *SQLiteStorage) Associate(ctx context.Context, recordID string, handle model.AssetHandle) error {
	fail := func(err error) error {
		return &common.AssociationError{RecordID: recordID, AssetID: handle.ID, Err: err}
	}
	if err := validateContext(ctx); err != nil {
		return fail(err)
	}
	mediaID, err := strconv.ParseInt(handle.ID, 10, 64)
	if err != nil {
		return fail(fmt.Errorf("invalid media id %q: %w", handle.ID, err))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	var legacy, linked bool
	err = tx.QueryRowContext(ctx, `
		SELECT r.has_legacy_media,
			EXISTS (SELECT 1 FROM record_media rm WHERE rm.record_id = r.id)
		FROM records r WHERE r.id = ?
	`, recordID).Scan(&legacy, &linked)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(common.ErrRecordNotFound)
	}
	if err != nil {
		return fail(fmt.Errorf("failed to get record: %w", err))
	}
	if legacy || linked {
		return fail(common.ErrAlreadyAssociated)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM media_files WHERE id = ?)`, mediaID).Scan(&exists); err != nil {
		return fail(fmt.Errorf("failed to get media file: %w", err))
	}
	if !exists {
		return fail(fmt.Errorf("media %s: %w", handle.ID, common.ErrNotFound))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO record_media (record_id, media_id) VALUES (?, ?)
	`, recordID, mediaID); err != nil {
		return fail(fmt.Errorf("failed to link media: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return fail(fmt.Errorf("failed to commit association: %w", err))
	}
	return nil
}

// AssociatedMedia returns the media linked to a record by a migration.
func (s *SQLiteStorage) AssociatedMedia(ctx context.Context, recordID string) (*model.AssetHandle, error) {
	var id int64
	var name, fileName string
	err := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.name, m.file_name
		FROM record_media rm JOIN media_files m ON m.id = rm.media_id
		WHERE rm.record_id = ?
	`, recordID).Scan(&id, &name, &fileName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get associated media: %w", err)
	}
	return mediaHandle(id, name, fileName), nil
}

func mediaHandle(id int64, name, fileName string) *model.AssetHandle {
	return &model.AssetHandle{
		ID:   strconv.FormatInt(id, 10),
		Name: name,
		URL:  "/uploads/" + fileName,
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
