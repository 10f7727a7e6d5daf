package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/mediamigrate/internal/model"
)

// SaveRecords inserts or updates records. HasAssociatedMedia marks media
// that predates the migration.
func (s *SQLiteStorage) SaveRecords(ctx context.Context, records []model.ContentRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, slug, title, created_at, has_legacy_media)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug = excluded.slug,
			title = excluded.title,
			created_at = excluded.created_at,
			has_legacy_media = excluded.has_legacy_media
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		var created any
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.UTC()
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Slug, r.Title, created, r.HasAssociatedMedia); err != nil {
			return fmt.Errorf("failed to save record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// FindRecords returns every record in insertion order. A record has media
// when it had legacy media or an asset was associated with it.
func (s *SQLiteStorage) FindRecords(ctx context.Context) ([]model.ContentRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.slug, r.title, r.created_at,
			r.has_legacy_media OR rm.record_id IS NOT NULL
		FROM records r
		LEFT JOIN record_media rm ON rm.record_id = r.id
		ORDER BY r.rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.ContentRecord
	for rows.Next() {
		var r model.ContentRecord
		var created sql.NullTime
		if err := rows.Scan(&r.ID, &r.Slug, &r.Title, &created, &r.HasAssociatedMedia); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if created.Valid {
			r.CreatedAt = created.Time
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// Counts summarizes the store's contents.
type Counts struct {
	Records      int
	WithMedia    int
	MediaFiles   int
	Associations int
}

// Count returns record, media and association totals.
func (s *SQLiteStorage) Count(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM records),
			(SELECT COUNT(*) FROM records r
				WHERE r.has_legacy_media
				OR EXISTS (SELECT 1 FROM record_media rm WHERE rm.record_id = r.id)),
			(SELECT COUNT(*) FROM media_files),
			(SELECT COUNT(*) FROM record_media)
	`).Scan(&c.Records, &c.WithMedia, &c.MediaFiles, &c.Associations)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count contents: %w", err)
	}
	return c, nil
}
