// Package storage provides a SQLite-backed content store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/mediamigrate/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrEmptySlice    = errors.New("slice cannot be empty")
	ErrInvalidRecord = errors.New("invalid record")
	ErrEmptyMedia    = errors.New("media file is empty")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecords validates a batch of records to seed.
func validateRecords(records []model.ContentRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: records", ErrEmptySlice)
	}
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("record at index %d: %w: missing ID", i, ErrInvalidRecord)
		}
		if seen[r.ID] {
			return fmt.Errorf("record at index %d: %w: duplicate ID %q", i, ErrInvalidRecord, r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}
