// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Content store errors.
	ErrAlreadyAssociated = errors.New("record already has associated media")
	ErrRecordNotFound    = errors.New("record not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// FetchError reports that source media could not be downloaded.
type FetchError struct {
	Err        error
	URL        string
	StatusCode int
	Attempts   int
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TransferError reports that an upload to the content store failed.
type TransferError struct {
	Err      error
	FileName string
	Attempts int
}

func (e *TransferError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("upload %s failed after %d attempts: %v", e.FileName, e.Attempts, e.Err)
	}
	return fmt.Sprintf("upload %s: %v", e.FileName, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// AssociationError reports that the content store refused to link an
// uploaded asset to a record.
type AssociationError struct {
	Err      error
	RecordID string
	AssetID  string
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("associate asset %s with record %s: %v", e.AssetID, e.RecordID, e.Err)
}

func (e *AssociationError) Unwrap() error {
	return e.Err
}

// LedgerWriteError reports that the migration ledger could not be
// persisted. It is the only error that aborts a run.
type LedgerWriteError struct {
	Err  error
	Path string
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("write ledger %s: %v", e.Path, e.Err)
}

func (e *LedgerWriteError) Unwrap() error {
	return e.Err
}

// IsLedgerWriteError reports whether err is or wraps a LedgerWriteError.
func IsLedgerWriteError(err error) bool {
	var lwe *LedgerWriteError
	return errors.As(err, &lwe)
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return true
}
