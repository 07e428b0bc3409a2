package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeInvalidPassword = "INVALID_PASSWORD"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeDecryption      = "DECRYPTION_ERROR"
	ErrCodeLockFailure     = "LOCK_FAILURE"
	ErrCodeStoreCorrupt    = "STORE_CORRUPT"
	ErrCodeStorage         = "STORAGE_ERROR"
)

// Sentinel errors
var (
	// ErrInvalidPassword is returned when a password is empty or malformed.
	ErrInvalidPassword = errors.New("password must be a non-empty string")

	// ErrNotFound covers both an unknown stored ID and an ownership
	// mismatch. The two are deliberately indistinguishable so that an
	// unauthorized caller cannot probe for file existence.
	ErrNotFound = errors.New("file not found")

	// ErrDecryptionFailed is returned for a wrong password as well as a
	// corrupted or tampered blob; authenticated encryption cannot tell
	// them apart.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrStoreCorrupt marks an unreadable metadata document.
	ErrStoreCorrupt = errors.New("metadata store is corrupt")
)

// LockError reports a failed lock operation.
type LockError struct {
	UserID string
	Name   string
	Err    error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("lock %s for user %s: %v", e.Name, e.UserID, e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// StorageError wraps a blob store failure with its operation context.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
