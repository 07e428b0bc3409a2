package models_test

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cosmicvault/locker/internal/models"
)

func TestLockError(t *testing.T) {
	cause := fs.ErrPermission
	err := &models.LockError{UserID: "alice", Name: "report.pdf", Err: cause}

	assert.Contains(t, err.Error(), "report.pdf")
	assert.Contains(t, err.Error(), "alice")
	assert.True(t, errors.Is(err, fs.ErrPermission))
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := &models.StorageError{Op: "write", Path: "vault/alice_a.enc", Err: cause}

	assert.Contains(t, err.Error(), "write")
	assert.Contains(t, err.Error(), "vault/alice_a.enc")
	assert.True(t, errors.Is(err, cause))
}
