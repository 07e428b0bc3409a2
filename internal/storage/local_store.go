package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cosmicvault/locker/internal/events"
	"github.com/cosmicvault/locker/internal/models"
)

// LocalStore implements BlobStore on two local directories.
type LocalStore struct {
	vaultDir    string
	recycleDir  string
	maxFileSize int64
	logger      *events.Logger
}

// NewLocalStore creates a local blob store. Both area directories are
// created if missing.
func NewLocalStore(vaultDir, recycleDir string, logger *events.Logger) (*LocalStore, error) {
	absVault, err := filepath.Abs(vaultDir)
	if err != nil {
		return nil, fmt.Errorf("resolve vault directory: %w", err)
	}

	absRecycle, err := filepath.Abs(recycleDir)
	if err != nil {
		return nil, fmt.Errorf("resolve recycle directory: %w", err)
	}

	if absVault == absRecycle {
		return nil, fmt.Errorf("vault and recycle directories must differ")
	}

	for _, dir := range []string{absVault, absRecycle} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create area directory: %w", err)
		}
	}

	return &LocalStore{
		vaultDir:    absVault,
		recycleDir:  absRecycle,
		maxFileSize: 100 * 1024 * 1024, // 100MB default
		logger:      logger.WithField("component", "blob_store"),
	}, nil
}

// SetMaxFileSize sets the maximum blob size limit.
func (s *LocalStore) SetMaxFileSize(size int64) {
	s.maxFileSize = size
}

// Write saves a blob atomically via a temp file and rename.
func (s *LocalStore) Write(area Area, storedID string, data []byte) error {
	path, err := s.blobPath(area, storedID)
	if err != nil {
		return err
	}

	if int64(len(data)) > s.maxFileSize {
		return &models.StorageError{
			Op:   "write",
			Path: path,
			Err:  fmt.Errorf("blob too large: %d bytes (max: %d)", len(data), s.maxFileSize),
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"area":      area.String(),
		"stored_id": storedID,
		"size":      len(data),
	}).Debug("Writing blob")

	tempPath := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return &models.StorageError{Op: "write", Path: path, Err: err}
	}

	// Sync to disk before the rename makes the blob visible.
	if file, err := os.Open(tempPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return &models.StorageError{Op: "write", Path: path, Err: err}
	}

	return nil
}

// Read retrieves a blob's contents.
func (s *LocalStore) Read(area Area, storedID string) ([]byte, error) {
	path, err := s.blobPath(area, storedID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.StorageError{Op: "read", Path: path, Err: err}
	}

	return data, nil
}

// Exists checks whether a blob is present in an area.
func (s *LocalStore) Exists(area Area, storedID string) (bool, error) {
	path, err := s.blobPath(area, storedID)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// List returns the stored IDs resident in an area. Temp files from
// interrupted writes are skipped.
func (s *LocalStore) List(area Area) ([]string, error) {
	entries, err := os.ReadDir(s.areaDir(area))
	if err != nil {
		return nil, &models.StorageError{Op: "list", Path: s.areaDir(area), Err: err}
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.Contains(name, ".tmp.") {
			continue
		}
		ids = append(ids, name)
	}

	return ids, nil
}

// Move transfers a blob between areas with a single rename, so no
// observer ever sees it in both areas or neither.
func (s *LocalStore) Move(storedID string, from, to Area) error {
	src, err := s.blobPath(from, storedID)
	if err != nil {
		return err
	}

	dst, err := s.blobPath(to, storedID)
	if err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"stored_id": storedID,
		"from":      from.String(),
		"to":        to.String(),
	}).Debug("Moving blob")

	if err := os.Rename(src, dst); err != nil {
		return &models.StorageError{Op: "move", Path: src, Err: err}
	}

	return nil
}

// Delete removes a blob from an area. Missing blobs are not an error.
func (s *LocalStore) Delete(area Area, storedID string) error {
	path, err := s.blobPath(area, storedID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &models.StorageError{Op: "delete", Path: path, Err: err}
	}

	return nil
}

// Helper methods

func (s *LocalStore) areaDir(area Area) string {
	if area == AreaRecycle {
		return s.recycleDir
	}
	return s.vaultDir
}

// blobPath validates a stored ID and resolves it inside an area. Stored
// IDs are flat names; anything resembling a path is refused.
func (s *LocalStore) blobPath(area Area, storedID string) (string, error) {
	if storedID == "" {
		return "", fmt.Errorf("empty stored ID")
	}

	if strings.ContainsRune(storedID, 0) {
		return "", fmt.Errorf("invalid stored ID: contains null byte")
	}

	if storedID != filepath.Base(storedID) || storedID == "." || storedID == ".." {
		return "", fmt.Errorf("invalid stored ID: %q", storedID)
	}

	dir := s.areaDir(area)
	path := filepath.Join(dir, storedID)

	if !strings.HasPrefix(path, dir+string(filepath.Separator)) {
		return "", fmt.Errorf("stored ID escapes area directory")
	}

	return path, nil
}
