package vault

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cosmicvault/locker/internal/config"
	"github.com/cosmicvault/locker/internal/crypto"
	"github.com/cosmicvault/locker/internal/events"
	"github.com/cosmicvault/locker/internal/metadata"
	"github.com/cosmicvault/locker/internal/models"
	"github.com/cosmicvault/locker/internal/storage"
)

// Service orchestrates the vault lifecycle: lock, list, retrieve,
// delete, restore. It is the only writer of the metadata document and
// serializes every load-modify-save sequence behind its mutex.
//
// Authorization is the caller's job: the surrounding layer verifies the
// account password before invoking anything here. The service only uses
// the password to derive encryption keys.
type Service struct {
	crypto crypto.Provider
	blobs  storage.BlobStore
	meta   metadata.Store
	logger *events.Logger

	mu sync.RWMutex
}

// NewService creates a vault service from its collaborators.
func NewService(provider crypto.Provider, blobs storage.BlobStore, meta metadata.Store, logger *events.Logger) *Service {
	return &Service{
		crypto: provider,
		blobs:  blobs,
		meta:   meta,
		logger: logger.WithField("service", "vault"),
	}
}

// New builds a fully wired service from configuration. Each config
// gets its own isolated vault instance; nothing is process-global.
func New(cfg *config.Config, logger *events.Logger) (*Service, error) {
	provider, err := crypto.NewProviderWithIterations(cfg.Crypto.Iterations)
	if err != nil {
		return nil, fmt.Errorf("create crypto provider: %w", err)
	}

	blobs, err := storage.NewLocalStore(cfg.Storage.VaultDir, cfg.Storage.RecycleDir, logger)
	if err != nil {
		return nil, fmt.Errorf("create blob store: %w", err)
	}
	blobs.SetMaxFileSize(cfg.Storage.MaxFileSize)

	var meta metadata.Store
	switch cfg.Storage.MetadataBackend {
	case "sqlite":
		meta, err = metadata.NewSQLiteStore(cfg.Storage.MetadataPath, logger)
	default:
		meta, err = metadata.NewJSONStore(cfg.Storage.MetadataPath, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("create metadata store: %w", err)
	}

	return NewService(provider, blobs, meta, logger), nil
}

// Close releases the metadata store.
func (s *Service) Close() error {
	return s.meta.Close()
}

// Lock encrypts data under a key derived from password and files it in
// the vault area as {userID}_{originalName}.enc. Re-locking the same
// name for the same user overwrites the previous record.
func (s *Service) Lock(userID, password string, data []byte, originalName string) (string, error) {
	key, salt, err := s.crypto.DeriveKey(password, nil)
	if err != nil {
		return "", &models.LockError{UserID: userID, Name: originalName, Err: err}
	}

	token, err := s.crypto.Encrypt(data, key)
	if err != nil {
		return "", &models.LockError{UserID: userID, Name: originalName, Err: err}
	}

	baseName := filepath.Base(originalName)
	storedID := models.StoredID(userID, baseName)
	blob := crypto.SealEnvelope(salt, token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.Write(storage.AreaVault, storedID, blob); err != nil {
		return "", &models.LockError{UserID: userID, Name: originalName, Err: err}
	}

	records := s.loadRecords()
	records[storedID] = models.Record{
		OwnerID:      userID,
		OriginalName: baseName,
		Salt:         salt,
	}

	if err := s.meta.Save(records); err != nil {
		// The blob is on disk but unreachable without its record;
		// remove it so the failure leaves no half-locked state.
		_ = s.blobs.Delete(storage.AreaVault, storedID)
		return "", &models.LockError{UserID: userID, Name: originalName, Err: err}
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":   userID,
		"stored_id": storedID,
		"size":      len(data),
	}).Debug("Locked file")

	return storedID, nil
}

// LockPath locks a file from disk and removes the source; the upload is
// consumed once it is safely in the vault.
func (s *Service) LockPath(userID, password, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &models.LockError{UserID: userID, Name: path, Err: err}
	}

	storedID, err := s.Lock(userID, password, data, path)
	if err != nil {
		return "", err
	}

	if err := os.Remove(path); err != nil {
		return "", &models.LockError{UserID: userID, Name: path, Err: err}
	}

	return storedID, nil
}

// List returns the stored IDs owned by userID whose blob currently
// resides in the vault area. Unknown users get an empty list, not an
// error.
func (s *Service) List(userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.loadRecords()

	recycled, err := s.recycledSet()
	if err != nil {
		return nil, err
	}

	ids := []string{}
	for _, id := range records.OwnedIDs(userID) {
		if !recycled[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids, nil
}

// Retrieve decrypts a stored file. An unknown ID and an ownership
// mismatch are both ErrNotFound; a wrong password or tampered blob is
// ErrDecryptionFailed.
func (s *Service) Retrieve(storedID, userID, password string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.loadRecords()

	record, exists := records[storedID]
	if !exists || !record.OwnedBy(userID) {
		return nil, models.ErrNotFound
	}

	present, err := s.blobs.Exists(storage.AreaVault, storedID)
	if err != nil || !present {
		return nil, models.ErrNotFound
	}

	blob, err := s.blobs.Read(storage.AreaVault, storedID)
	if err != nil {
		return nil, models.ErrNotFound
	}

	blobSalt, token, err := crypto.OpenEnvelope(blob)
	if err != nil {
		return nil, models.ErrDecryptionFailed
	}

	if !bytes.Equal(blobSalt, record.Salt) {
		s.logger.WithField("stored_id", storedID).Warn("Blob salt disagrees with metadata")
	}

	key, _, err := s.crypto.DeriveKey(password, record.Salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.crypto.Decrypt(token, key)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id":   userID,
			"stored_id": storedID,
		}).Error("Failed to decrypt file")
		return nil, models.ErrDecryptionFailed
	}

	return plaintext, nil
}

// Delete moves a blob from the vault area to the recycle bin. The
// record is untouched and no re-encryption happens; the password is an
// authorization signal already verified by the caller. Returns false if
// the caller does not own the ID or the blob is not in the vault area.
func (s *Service) Delete(storedID, userID, password string) bool {
	return s.move(storedID, userID, storage.AreaVault)
}

// Restore moves a blob from the recycle bin back to the vault area.
func (s *Service) Restore(storedID, userID, password string) bool {
	return s.move(storedID, userID, storage.AreaRecycle)
}

// ListRecycleBin returns the stored IDs owned by userID whose blob
// resides in the recycle area.
func (s *Service) ListRecycleBin(userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.loadRecords()

	resident, err := s.blobs.List(storage.AreaRecycle)
	if err != nil {
		return nil, err
	}

	ids := []string{}
	for _, id := range resident {
		if record, exists := records[id]; exists && record.OwnedBy(userID) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids, nil
}

// move performs the ownership-checked atomic transfer behind Delete and
// Restore. With exactly two areas, the destination is always the other
// one.
func (s *Service) move(storedID, userID string, from storage.Area) bool {
	to := from.Other()

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.WithFields(map[string]interface{}{
		"user_id":   userID,
		"stored_id": storedID,
		"from":      from.String(),
		"to":        to.String(),
	})

	records := s.loadRecords()

	record, exists := records[storedID]
	if !exists || !record.OwnedBy(userID) {
		log.Error("Unauthorized move attempt")
		return false
	}

	present, err := s.blobs.Exists(from, storedID)
	if err != nil || !present {
		log.Error("Blob not present in source area")
		return false
	}

	if err := s.blobs.Move(storedID, from, to); err != nil {
		log.WithError(err).Error("Failed to move blob")
		return false
	}

	log.Debug("Moved blob")
	return true
}

// loadRecords reads the metadata document, degrading a corrupt store to
// an empty set rather than failing the operation.
func (s *Service) loadRecords() models.RecordSet {
	records, err := s.meta.Load()
	if err != nil {
		if errors.Is(err, models.ErrStoreCorrupt) {
			s.logger.WithError(err).Error("Metadata store corrupt, treating as empty")
		} else {
			s.logger.WithError(err).Error("Failed to load metadata")
		}
		return models.RecordSet{}
	}
	return records
}

// recycledSet returns the IDs currently resident in the recycle area.
func (s *Service) recycledSet() (map[string]bool, error) {
	ids, err := s.blobs.List(storage.AreaRecycle)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
