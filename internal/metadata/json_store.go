package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cosmicvault/locker/internal/events"
	"github.com/cosmicvault/locker/internal/models"
)

// CurrentSchemaVersion for migrations.
const CurrentSchemaVersion = 1

// document wraps the record set with store metadata.
type document struct {
	SchemaVersion int              `json:"schema_version"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Records       models.RecordSet `json:"records"`
	Checksum      string           `json:"checksum,omitempty"`
}

// JSONStore implements Store on a single JSON file. Writes go through a
// temp file and rename; the previous document is kept as a .backup and
// used when the primary fails its checksum.
type JSONStore struct {
	path   string
	logger *events.Logger
}

// NewJSONStore creates a JSON metadata store.
func NewJSONStore(path string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}

	return &JSONStore{
		path:   path,
		logger: logger.WithField("component", "json_metadata_store"),
	}, nil
}

// Load reads the full document. A missing file is an empty set, not an
// error; a corrupt one falls back to the backup before reporting
// models.ErrStoreCorrupt.
func (s *JSONStore) Load() (models.RecordSet, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return models.RecordSet{}, nil
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to read metadata document")
		return nil, models.ErrStoreCorrupt
	}

	records, err := s.decode(data)
	if err == nil {
		return records, nil
	}

	s.logger.WithError(err).Warn("Metadata document corrupt, trying backup")

	if backup, berr := os.ReadFile(s.path + ".backup"); berr == nil {
		if records, derr := s.decode(backup); derr == nil {
			s.logger.Warn("Loaded metadata from backup")
			return records, nil
		}
	}

	return nil, models.ErrStoreCorrupt
}

// Save rewrites the full document atomically.
func (s *JSONStore) Save(records models.RecordSet) error {
	doc := document{
		SchemaVersion: CurrentSchemaVersion,
		UpdatedAt:     time.Now().UTC(),
		Records:       records,
	}

	checksumData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal metadata for checksum: %w", err)
	}
	hash := sha256.Sum256(checksumData)
	doc.Checksum = hex.EncodeToString(hash[:])

	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	s.logger.WithField("records", len(records)).Debug("Saving metadata")

	// Keep the previous document around for corruption recovery.
	if _, err := os.Stat(s.path); err == nil {
		if err := copyFile(s.path, s.path+".backup"); err != nil {
			s.logger.WithError(err).Warn("Failed to create metadata backup")
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if file, err := os.Open(tmpPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename metadata file: %w", err)
	}

	return nil
}

// Close releases resources.
func (s *JSONStore) Close() error {
	return nil
}

// decode parses and checksum-verifies a document.
func (s *JSONStore) decode(data []byte) (models.RecordSet, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	if doc.Checksum != "" {
		verify := document{
			SchemaVersion: doc.SchemaVersion,
			UpdatedAt:     doc.UpdatedAt,
			Records:       doc.Records,
		}
		verifyData, err := json.Marshal(verify)
		if err != nil {
			return nil, fmt.Errorf("marshal for checksum: %w", err)
		}
		hash := sha256.Sum256(verifyData)
		if hex.EncodeToString(hash[:]) != doc.Checksum {
			return nil, fmt.Errorf("checksum mismatch")
		}
	}

	if doc.SchemaVersion != CurrentSchemaVersion {
		s.logger.WithField("version", doc.SchemaVersion).Warn("Metadata schema version mismatch")
	}

	if doc.Records == nil {
		doc.Records = models.RecordSet{}
	}

	return doc.Records, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
