package metadata

import (
	"github.com/cosmicvault/locker/internal/models"
)

// Store persists the metadata document mapping stored IDs to records.
// The document is loaded fully on each read and rewritten fully on each
// write; callers must serialize load-modify-save sequences themselves.
type Store interface {
	// Load reads the full document. A corrupt or unreadable store
	// returns models.ErrStoreCorrupt; callers decide whether to
	// degrade to an empty set.
	Load() (models.RecordSet, error)

	// Save rewrites the full document.
	Save(models.RecordSet) error

	// Close releases resources.
	Close() error
}
