package metadata

import (
	"sync"

	"github.com/cosmicvault/locker/internal/models"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	records models.RecordSet

	// FailLoad forces Load to report corruption.
	FailLoad bool

	// FailSave forces Save to fail with this error.
	FailSave error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: models.RecordSet{}}
}

// Load returns a copy of the current document.
func (s *MemoryStore) Load() (models.RecordSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailLoad {
		return nil, models.ErrStoreCorrupt
	}

	out := make(models.RecordSet, len(s.records))
	for id, rec := range s.records {
		out[id] = rec
	}
	return out, nil
}

// Save replaces the document.
func (s *MemoryStore) Save(records models.RecordSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSave != nil {
		return s.FailSave
	}

	out := make(models.RecordSet, len(records))
	for id, rec := range records {
		out[id] = rec
	}
	s.records = out
	return nil
}

// Close releases resources.
func (s *MemoryStore) Close() error {
	return nil
}
