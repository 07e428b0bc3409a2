package models

import (
	"fmt"
	"path/filepath"
)

// StoredIDSuffix terminates every stored identifier.
const StoredIDSuffix = ".enc"

// Record describes one encrypted file in the vault. The salt is
// duplicated here and in the blob prefix; a correct store keeps both
// in agreement.
type Record struct {
	OwnerID      string `json:"user_id"`
	OriginalName string `json:"original_name"`
	Salt         []byte `json:"salt"`
}

// OwnedBy reports whether the record belongs to the given user.
func (r Record) OwnedBy(userID string) bool {
	return r.OwnerID == userID
}

// RecordSet is the full metadata document, keyed by stored ID.
type RecordSet map[string]Record

// OwnedIDs returns the stored IDs belonging to a user.
func (rs RecordSet) OwnedIDs(userID string) []string {
	ids := make([]string, 0, len(rs))
	for id, rec := range rs {
		if rec.OwnedBy(userID) {
			ids = append(ids, id)
		}
	}
	return ids
}

// StoredID derives the opaque identifier for a user's file. The same
// (user, filename) pair always maps to the same ID, so re-locking a
// file overwrites the previous record.
func StoredID(userID, originalName string) string {
	return fmt.Sprintf("%s_%s%s", userID, filepath.Base(originalName), StoredIDSuffix)
}
