package storage

// Area identifies one of the two blob storage locations.
type Area int

const (
	// AreaVault holds blobs for currently locked (active) files.
	AreaVault Area = iota

	// AreaRecycle holds blobs for soft-deleted files pending restore.
	AreaRecycle
)

// String returns the area name used in paths and logs.
func (a Area) String() string {
	switch a {
	case AreaVault:
		return "vault"
	case AreaRecycle:
		return "recycle"
	default:
		return "unknown"
	}
}

// Other returns the opposite area.
func (a Area) Other() Area {
	if a == AreaVault {
		return AreaRecycle
	}
	return AreaVault
}

// BlobStore manages encrypted blobs across the vault and recycle areas.
// A blob lives in exactly one area at a time; Move transfers it with a
// single atomic rename.
type BlobStore interface {
	// Write saves a blob into an area, atomically replacing any
	// previous blob of the same ID.
	Write(area Area, storedID string, data []byte) error

	// Read retrieves a blob's contents.
	Read(area Area, storedID string) ([]byte, error)

	// Exists checks whether a blob is present in an area.
	Exists(area Area, storedID string) (bool, error)

	// List returns the stored IDs currently resident in an area.
	List(area Area) ([]string, error)

	// Move transfers a blob between areas atomically.
	Move(storedID string, from, to Area) error

	// Delete removes a blob from an area.
	Delete(area Area, storedID string) error
}
