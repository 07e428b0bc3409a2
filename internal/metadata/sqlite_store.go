package metadata

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cosmicvault/locker/internal/events"
	"github.com/cosmicvault/locker/internal/models"
)

// SQLiteStore implements Store on an embedded SQLite database. It keeps
// the full-document contract of the JSON store but gets atomic rewrites
// from transactions instead of file renames.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore creates a SQLite metadata store.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_metadata_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the schema.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS vault_files (
        stored_id TEXT PRIMARY KEY,
        owner_id TEXT NOT NULL,
        original_name TEXT NOT NULL,
        salt BLOB NOT NULL,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_vault_files_owner ON vault_files(owner_id);

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `

	if _, err := s.db.Exec(schema, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Load reads all records.
func (s *SQLiteStore) Load() (models.RecordSet, error) {
	rows, err := s.db.Query(`
        SELECT stored_id, owner_id, original_name, salt
        FROM vault_files
    `)
	if err != nil {
		s.logger.WithError(err).Error("Failed to query metadata")
		return nil, models.ErrStoreCorrupt
	}
	defer rows.Close()

	records := models.RecordSet{}
	for rows.Next() {
		var id string
		var rec models.Record
		if err := rows.Scan(&id, &rec.OwnerID, &rec.OriginalName, &rec.Salt); err != nil {
			s.logger.WithError(err).Error("Failed to scan metadata row")
			return nil, models.ErrStoreCorrupt
		}
		records[id] = rec
	}

	if err := rows.Err(); err != nil {
		return nil, models.ErrStoreCorrupt
	}

	return records, nil
}

// Save rewrites the full document in one transaction.
func (s *SQLiteStore) Save(records models.RecordSet) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM vault_files"); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.Prepare(`
        INSERT INTO vault_files (stored_id, owner_id, original_name, salt)
        VALUES (?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for id, rec := range records {
		if _, err := stmt.Exec(id, rec.OwnerID, rec.OriginalName, rec.Salt); err != nil {
			return fmt.Errorf("insert record %s: %w", id, err)
		}
	}

	s.logger.WithField("records", len(records)).Debug("Saved metadata")

	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
