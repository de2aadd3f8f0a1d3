package store

import (
	"context"
	"database/sql"
	"time"
)

// ImportRecord describes a question spreadsheet that was imported from disk.
type ImportRecord struct {
	Path       string
	Hash       string
	TestID     string
	ImportedAt time.Time
}

// GetImportRecord returns the import ledger entry for path, or nil if the
// file was never imported.
func (s *Store) GetImportRecord(ctx context.Context, path string) (*ImportRecord, error) {
	var r ImportRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT path, hash, test_id, imported_at FROM imported_files WHERE path = ?`, path,
	).Scan(&r.Path, &r.Hash, &r.TestID, &r.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SetImportRecord upserts the ledger entry for path.
func (s *Store) SetImportRecord(ctx context.Context, path, hash, testID string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imported_files (path, hash, test_id, imported_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?, test_id = ?, imported_at = ?`,
		path, hash, testID, now, hash, testID, now,
	)
	return err
}
