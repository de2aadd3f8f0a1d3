package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer, and every connection to ":memory:" is a
	// separate database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		student_id TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tests (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		questions_json TEXT NOT NULL DEFAULT '[]',
		duration INTEGER NOT NULL,
		scheduled_at DATETIME,
		questions_per_student INTEGER,
		created_by INTEGER NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		test_id TEXT NOT NULL,
		student_id INTEGER NOT NULL,
		selected_question_ids TEXT NOT NULL DEFAULT '[]',
		answers_json TEXT NOT NULL DEFAULT '[]',
		score INTEGER NOT NULL DEFAULT 0,
		total_points INTEGER NOT NULL DEFAULT 0,
		percentage REAL NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		elapsed_seconds INTEGER NOT NULL DEFAULT 0,
		UNIQUE (test_id, student_id),
		FOREIGN KEY (test_id) REFERENCES tests(id)
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_student ON attempts(student_id);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		test_id TEXT NOT NULL DEFAULT '',
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}
