package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pavelanni/examhall/internal/model"
)

const testColumns = `id, title, description, branch, questions_json, duration, scheduled_at,
	questions_per_student, created_by, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(row rowScanner) (model.Test, error) {
	var (
		t      model.Test
		qjson  string
		perStu sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Branch, &qjson, &t.Duration, &t.ScheduledAt,
		&perStu, &t.CreatedBy, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(qjson), &t.Questions); err != nil {
		return t, fmt.Errorf("decode questions of test %s: %w", t.ID, err)
	}
	if perStu.Valid {
		n := int(perStu.Int64)
		t.QuestionsPerStudent = &n
	}
	return t, nil
}

// InsertTest stores a test with its embedded questions.
func (s *Store) InsertTest(ctx context.Context, t model.Test) error {
	qjson, err := json.Marshal(t.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	var perStu sql.NullInt64
	if t.QuestionsPerStudent != nil {
		perStu = sql.NullInt64{Int64: int64(*t.QuestionsPerStudent), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tests (`+testColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Branch, string(qjson), t.Duration, t.ScheduledAt,
		perStu, t.CreatedBy, t.IsActive, t.CreatedAt,
	)
	if err != nil {
		slog.Error("failed to insert test", "test_id", t.ID, "error", err)
		return err
	}
	return nil
}

// FindTestByID returns a test by ID, or nil if it does not exist.
func (s *Store) FindTestByID(ctx context.Context, id string) (*model.Test, error) {
	t, err := scanTest(s.db.QueryRowContext(ctx, `SELECT `+testColumns+` FROM tests WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTests returns all tests, newest first.
func (s *Store) ListTests(ctx context.Context) ([]model.Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// UpdateTestActiveFlag sets is_active and reports whether the test exists.
func (s *Store) UpdateTestActiveFlag(ctx context.Context, id string, active bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tests SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TestCount returns the number of tests.
func (s *Store) TestCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tests`).Scan(&count)
	return count, err
}
