package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/examhall/internal/model"
)

const attemptColumns = `id, test_id, student_id, selected_question_ids, answers_json, score, total_points,
	percentage, started_at, completed_at, elapsed_seconds`

func scanAttempt(row rowScanner) (model.Attempt, error) {
	var (
		a       model.Attempt
		idsJSON string
		ansJSON string
	)
	err := row.Scan(&a.ID, &a.TestID, &a.StudentID, &idsJSON, &ansJSON, &a.Score, &a.TotalPoints,
		&a.Percentage, &a.StartedAt, &a.CompletedAt, &a.ElapsedSeconds)
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal([]byte(idsJSON), &a.SelectedQuestionIDs); err != nil {
		return a, fmt.Errorf("decode selected questions of attempt %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(ansJSON), &a.Answers); err != nil {
		return a, fmt.Errorf("decode answers of attempt %s: %w", a.ID, err)
	}
	return a, nil
}

func (s *Store) queryAttempts(ctx context.Context, query string, args ...any) ([]model.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// InsertAttempt stores a new attempt. The (test_id, student_id) uniqueness
// constraint makes this a no-op, reported as false, when the student
// already has an attempt on the test.
func (s *Store) InsertAttempt(ctx context.Context, a model.Attempt) (bool, error) {
	ids, err := json.Marshal(nonNil(a.SelectedQuestionIDs))
	if err != nil {
		return false, fmt.Errorf("encode selected questions: %w", err)
	}
	answers, err := json.Marshal(nonNil(a.Answers))
	if err != nil {
		return false, fmt.Errorf("encode answers: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (`+attemptColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(test_id, student_id) DO NOTHING`,
		a.ID, a.TestID, a.StudentID, string(ids), string(answers), a.Score, a.TotalPoints,
		a.Percentage, a.StartedAt, a.CompletedAt, a.ElapsedSeconds,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteAttempt records the graded result of an in-progress attempt. The
// update only matches while completed_at is NULL and the test is active, so
// of several concurrent completions at most one reports true, and none
// after the test has ended.
func (s *Store) CompleteAttempt(ctx context.Context, a model.Attempt) (bool, error) {
	if a.CompletedAt == nil {
		return false, fmt.Errorf("complete attempt %s: completion time not set", a.ID)
	}
	answers, err := json.Marshal(nonNil(a.Answers))
	if err != nil {
		return false, fmt.Errorf("encode answers: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE attempts
		 SET answers_json = ?, score = ?, total_points = ?, percentage = ?, completed_at = ?, elapsed_seconds = ?
		 WHERE id = ? AND completed_at IS NULL
		   AND EXISTS (SELECT 1 FROM tests WHERE tests.id = attempts.test_id AND tests.is_active = 1)`,
		string(answers), a.Score, a.TotalPoints, a.Percentage, *a.CompletedAt, a.ElapsedSeconds, a.ID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FindAttempt returns the attempt of a student on a test, or nil.
func (s *Store) FindAttempt(ctx context.Context, testID string, studentID int64) (*model.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE test_id = ? AND student_id = ?`, testID, studentID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindCompletedAttempt returns the completed attempt of a student on a test, or nil.
func (s *Store) FindCompletedAttempt(ctx context.Context, testID string, studentID int64) (*model.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE test_id = ? AND student_id = ? AND completed_at IS NOT NULL`, testID, studentID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindAttemptsByTest returns every attempt on a test, most recently started first.
func (s *Store) FindAttemptsByTest(ctx context.Context, testID string) ([]model.Attempt, error) {
	return s.queryAttempts(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE test_id = ? ORDER BY started_at DESC, rowid DESC`, testID)
}

// FindAttemptsByStudent returns every attempt of a student, most recently started first.
func (s *Store) FindAttemptsByStudent(ctx context.Context, studentID int64) ([]model.Attempt, error) {
	return s.queryAttempts(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE student_id = ? ORDER BY started_at DESC, rowid DESC`, studentID)
}

// AttemptCount returns the number of completed attempts.
func (s *Store) AttemptCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE completed_at IS NOT NULL`).Scan(&count)
	return count, err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
