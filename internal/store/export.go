package store

import (
	"context"

	"github.com/pavelanni/examhall/internal/model"
)

// ResultRows returns the completed attempts of a test joined with their
// students. Attempts of deleted students are skipped.
func (s *Store) ResultRows(ctx context.Context, testID string) ([]model.ResultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, u.id, u.name, u.email, u.student_id, u.branch,
		        a.score, a.total_points, a.percentage, a.elapsed_seconds, a.completed_at
		 FROM attempts a
		 JOIN users u ON u.id = a.student_id
		 WHERE a.test_id = ? AND a.completed_at IS NOT NULL
		 ORDER BY a.completed_at, a.rowid`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ResultRow
	for rows.Next() {
		var r model.ResultRow
		if err := rows.Scan(&r.AttemptID, &r.StudentRef, &r.StudentName, &r.StudentEmail, &r.StudentID, &r.Branch,
			&r.Score, &r.TotalPoints, &r.Percentage, &r.ElapsedSeconds, &r.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentAttempts returns the most recently completed attempts across all tests.
func (s *Store) RecentAttempts(ctx context.Context, limit int) ([]model.RecentAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.name, t.title, a.percentage, a.completed_at
		 FROM attempts a
		 JOIN users u ON u.id = a.student_id
		 JOIN tests t ON t.id = a.test_id
		 WHERE a.completed_at IS NOT NULL
		 ORDER BY a.completed_at DESC, a.rowid DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RecentAttempt
	for rows.Next() {
		var r model.RecentAttempt
		if err := rows.Scan(&r.StudentName, &r.TestTitle, &r.Percentage, &r.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
