// Package analytics summarizes completed attempts. It never writes.
package analytics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/pavelanni/examhall/internal/exam"
	"github.com/pavelanni/examhall/internal/model"
)

// DefaultPassMark is the percentage at or above which an attempt passes.
const DefaultPassMark = 60.0

// RecentLimit is the number of recent attempts shown on the dashboard.
const RecentLimit = 10

// NoBranch is shown for students without a branch.
const NoBranch = "N/A"

// Source is the read side of the store used by analytics.
type Source interface {
	FindTestByID(ctx context.Context, id string) (*model.Test, error)
	ResultRows(ctx context.Context, testID string) ([]model.ResultRow, error)
	RecentAttempts(ctx context.Context, limit int) ([]model.RecentAttempt, error)
	TestCount(ctx context.Context) (int, error)
	StudentCount(ctx context.Context) (int, error)
	AttemptCount(ctx context.Context) (int, error)
}

// Service builds reports from a Source.
type Service struct {
	src      Source
	passMark float64
}

// New creates a Service. A non-positive pass mark selects DefaultPassMark.
func New(src Source, passMark float64) *Service {
	if passMark <= 0 {
		passMark = DefaultPassMark
	}
	return &Service{src: src, passMark: passMark}
}

// PassMark returns the configured pass mark.
func (s *Service) PassMark() float64 {
	return s.passMark
}

// Passed reports whether a percentage meets the pass mark.
func (s *Service) Passed(percentage float64) bool {
	return percentage >= s.passMark
}

// TestReport summarizes the completed attempts of a test, most recent
// first. A non-empty branch restricts the attempts and statistics to that
// branch; AvailableBranches always lists every branch seen on the test.
func (s *Service) TestReport(ctx context.Context, testID, branch string) (*model.TestReport, error) {
	t, err := s.src.FindTestByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("find test %s: %w", testID, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: test %s", exam.ErrNotFound, testID)
	}
	rows, err := s.src.ResultRows(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("result rows for %s: %w", testID, err)
	}

	branches := make([]string, 0)
	for i := range rows {
		if rows[i].Branch == "" {
			rows[i].Branch = NoBranch
			continue
		}
		if !slices.Contains(branches, rows[i].Branch) {
			branches = append(branches, rows[i].Branch)
		}
	}
	slices.Sort(branches)

	branch = strings.TrimSpace(branch)
	filtered := make([]model.ResultRow, 0, len(rows))
	for _, r := range rows {
		if branch == "" || r.Branch == branch {
			filtered = append(filtered, r)
		}
	}
	slices.SortStableFunc(filtered, func(a, b model.ResultRow) int {
		return b.CompletedAt.Compare(a.CompletedAt)
	})

	report := &model.TestReport{
		TestID:            t.ID,
		Title:             t.Title,
		TotalAttempts:     len(filtered),
		PassMark:          s.passMark,
		Attempts:          filtered,
		AvailableBranches: branches,
	}
	if len(filtered) == 0 {
		return report, nil
	}

	var sum float64
	passed := 0
	report.HighestScore = filtered[0].Percentage
	report.LowestScore = filtered[0].Percentage
	for _, r := range filtered {
		sum += r.Percentage
		report.HighestScore = max(report.HighestScore, r.Percentage)
		report.LowestScore = min(report.LowestScore, r.Percentage)
		if s.Passed(r.Percentage) {
			passed++
		}
	}
	n := float64(len(filtered))
	report.AverageScore = sum / n
	report.PassRate = float64(passed) / n * 100
	return report, nil
}

// ByPercentage returns the report rows ordered by percentage, best first.
// Equal percentages keep completion order.
func ByPercentage(rows []model.ResultRow) []model.ResultRow {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b model.ResultRow) int {
		return cmp.Compare(b.Percentage, a.Percentage)
	})
	return out
}

// Dashboard returns platform-wide counts and the most recent completions.
func (s *Service) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	var (
		d   model.Dashboard
		err error
	)
	if d.TotalTests, err = s.src.TestCount(ctx); err != nil {
		return nil, fmt.Errorf("count tests: %w", err)
	}
	if d.TotalStudents, err = s.src.StudentCount(ctx); err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}
	if d.TotalAttempts, err = s.src.AttemptCount(ctx); err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	recent, err := s.src.RecentAttempts(ctx, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	d.RecentAttempts = recent
	if d.RecentAttempts == nil {
		d.RecentAttempts = []model.RecentAttempt{}
	}
	return &d, nil
}
