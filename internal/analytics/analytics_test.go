package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examhall/internal/exam"
	"github.com/pavelanni/examhall/internal/model"
)

type fakeSource struct {
	test   *model.Test
	rows   []model.ResultRow
	recent []model.RecentAttempt
	err    error
}

func (f *fakeSource) FindTestByID(_ context.Context, id string) (*model.Test, error) {
	if f.test == nil || f.test.ID != id {
		return nil, f.err
	}
	return f.test, f.err
}

func (f *fakeSource) ResultRows(context.Context, string) ([]model.ResultRow, error) {
	out := make([]model.ResultRow, len(f.rows))
	copy(out, f.rows)
	return out, f.err
}

func (f *fakeSource) RecentAttempts(_ context.Context, limit int) ([]model.RecentAttempt, error) {
	if len(f.recent) > limit {
		return f.recent[:limit], f.err
	}
	return f.recent, f.err
}

func (f *fakeSource) TestCount(context.Context) (int, error)    { return 3, f.err }
func (f *fakeSource) StudentCount(context.Context) (int, error) { return 12, f.err }
func (f *fakeSource) AttemptCount(context.Context) (int, error) { return len(f.rows), f.err }

func sampleSource() *fakeSource {
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	return &fakeSource{
		test: &model.Test{ID: "t1", Title: "Data Structures"},
		rows: []model.ResultRow{
			{StudentName: "Asha", Branch: "CSE", Percentage: 80, CompletedAt: base},
			{StudentName: "Ravi", Branch: "ECE", Percentage: 40, CompletedAt: base.Add(time.Minute)},
			{StudentName: "Mira", Branch: "CSE", Percentage: 60, CompletedAt: base.Add(2 * time.Minute)},
			{StudentName: "Dev", Branch: "", Percentage: 100, CompletedAt: base.Add(3 * time.Minute)},
		},
	}
}

func TestTestReport(t *testing.T) {
	svc := New(sampleSource(), 0)

	r, err := svc.TestReport(context.Background(), "t1", "")
	require.NoError(t, err)

	assert.Equal(t, "Data Structures", r.Title)
	assert.Equal(t, 4, r.TotalAttempts)
	assert.InDelta(t, 70.0, r.AverageScore, 1e-9)
	assert.Equal(t, 100.0, r.HighestScore)
	assert.Equal(t, 40.0, r.LowestScore)
	assert.InDelta(t, 75.0, r.PassRate, 1e-9, "60 is a pass at the default mark")
	assert.Equal(t, DefaultPassMark, r.PassMark)
	assert.Equal(t, []string{"CSE", "ECE"}, r.AvailableBranches)

	require.Len(t, r.Attempts, 4)
	assert.Equal(t, "Dev", r.Attempts[0].StudentName, "most recent completion first")
	assert.Equal(t, NoBranch, r.Attempts[0].Branch)
}

func TestTestReportBranchFilter(t *testing.T) {
	svc := New(sampleSource(), 0)

	r, err := svc.TestReport(context.Background(), "t1", "CSE")
	require.NoError(t, err)

	assert.Equal(t, 2, r.TotalAttempts)
	assert.InDelta(t, 70.0, r.AverageScore, 1e-9)
	assert.Equal(t, 80.0, r.HighestScore)
	assert.Equal(t, 60.0, r.LowestScore)
	assert.InDelta(t, 100.0, r.PassRate, 1e-9)
	assert.Equal(t, []string{"CSE", "ECE"}, r.AvailableBranches, "branches are listed regardless of filter")
	for _, row := range r.Attempts {
		assert.Equal(t, "CSE", row.Branch)
	}
}

func TestTestReportEmpty(t *testing.T) {
	src := sampleSource()
	src.rows = nil
	svc := New(src, 50)

	r, err := svc.TestReport(context.Background(), "t1", "")
	require.NoError(t, err)

	assert.Zero(t, r.TotalAttempts)
	assert.Zero(t, r.AverageScore)
	assert.Zero(t, r.PassRate)
	assert.Equal(t, 50.0, r.PassMark)
	assert.NotNil(t, r.Attempts)
	assert.NotNil(t, r.AvailableBranches)
}

func TestTestReportCustomPassMark(t *testing.T) {
	svc := New(sampleSource(), 80)

	r, err := svc.TestReport(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, r.PassRate, 1e-9)
	assert.True(t, svc.Passed(80))
	assert.False(t, svc.Passed(79.99))
}

func TestTestReportErrors(t *testing.T) {
	svc := New(sampleSource(), 0)
	_, err := svc.TestReport(context.Background(), "missing", "")
	assert.ErrorIs(t, err, exam.ErrNotFound)

	boom := errors.New("disk on fire")
	src := sampleSource()
	src.err = boom
	_, err = New(src, 0).TestReport(context.Background(), "t1", "")
	assert.ErrorIs(t, err, boom)
}

func TestByPercentage(t *testing.T) {
	rows := sampleSource().rows
	sorted := ByPercentage(rows)

	require.Len(t, sorted, 4)
	assert.Equal(t, []float64{100, 80, 60, 40},
		[]float64{sorted[0].Percentage, sorted[1].Percentage, sorted[2].Percentage, sorted[3].Percentage})
	assert.Equal(t, "Asha", rows[0].StudentName, "input is not reordered")
}

func TestDashboard(t *testing.T) {
	src := sampleSource()
	for i := range 15 {
		src.recent = append(src.recent, model.RecentAttempt{StudentName: "s", TestTitle: "t", Percentage: float64(i)})
	}

	d, err := New(src, 0).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, d.TotalTests)
	assert.Equal(t, 12, d.TotalStudents)
	assert.Equal(t, 4, d.TotalAttempts)
	assert.Len(t, d.RecentAttempts, RecentLimit)

	src.recent = nil
	d, err = New(src, 0).Dashboard(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, d.RecentAttempts)
}
