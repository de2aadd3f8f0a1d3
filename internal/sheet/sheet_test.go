package sheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/examhall/internal/model"
)

// workbook builds an xlsx file whose first sheet holds rows.
func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParseQuestions(t *testing.T) {
	buf := workbook(t, [][]any{
		{"question", "code", "language", "optionA", "optionB", "optionC", "optionD", "correctAnswer", "points"},
		{"What does len return?", "len(s)", "go", "bytes", "runes", "", "", 1, 2},
		{"Pick C", "", "", "a", "b", "c", "d", 3, ""},
		{},
		{"No key", "", "", "x", "y", "", "", "", ""},
	})

	qs, err := ParseQuestions(buf)
	require.NoError(t, err)
	require.Len(t, qs, 3, "blank row skipped")

	q := qs[0]
	assert.Equal(t, "What does len return?", q.Question)
	assert.Equal(t, "len(s)", q.Code)
	assert.Equal(t, "go", q.Language)
	assert.Equal(t, []string{"bytes", "runes"}, q.Options, "empty options dropped")
	require.NotNil(t, q.CorrectAnswerIndex)
	assert.Equal(t, 0, *q.CorrectAnswerIndex, "1-based answer becomes index")
	assert.Equal(t, 2, q.Points)

	q = qs[1]
	assert.Equal(t, DefaultLanguage, q.Language)
	assert.Equal(t, 1, q.Points)
	require.NotNil(t, q.CorrectAnswerIndex)
	assert.Equal(t, 2, *q.CorrectAnswerIndex)

	assert.Nil(t, qs[2].CorrectAnswerIndex, "missing answer key stays nil")
}

func TestParseQuestionsHeaderAliases(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Question", "Option A", "option_b", "Correct Answer", "Points"},
		{"Aliased", "yes", "no", 2, 5},
	})

	qs, err := ParseQuestions(buf)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	q := qs[0]
	assert.Equal(t, "Aliased", q.Question)
	assert.Equal(t, []string{"yes", "no"}, q.Options)
	require.NotNil(t, q.CorrectAnswerIndex)
	assert.Equal(t, 1, *q.CorrectAnswerIndex)
	assert.Equal(t, 5, q.Points)
}

func TestParseQuestionsEmpty(t *testing.T) {
	buf := workbook(t, [][]any{{"question", "optionA"}})
	_, err := ParseQuestions(buf)
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = ParseQuestions(bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)
}

func TestParseStudents(t *testing.T) {
	buf := workbook(t, [][]any{
		{"name", "email", "password", "studentId", "branch"},
		{"Asha", "asha@example.com", "secret1", "CS-001", "CSE"},
		{"No Email", "", "pw", "CS-002", "CSE"},
		{"Ravi", "ravi@example.com", "", "EC-010", "ECE"},
	})

	students, err := ParseStudents(buf)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, StudentRow{Name: "Asha", Email: "asha@example.com", Password: "secret1", StudentID: "CS-001", Branch: "CSE"}, students[0])
	assert.Empty(t, students[1].Password)
	assert.Equal(t, "ECE", students[1].Branch)
}

func TestWriteResults(t *testing.T) {
	done := time.Date(2026, 4, 2, 15, 30, 0, 0, time.Local)
	rows := []model.ResultRow{
		{StudentName: "Asha", StudentEmail: "asha@example.com", StudentID: "CS-001", Branch: "CSE",
			Score: 2, TotalPoints: 3, Percentage: 66.666666, ElapsedSeconds: 150, CompletedAt: done},
		{StudentName: "Ravi", StudentEmail: "ravi@example.com", StudentID: "EC-010", Branch: "ECE",
			Score: 1, TotalPoints: 3, Percentage: 33.333333, ElapsedSeconds: 20, CompletedAt: done},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, rows, func(p float64) bool { return p >= 60 }))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(ResultsSheet)
	require.NoError(t, err)
	require.Len(t, got, 3, "header and two rows")

	assert.Equal(t, "Student Name", got[0][0])
	assert.Equal(t, "Status", got[0][9])
	assert.Equal(t, []string{"Asha", "asha@example.com", "CS-001", "CSE", "2", "3", "66.67%", "3", "2026-04-02 15:30:00", "Pass"}, got[1])
	assert.Equal(t, "33.33%", got[2][6])
	assert.Equal(t, "0", got[2][7])
	assert.Equal(t, "Fail", got[2][9])
}
