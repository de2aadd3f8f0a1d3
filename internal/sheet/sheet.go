// Package sheet reads question and student lists from xlsx workbooks and
// writes test results back out.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/examhall/internal/exam"
)

// DefaultLanguage is the code language assumed when a row names none.
const DefaultLanguage = "javascript"

// ErrNoRows is returned when the first sheet has a header but no data.
var ErrNoRows = errors.New("spreadsheet has no data rows")

// table is the first sheet of a workbook keyed by header.
type table struct {
	header map[string]int
	rows   [][]string
}

func readTable(r io.Reader) (*table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	t := &table{header: make(map[string]int)}
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if _, dup := t.header[h]; h != "" && !dup {
			t.header[h] = i
		}
	}
	for _, row := range rows[1:] {
		if !blank(row) {
			t.rows = append(t.rows, row)
		}
	}
	if len(t.rows) == 0 {
		return nil, ErrNoRows
	}
	return t, nil
}

// get returns the first non-empty cell among the given header aliases.
func (t *table) get(row []string, aliases ...string) string {
	for _, a := range aliases {
		i, ok := t.header[a]
		if !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var optionAliases = [][]string{
	{"optionA", "option_a", "Option A"},
	{"optionB", "option_b", "Option B"},
	{"optionC", "option_c", "Option C"},
	{"optionD", "option_d", "Option D"},
}

// ParseQuestions reads questions from the first sheet of an xlsx workbook.
// The correct answer column is 1-based. Empty option cells are dropped, and
// a missing or unparsable correct answer is left nil for validation to
// report.
func ParseQuestions(r io.Reader) ([]exam.NewQuestion, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}

	questions := make([]exam.NewQuestion, 0, len(t.rows))
	for _, row := range t.rows {
		q := exam.NewQuestion{
			Question: t.get(row, "question", "Question"),
			Code:     t.get(row, "code", "Code"),
			Image:    t.get(row, "image", "Image"),
			Language: t.get(row, "language", "Language"),
			Points:   1,
		}
		if q.Language == "" {
			q.Language = DefaultLanguage
		}
		for _, aliases := range optionAliases {
			if opt := t.get(row, aliases...); opt != "" {
				q.Options = append(q.Options, opt)
			}
		}
		if n, err := strconv.Atoi(t.get(row, "correctAnswer", "correct_answer", "Correct Answer")); err == nil {
			idx := n - 1
			q.CorrectAnswerIndex = &idx
		}
		if p, err := strconv.Atoi(t.get(row, "points", "Points")); err == nil && p > 0 {
			q.Points = p
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// StudentRow is one student read from an import workbook.
type StudentRow struct {
	Name      string
	Email     string
	Password  string
	StudentID string
	Branch    string
}

// ParseStudents reads students from the first sheet of an xlsx workbook.
// Rows without an email are skipped.
func ParseStudents(r io.Reader) ([]StudentRow, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}

	students := make([]StudentRow, 0, len(t.rows))
	for _, row := range t.rows {
		s := StudentRow{
			Name:      t.get(row, "name", "Name"),
			Email:     t.get(row, "email", "Email"),
			Password:  t.get(row, "password", "Password"),
			StudentID: t.get(row, "studentId", "student_id", "Student ID"),
			Branch:    t.get(row, "branch", "Branch"),
		}
		if s.Email == "" {
			continue
		}
		students = append(students, s)
	}
	return students, nil
}
