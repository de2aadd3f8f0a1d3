package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examhall/internal/model"
)

func intp(v int) *int { return &v }

func answers(sel ...*int) []model.SubmittedAnswer {
	out := make([]model.SubmittedAnswer, len(sel))
	for i, s := range sel {
		out[i] = model.SubmittedAnswer{SelectedOption: s}
	}
	return out
}

func twoQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", Question: "Q1", Options: []string{"a", "b"}, CorrectAnswerIndex: 0, Points: 1},
		{ID: "q2", Question: "Q2", Options: []string{"a", "b", "c"}, CorrectAnswerIndex: 1, Points: 2},
	}
}

func TestGradeScenarios(t *testing.T) {
	tests := []struct {
		name        string
		submitted   []model.SubmittedAnswer
		wantScore   int
		wantTotal   int
		wantPercent float64
		wantCorrect []bool
	}{
		{"full score", answers(intp(0), intp(1)), 3, 3, 100, []bool{true, true}},
		{"unanswered second", answers(intp(0), nil), 1, 3, 100.0 / 3, []bool{true, false}},
		{"out of range first", answers(intp(5), intp(1)), 2, 3, 200.0 / 3, []bool{false, true}},
		{"negative selection", answers(intp(-1), intp(1)), 2, 3, 200.0 / 3, []bool{false, true}},
		{"short submission", answers(intp(0)), 1, 3, 100.0 / 3, []bool{true, false}},
		{"no submission", nil, 0, 3, 0, []bool{false, false}},
		{"extra entries ignored", answers(intp(0), intp(1), intp(2)), 3, 3, 100, []bool{true, true}},
		{"all wrong", answers(intp(1), intp(0)), 0, 3, 0, []bool{false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Grade(twoQuestions(), tt.submitted)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantTotal, got.TotalPoints)
			assert.InDelta(t, tt.wantPercent, got.Percentage, 1e-9)
			require.Len(t, got.Answers, 2)
			for i, want := range tt.wantCorrect {
				assert.Equal(t, want, got.Answers[i].IsCorrect, "answer %d", i)
				if !want {
					assert.Zero(t, got.Answers[i].Points, "answer %d", i)
				}
			}
		})
	}
}

func TestGradeAnswerRecords(t *testing.T) {
	got := Grade(twoQuestions(), answers(intp(5), nil))

	assert.Equal(t, "q1", got.Answers[0].QuestionID)
	require.NotNil(t, got.Answers[0].SelectedOption)
	assert.Equal(t, 5, *got.Answers[0].SelectedOption)

	assert.Equal(t, "q2", got.Answers[1].QuestionID)
	assert.Nil(t, got.Answers[1].SelectedOption)
}

func TestGradeEmptyQuestionSet(t *testing.T) {
	got := Grade(nil, nil)
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, 0, got.TotalPoints)
	assert.Equal(t, 0.0, got.Percentage)
	assert.False(t, math.IsNaN(got.Percentage))
	assert.Empty(t, got.Answers)

	got = Grade([]model.Question{}, answers(intp(0)))
	assert.Equal(t, 0.0, got.Percentage)
}

func TestGradeIsPure(t *testing.T) {
	qs := twoQuestions()
	sub := answers(intp(0), intp(2))

	first := Grade(qs, sub)
	second := Grade(qs, sub)
	assert.Equal(t, first, second)

	// The result must not alias the caller's input.
	*first.Answers[0].SelectedOption = 1
	assert.Equal(t, 0, *sub[0].SelectedOption)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(0, 0))
	assert.Equal(t, 0.0, Percentage(3, 0))
	assert.Equal(t, 50.0, Percentage(1, 2))
	assert.Equal(t, 100.0, Percentage(4, 4))
}
