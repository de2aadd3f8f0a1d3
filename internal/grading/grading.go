// Package grading scores multiple-choice submissions against an answer key.
//
// Grade is pure: it reads no persistent state and returns the same result
// for the same inputs.
package grading

import "github.com/pavelanni/examhall/internal/model"

// Result is the outcome of grading one submission.
type Result struct {
	Score       int            `json:"score"`
	TotalPoints int            `json:"totalPoints"`
	Percentage  float64        `json:"percentage"`
	Answers     []model.Answer `json:"answers"`
}

// Grade compares submitted answers with the questions' answer key.
//
// Answers are aligned by position with questions. A missing entry or a nil
// selection counts as unanswered; a selection outside the option range is
// incorrect. Entries beyond len(questions) are ignored.
func Grade(questions []model.Question, submitted []model.SubmittedAnswer) Result {
	res := Result{Answers: make([]model.Answer, 0, len(questions))}

	for i, q := range questions {
		var selected *int
		if i < len(submitted) && submitted[i].SelectedOption != nil {
			v := *submitted[i].SelectedOption
			selected = &v
		}

		correct := isCorrect(q, selected)
		points := 0
		if correct {
			points = q.Points
		}

		res.Score += points
		res.TotalPoints += q.Points
		res.Answers = append(res.Answers, model.Answer{
			QuestionID:     q.ID,
			SelectedOption: selected,
			IsCorrect:      correct,
			Points:         points,
		})
	}

	res.Percentage = Percentage(res.Score, res.TotalPoints)
	return res
}

// Percentage returns score/total*100, or 0 when total is not positive.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}

func isCorrect(q model.Question, selected *int) bool {
	if selected == nil {
		return false
	}
	if *selected < 0 || *selected >= len(q.Options) {
		return false
	}
	return *selected == q.CorrectAnswerIndex
}
