package exam

import (
	"math/rand/v2"
	"sort"

	"github.com/pavelanni/examhall/internal/model"
)

// sampleQuestionIDs picks the question subset presented to one student.
// With no cap, or a cap not smaller than the question count, every question
// is selected. Otherwise a uniform random subset of the cap's size is drawn.
// The result keeps the test's question order.
func sampleQuestionIDs(t model.Test, rng *rand.Rand) []string {
	n := len(t.Questions)
	k := n
	if t.QuestionsPerStudent != nil && *t.QuestionsPerStudent < n {
		k = *t.QuestionsPerStudent
	}

	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	if k < n {
		positions = rng.Perm(n)[:k]
		sort.Ints(positions)
	}

	ids := make([]string, 0, k)
	for _, p := range positions {
		ids = append(ids, t.Questions[p].ID)
	}
	return ids
}

// presentedQuestions resolves an attempt's recorded question IDs against the
// test. An attempt without recorded IDs is presented every question.
func presentedQuestions(t model.Test, a model.Attempt) []model.Question {
	if len(a.SelectedQuestionIDs) == 0 {
		return t.Questions
	}
	qs := make([]model.Question, 0, len(a.SelectedQuestionIDs))
	for _, id := range a.SelectedQuestionIDs {
		if q, ok := t.QuestionByID(id); ok {
			qs = append(qs, q)
		}
	}
	return qs
}
