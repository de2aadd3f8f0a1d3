package exam

import (
	"context"
	"slices"
	"sync"

	"github.com/pavelanni/examhall/internal/model"
)

type pairKey struct {
	testID    string
	studentID int64
}

// memRepo is an in-memory Repository with the same single-record atomicity
// guarantees as the SQLite store.
type memRepo struct {
	mu       sync.Mutex
	tests    map[string]model.Test
	order    []string
	attempts map[pairKey]model.Attempt

	completeCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{
		tests:    make(map[string]model.Test),
		attempts: make(map[pairKey]model.Attempt),
	}
}

func cloneTest(t model.Test) model.Test {
	t.Questions = slices.Clone(t.Questions)
	for i := range t.Questions {
		t.Questions[i].Options = slices.Clone(t.Questions[i].Options)
	}
	return t
}

func cloneAttempt(a model.Attempt) model.Attempt {
	a.SelectedQuestionIDs = slices.Clone(a.SelectedQuestionIDs)
	a.Answers = slices.Clone(a.Answers)
	return a
}

func (r *memRepo) FindTestByID(_ context.Context, id string) (*model.Test, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tests[id]
	if !ok {
		return nil, nil
	}
	t = cloneTest(t)
	return &t, nil
}

func (r *memRepo) ListTests(_ context.Context) ([]model.Test, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Test
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, cloneTest(r.tests[r.order[i]]))
	}
	return out, nil
}

func (r *memRepo) InsertTest(_ context.Context, t model.Test) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tests[t.ID] = cloneTest(t)
	r.order = append(r.order, t.ID)
	return nil
}

func (r *memRepo) UpdateTestActiveFlag(_ context.Context, id string, active bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tests[id]
	if !ok {
		return false, nil
	}
	t.IsActive = active
	r.tests[id] = t
	return true, nil
}

func (r *memRepo) FindAttempt(_ context.Context, testID string, studentID int64) (*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[pairKey{testID, studentID}]
	if !ok {
		return nil, nil
	}
	a = cloneAttempt(a)
	return &a, nil
}

func (r *memRepo) FindCompletedAttempt(ctx context.Context, testID string, studentID int64) (*model.Attempt, error) {
	a, err := r.FindAttempt(ctx, testID, studentID)
	if err != nil || a == nil || !a.Completed() {
		return nil, err
	}
	return a, nil
}

func (r *memRepo) InsertAttempt(_ context.Context, a model.Attempt) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := pairKey{a.TestID, a.StudentID}
	if _, ok := r.attempts[k]; ok {
		return false, nil
	}
	r.attempts[k] = cloneAttempt(a)
	return true, nil
}

func (r *memRepo) CompleteAttempt(_ context.Context, a model.Attempt) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeCalls++
	k := pairKey{a.TestID, a.StudentID}
	cur, ok := r.attempts[k]
	if !ok || cur.ID != a.ID || cur.Completed() || !r.tests[a.TestID].IsActive {
		return false, nil
	}
	r.attempts[k] = cloneAttempt(a)
	return true, nil
}

func (r *memRepo) FindAttemptsByTest(_ context.Context, testID string) ([]model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Attempt
	for k, a := range r.attempts {
		if k.testID == testID {
			out = append(out, cloneAttempt(a))
		}
	}
	return out, nil
}

func (r *memRepo) FindAttemptsByStudent(_ context.Context, studentID int64) ([]model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Attempt
	for k, a := range r.attempts {
		if k.studentID == studentID {
			out = append(out, cloneAttempt(a))
		}
	}
	return out, nil
}
