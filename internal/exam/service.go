// Package exam is the test lifecycle controller: it decides who may create,
// end, read, begin and submit a test, and when.
package exam

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/examhall/internal/grading"
	"github.com/pavelanni/examhall/internal/model"
)

// Service implements test lifecycle operations on top of a Repository.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand overrides the random source used for question sampling.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// WithIDGenerator overrides how test, question and attempt IDs are generated.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// NewService creates a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateTest validates a definition and stores it as an active test.
func (s *Service) CreateTest(ctx context.Context, actor Actor, nt NewTest) (model.Test, error) {
	if err := authorize(actor, CapManageTests); err != nil {
		return model.Test{}, err
	}
	if err := nt.Validate(); err != nil {
		return model.Test{}, err
	}

	now := s.now()
	scheduled := now
	if nt.ScheduledAt != nil {
		scheduled = *nt.ScheduledAt
	}

	t := model.Test{
		ID:                  s.newID(),
		Title:               strings.TrimSpace(nt.Title),
		Description:         nt.Description,
		Branch:              strings.TrimSpace(nt.Branch),
		Duration:            nt.Duration,
		ScheduledAt:         &scheduled,
		QuestionsPerStudent: nt.QuestionsPerStudent,
		CreatedBy:           actor.ID,
		IsActive:            true,
		CreatedAt:           now,
	}
	for _, nq := range nt.Questions {
		points := nq.Points
		if points == 0 {
			points = 1
		}
		t.Questions = append(t.Questions, model.Question{
			ID:                 s.newID(),
			Question:           nq.Question,
			Code:               nq.Code,
			Language:           nq.Language,
			Image:              nq.Image,
			Options:            nq.Options,
			CorrectAnswerIndex: *nq.CorrectAnswerIndex,
			Points:             points,
		})
	}

	if err := s.repo.InsertTest(ctx, t); err != nil {
		return model.Test{}, fmt.Errorf("insert test: %w", err)
	}
	slog.Info("created test", "test_id", t.ID, "title", t.Title, "questions", len(t.Questions), "created_by", actor.ID)
	return t, nil
}

// EndTest moves a test to the ended state. Ending an ended test is a no-op.
func (s *Service) EndTest(ctx context.Context, actor Actor, testID string) (model.Test, error) {
	if err := authorize(actor, CapManageTests); err != nil {
		return model.Test{}, err
	}
	t, err := s.loadTest(ctx, testID)
	if err != nil {
		return model.Test{}, err
	}
	if !t.IsActive {
		return t, nil
	}

	ok, err := s.repo.UpdateTestActiveFlag(ctx, testID, false)
	if err != nil {
		return model.Test{}, fmt.Errorf("end test %s: %w", testID, err)
	}
	if !ok {
		return model.Test{}, fmt.Errorf("%w: test %s", ErrNotFound, testID)
	}
	t.IsActive = false
	slog.Info("ended test", "test_id", testID, "actor", actor.ID)
	return t, nil
}

// RevealTest returns a test for display. Callers without CapViewKey never
// receive correct answer indices. A student opening an active test gets an
// attempt on first access, and sees only the questions recorded for it.
func (s *Service) RevealTest(ctx context.Context, actor Actor, testID string) (model.TestView, error) {
	if err := authorize(actor, CapReadTests); err != nil {
		return model.TestView{}, err
	}
	t, err := s.loadTest(ctx, testID)
	if err != nil {
		return model.TestView{}, err
	}
	if actor.Can(CapViewKey) {
		return toView(t, t.Questions, true), nil
	}

	questions := t.Questions
	if actor.Can(CapTakeTests) {
		var a *model.Attempt
		if t.IsActive {
			started, err := s.attemptFor(ctx, t, actor.ID)
			if err != nil {
				return model.TestView{}, err
			}
			a = &started
		} else if a, err = s.repo.FindAttempt(ctx, testID, actor.ID); err != nil {
			return model.TestView{}, fmt.Errorf("find attempt: %w", err)
		}
		if a != nil {
			questions = presentedQuestions(t, *a)
		}
	}
	return toView(t, questions, false), nil
}

// ListTests returns the tests visible to the actor, newest first. Students
// see tests without a branch and tests of their own branch.
func (s *Service) ListTests(ctx context.Context, actor Actor) ([]model.TestView, error) {
	if err := authorize(actor, CapReadTests); err != nil {
		return nil, err
	}
	tests, err := s.repo.ListTests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}

	withKey := actor.Can(CapViewKey)
	views := make([]model.TestView, 0, len(tests))
	for _, t := range tests {
		if !withKey && t.Branch != "" && !strings.EqualFold(t.Branch, actor.Branch) {
			continue
		}
		views = append(views, toView(t, t.Questions, withKey))
	}
	return views, nil
}

// BeginOrResumeAttempt returns the student's in-progress attempt for a test,
// creating it (and fixing its question subset) on first access.
func (s *Service) BeginOrResumeAttempt(ctx context.Context, actor Actor, testID string) (model.AttemptSession, error) {
	if err := authorize(actor, CapTakeTests); err != nil {
		return model.AttemptSession{}, err
	}
	t, err := s.loadTest(ctx, testID)
	if err != nil {
		return model.AttemptSession{}, err
	}
	if !t.IsActive {
		return model.AttemptSession{}, fmt.Errorf("%w: test %s", ErrTestEnded, testID)
	}

	a, err := s.attemptFor(ctx, t, actor.ID)
	if err != nil {
		return model.AttemptSession{}, err
	}
	if a.Completed() {
		return model.AttemptSession{}, fmt.Errorf("%w: test %s", ErrAlreadyCompleted, testID)
	}

	return model.AttemptSession{
		Attempt: a,
		Test:    toView(t, presentedQuestions(t, a), false),
	}, nil
}

// SubmitAttempt grades a student's answers and records the completed
// attempt. The server applies no time limit of its own: a late submission is
// accepted while the test is active.
func (s *Service) SubmitAttempt(ctx context.Context, actor Actor, testID string, answers []model.SubmittedAnswer, elapsedSeconds int) (model.Attempt, error) {
	if err := authorize(actor, CapTakeTests); err != nil {
		return model.Attempt{}, err
	}
	t, err := s.loadTest(ctx, testID)
	if err != nil {
		return model.Attempt{}, err
	}
	if !t.IsActive {
		return model.Attempt{}, fmt.Errorf("%w: test %s", ErrTestEnded, testID)
	}

	done, err := s.repo.FindCompletedAttempt(ctx, testID, actor.ID)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("find completed attempt: %w", err)
	}
	if done != nil {
		return model.Attempt{}, fmt.Errorf("%w: test %s", ErrAlreadyCompleted, testID)
	}

	a, err := s.attemptFor(ctx, t, actor.ID)
	if err != nil {
		return model.Attempt{}, err
	}
	if a.Completed() {
		return model.Attempt{}, fmt.Errorf("%w: test %s", ErrAlreadyCompleted, testID)
	}

	res := grading.Grade(presentedQuestions(t, a), answers)
	completedAt := s.now()
	a.Answers = res.Answers
	a.Score = res.Score
	a.TotalPoints = res.TotalPoints
	a.Percentage = res.Percentage
	a.CompletedAt = &completedAt
	a.ElapsedSeconds = max(elapsedSeconds, 0)

	// The conditional write is what guarantees a single completion per
	// pair on an active test; the checks above only spare a grading pass.
	ok, err := s.repo.CompleteAttempt(ctx, a)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("complete attempt: %w", err)
	}
	if !ok {
		cur, err := s.loadTest(ctx, testID)
		if err != nil {
			return model.Attempt{}, err
		}
		if !cur.IsActive {
			return model.Attempt{}, fmt.Errorf("%w: test %s", ErrTestEnded, testID)
		}
		return model.Attempt{}, fmt.Errorf("%w: test %s", ErrAlreadyCompleted, testID)
	}

	slog.Info("attempt submitted",
		"test_id", testID,
		"student_id", actor.ID,
		"score", a.Score,
		"total_points", a.TotalPoints,
		"elapsed_seconds", a.ElapsedSeconds,
	)
	return a, nil
}

// ActiveAttempts lists in-progress attempts for a test, most recent first.
func (s *Service) ActiveAttempts(ctx context.Context, actor Actor, testID string) ([]model.Attempt, error) {
	if err := authorize(actor, CapManageTests); err != nil {
		return nil, err
	}
	if _, err := s.loadTest(ctx, testID); err != nil {
		return nil, err
	}
	all, err := s.repo.FindAttemptsByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("find attempts: %w", err)
	}

	active := make([]model.Attempt, 0, len(all))
	for _, a := range all {
		if !a.Completed() {
			active = append(active, a)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].StartedAt.After(active[j].StartedAt)
	})
	return active, nil
}

// StudentAttempt returns one student's attempt on a test together with the
// full test, answer key included.
func (s *Service) StudentAttempt(ctx context.Context, actor Actor, testID string, studentID int64) (model.AttemptDetail, error) {
	if err := authorize(actor, CapManageTests); err != nil {
		return model.AttemptDetail{}, err
	}
	t, err := s.loadTest(ctx, testID)
	if err != nil {
		return model.AttemptDetail{}, err
	}
	a, err := s.repo.FindAttempt(ctx, testID, studentID)
	if err != nil {
		return model.AttemptDetail{}, fmt.Errorf("find attempt: %w", err)
	}
	if a == nil {
		return model.AttemptDetail{}, fmt.Errorf("%w: attempt for student %d on test %s", ErrNotFound, studentID, testID)
	}
	return model.AttemptDetail{Attempt: *a, Test: t}, nil
}

// MyAttempts lists the actor's completed attempts.
func (s *Service) MyAttempts(ctx context.Context, actor Actor) ([]model.Attempt, error) {
	if err := authorize(actor, CapTakeTests); err != nil {
		return nil, err
	}
	all, err := s.repo.FindAttemptsByStudent(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("find attempts: %w", err)
	}
	done := make([]model.Attempt, 0, len(all))
	for _, a := range all {
		if a.Completed() {
			done = append(done, a)
		}
	}
	return done, nil
}

func (s *Service) loadTest(ctx context.Context, testID string) (model.Test, error) {
	t, err := s.repo.FindTestByID(ctx, testID)
	if err != nil {
		return model.Test{}, fmt.Errorf("find test %s: %w", testID, err)
	}
	if t == nil {
		return model.Test{}, fmt.Errorf("%w: test %s", ErrNotFound, testID)
	}
	return *t, nil
}

// attemptFor returns the stored attempt for the pair, creating an
// in-progress one with a freshly sampled question subset if none exists.
func (s *Service) attemptFor(ctx context.Context, t model.Test, studentID int64) (model.Attempt, error) {
	existing, err := s.repo.FindAttempt(ctx, t.ID, studentID)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("find attempt: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}

	a := model.Attempt{
		ID:                  s.newID(),
		TestID:              t.ID,
		StudentID:           studentID,
		SelectedQuestionIDs: s.sample(t),
		StartedAt:           s.now(),
	}
	inserted, err := s.repo.InsertAttempt(ctx, a)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	if inserted {
		slog.Debug("started attempt", "test_id", t.ID, "student_id", studentID, "questions", len(a.SelectedQuestionIDs))
		return a, nil
	}

	// A concurrent request created the attempt first; its subset wins.
	existing, err = s.repo.FindAttempt(ctx, t.ID, studentID)
	if err != nil {
		return model.Attempt{}, fmt.Errorf("find attempt: %w", err)
	}
	if existing == nil {
		return model.Attempt{}, fmt.Errorf("attempt for student %d on test %s not stored", studentID, t.ID)
	}
	return *existing, nil
}

func (s *Service) sample(t model.Test) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sampleQuestionIDs(t, s.rng)
}

func toView(t model.Test, questions []model.Question, withKey bool) model.TestView {
	v := model.TestView{
		ID:                  t.ID,
		Title:               t.Title,
		Description:         t.Description,
		Branch:              t.Branch,
		Questions:           make([]model.QuestionView, 0, len(questions)),
		Duration:            t.Duration,
		ScheduledAt:         t.ScheduledAt,
		QuestionsPerStudent: t.QuestionsPerStudent,
		CreatedBy:           t.CreatedBy,
		IsActive:            t.IsActive,
		CreatedAt:           t.CreatedAt,
	}
	for _, q := range questions {
		qv := model.QuestionView{
			ID:       q.ID,
			Question: q.Question,
			Code:     q.Code,
			Language: q.Language,
			Image:    q.Image,
			Options:  append([]string(nil), q.Options...),
			Points:   q.Points,
		}
		if withKey {
			idx := q.CorrectAnswerIndex
			qv.CorrectAnswerIndex = &idx
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}
