package model

import (
	"context"
	"encoding/json"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == UserRoleStudent || r == UserRoleAdmin
}

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	StudentID    string    `json:"studentId,omitempty"` // institution roll number
	Branch       string    `json:"branch,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Question is a single multiple-choice question embedded in a Test.
type Question struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	Code               string   `json:"code,omitempty"`
	Language           string   `json:"language,omitempty"`
	Image              string   `json:"image,omitempty"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Points             int      `json:"points"`
}

// Test is an ordered set of questions with an active/ended lifecycle flag.
type Test struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	Branch              string     `json:"branch,omitempty"`
	Questions           []Question `json:"questions"`
	Duration            int        `json:"duration"` // minutes
	ScheduledAt         *time.Time `json:"scheduledAt,omitempty"`
	QuestionsPerStudent *int       `json:"questionsPerStudent,omitempty"`
	CreatedBy           int64      `json:"createdBy"`
	IsActive            bool       `json:"isActive"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// QuestionByID returns the question with the given ID.
func (t Test) QuestionByID(id string) (Question, bool) {
	for _, q := range t.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Answer is the graded response to one question.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption *int   `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
	Points         int    `json:"points"`
}

// SubmittedAnswer is a raw answer as sent by a student, aligned by position
// with the presented questions. A nil SelectedOption means unanswered.
type SubmittedAnswer struct {
	SelectedOption *int `json:"selectedAnswer"`
}

// UnmarshalJSON accepts both "selectedAnswer" and "selectedOption".
func (s *SubmittedAnswer) UnmarshalJSON(data []byte) error {
	var raw struct {
		SelectedAnswer *int `json:"selectedAnswer"`
		SelectedOption *int `json:"selectedOption"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.SelectedOption = raw.SelectedAnswer
	if s.SelectedOption == nil {
		s.SelectedOption = raw.SelectedOption
	}
	return nil
}

// Attempt is one student's in-progress or completed run of a Test.
type Attempt struct {
	ID                  string     `json:"id"`
	TestID              string     `json:"testId"`
	StudentID           int64      `json:"studentId"`
	SelectedQuestionIDs []string   `json:"selectedQuestionIds"`
	Answers             []Answer   `json:"answers"`
	Score               int        `json:"score"`
	TotalPoints         int        `json:"totalPoints"`
	Percentage          float64    `json:"percentage"`
	StartedAt           time.Time  `json:"startedAt"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	ElapsedSeconds      int        `json:"timeSpent"`
}

// Completed reports whether the attempt has been submitted.
func (a Attempt) Completed() bool {
	return a.CompletedAt != nil
}

// QuestionView is a question as returned to a caller. CorrectAnswerIndex is
// nil, and therefore omitted, for student-facing responses.
type QuestionView struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	Code               string   `json:"code,omitempty"`
	Language           string   `json:"language,omitempty"`
	Image              string   `json:"image,omitempty"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
	Points             int      `json:"points"`
}

// TestView is a test as returned to a caller.
type TestView struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Description         string         `json:"description,omitempty"`
	Branch              string         `json:"branch,omitempty"`
	Questions           []QuestionView `json:"questions"`
	Duration            int            `json:"duration"`
	ScheduledAt         *time.Time     `json:"scheduledAt,omitempty"`
	QuestionsPerStudent *int           `json:"questionsPerStudent,omitempty"`
	CreatedBy           int64          `json:"createdBy"`
	IsActive            bool           `json:"isActive"`
	CreatedAt           time.Time      `json:"createdAt"`
}

// AttemptSession is what a student receives when beginning or resuming an
// attempt: the attempt itself and the questions presented to them.
type AttemptSession struct {
	Attempt Attempt  `json:"attempt"`
	Test    TestView `json:"test"`
}

// AttemptDetail pairs an attempt with its student and test for admin review.
type AttemptDetail struct {
	Attempt Attempt `json:"attempt"`
	Student *User   `json:"student,omitempty"`
	Test    Test    `json:"test"`
}
