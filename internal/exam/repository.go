package exam

import (
	"context"

	"github.com/pavelanni/examhall/internal/model"
)

// Repository is the persistence collaborator of the lifecycle controller.
// Every method must be atomic at the single-record level; no method is
// expected to span a multi-record transaction.
//
// Lookups return (nil, nil) when the record does not exist.
type Repository interface {
	FindTestByID(ctx context.Context, id string) (*model.Test, error)
	ListTests(ctx context.Context) ([]model.Test, error)
	InsertTest(ctx context.Context, t model.Test) error
	// UpdateTestActiveFlag reports false when no test has the given ID.
	UpdateTestActiveFlag(ctx context.Context, id string, active bool) (bool, error)

	// FindAttempt returns the attempt for the pair in any state.
	FindAttempt(ctx context.Context, testID string, studentID int64) (*model.Attempt, error)
	FindCompletedAttempt(ctx context.Context, testID string, studentID int64) (*model.Attempt, error)
	// InsertAttempt stores a new attempt unless one already exists for the
	// (test, student) pair, in which case it reports false and stores nothing.
	InsertAttempt(ctx context.Context, a model.Attempt) (bool, error)
	// CompleteAttempt writes the graded fields and completion time of an
	// in-progress attempt. It reports false, without writing, when the
	// attempt is already completed or its test is no longer active.
	CompleteAttempt(ctx context.Context, a model.Attempt) (bool, error)
	FindAttemptsByTest(ctx context.Context, testID string) ([]model.Attempt, error)
	FindAttemptsByStudent(ctx context.Context, studentID int64) ([]model.Attempt, error)
}
