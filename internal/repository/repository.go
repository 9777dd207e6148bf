package repository

import (
	"coachline/fitness-api/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound       = RepositoryError("not found")
	ErrDuplicate      = RepositoryError("duplicate key")
	ErrConflict       = RepositoryError("document changed concurrently")
	ErrMultipleActive = RepositoryError("more than one active program assignment")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddClientIDToTrainer(ctx context.Context, trainerID, clientID primitive.ObjectID) error
	GetClientsByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
	SetTrainerForClient(ctx context.Context, clientID, trainerID primitive.ObjectID) error
}

// ExerciseRepository defines the interface for interacting with exercise data.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Exercise, error)
	CountOwned(ctx context.Context, trainerID primitive.ObjectID, ids []primitive.ObjectID) (int, error)
	Update(ctx context.Context, exercise *domain.Exercise) error
	Delete(ctx context.Context, id primitive.ObjectID, trainerID primitive.ObjectID) error
}

// ProgramRepository stores program templates. Programs are not edited once
// created, so their WeekStructure can be cached.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error)
	ListByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Program, error)
	GetWeekStructure(ctx context.Context, programID primitive.ObjectID) (*domain.WeekStructure, error)
}

// ProgramAssignmentRepository stores clients' runs through programs.
type ProgramAssignmentRepository interface {
	// Create returns ErrDuplicate if the client already has an active assignment.
	Create(ctx context.Context, assignment *domain.ProgramAssignment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgramAssignment, error)
	// GetActiveByClientID returns ErrNotFound when nothing is active and
	// ErrMultipleActive when the one-active-per-client rule is broken.
	GetActiveByClientID(ctx context.Context, clientID primitive.ObjectID) (*domain.ProgramAssignment, error)
	// GetLatestByClientID returns the most recently assigned assignment in any status.
	GetLatestByClientID(ctx context.Context, clientID primitive.ObjectID) (*domain.ProgramAssignment, error)
	ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgramAssignment, error)
	// AdvancePosition moves an active, unfinished assignment from one position
	// to another. It returns ErrConflict if the assignment is no longer at from.
	AdvancePosition(ctx context.Context, id primitive.ObjectID, from, to domain.Position) error
	// MarkCompleted finishes an active assignment sitting at the given position.
	MarkCompleted(ctx context.Context, id primitive.ObjectID, at domain.Position) error
	// Cancel ends an active assignment. It returns ErrConflict if it is not active.
	Cancel(ctx context.Context, id primitive.ObjectID) error
}

// DayCompletionRepository stores the per-day completion log.
type DayCompletionRepository interface {
	Exists(ctx context.Context, assignmentID primitive.ObjectID, pos domain.Position) (bool, error)
	// InsertIfAbsent reports inserted=false, with a nil error, when the day
	// was already recorded.
	InsertIfAbsent(ctx context.Context, completion *domain.ProgramDayCompletion) (inserted bool, err error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgramDayCompletion, error)
	ListByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.ProgramDayCompletion, error)
	SetUpload(ctx context.Context, id, uploadID primitive.ObjectID) error
}

// UploadRepository defines the interface for interacting with upload metadata.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error)
	GetByDayCompletionID(ctx context.Context, completionID primitive.ObjectID) (*domain.Upload, error)
}

// Transactor runs fn atomically when the store supports it. Implementations
// that cannot provide atomicity run fn directly.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactorFunc adapts a function to the Transactor interface.
type TransactorFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func (f TransactorFunc) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// NoTransaction runs fn as-is.
var NoTransaction Transactor = TransactorFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
