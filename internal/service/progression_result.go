package service

import (
	"coachline/fitness-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdvanceStatus names the variant of an AdvanceResult.
type AdvanceStatus string

const (
	StatusError            AdvanceStatus = "error"
	StatusCompleted        AdvanceStatus = "completed"
	StatusAlreadyCompleted AdvanceStatus = "already_completed"
	StatusAdvanced         AdvanceStatus = "advanced"
)

// FailureReason classifies a Failure.
type FailureReason string

const (
	ReasonNoActiveAssignment FailureReason = "no_active_assignment"
	ReasonMultipleActive     FailureReason = "multiple_active_assignments"
	ReasonInternal           FailureReason = "internal"
)

// AdvanceResult is one of *Failure, *ProgramCompleted, *DayAlreadyCompleted
// or *Advanced. The unexported method keeps the set closed.
type AdvanceResult interface {
	Status() AdvanceStatus
	advanceResult()
}

// Failure is returned when nothing could be advanced. Err carries the
// underlying storage error for ReasonInternal.
type Failure struct {
	Reason  FailureReason
	Message string
	Err     error
}

// ProgramCompleted means the program was already finished before the call.
type ProgramCompleted struct {
	ProgramAssignmentID primitive.ObjectID
	Current             domain.Position
	Message             string
}

// DayAlreadyCompleted means the current day was already recorded. No state changed.
type DayAlreadyCompleted struct {
	ProgramAssignmentID primitive.ObjectID
	Current             domain.Position
	Message             string
}

// Advanced reports a recorded completion and the resulting position. When
// IsCompleted is true, Current stays on the last day.
type Advanced struct {
	ProgramAssignmentID primitive.ObjectID
	ProgramID           primitive.ObjectID
	ProgramName         string
	Completed           domain.Position
	Current             domain.Position
	IsCompleted         bool
	CompletionID        primitive.ObjectID
}

func (*Failure) Status() AdvanceStatus             { return StatusError }
func (*ProgramCompleted) Status() AdvanceStatus    { return StatusCompleted }
func (*DayAlreadyCompleted) Status() AdvanceStatus { return StatusAlreadyCompleted }
func (*Advanced) Status() AdvanceStatus            { return StatusAdvanced }

func (*Failure) advanceResult()             {}
func (*ProgramCompleted) advanceResult()    {}
func (*DayAlreadyCompleted) advanceResult() {}
func (*Advanced) advanceResult()            {}

func (f *Failure) Error() string {
	if f.Err != nil {
		return string(f.Reason) + ": " + f.Message + ": " + f.Err.Error()
	}
	return string(f.Reason) + ": " + f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}
