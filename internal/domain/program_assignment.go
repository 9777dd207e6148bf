package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgramAssignmentStatus tracks the lifecycle of an assigned program.
type ProgramAssignmentStatus string

const (
	AssignmentActive    ProgramAssignmentStatus = "active"
	AssignmentCompleted ProgramAssignmentStatus = "completed" // terminal, last day done
	AssignmentCancelled ProgramAssignmentStatus = "cancelled" // terminal, ended by the trainer
)

// ProgramAssignment is one client's run through a Program. At most one
// assignment per client is active at a time.
type ProgramAssignment struct {
	ID               primitive.ObjectID      `bson:"_id,omitempty" json:"id"`
	ClientID         primitive.ObjectID      `bson:"clientId" json:"clientId"`
	TrainerID        primitive.ObjectID      `bson:"trainerId" json:"trainerId"`
	ProgramID        primitive.ObjectID      `bson:"programId" json:"programId"`
	ProgramName      string                  `bson:"programName" json:"programName"` // denormalized
	Status           ProgramAssignmentStatus `bson:"status" json:"status"`
	CurrentWeekIndex int                     `bson:"currentWeekIndex" json:"currentWeekIndex"`
	CurrentDayIndex  int                     `bson:"currentDayIndex" json:"currentDayIndex"`
	IsCompleted      bool                    `bson:"isCompleted" json:"isCompleted"`
	AssignedAt       time.Time               `bson:"assignedAt" json:"assignedAt"`
	CompletedAt      *time.Time              `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt      *time.Time              `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	UpdatedAt        time.Time               `bson:"updatedAt" json:"updatedAt"`
}

// Position returns the day the client is currently on.
func (a *ProgramAssignment) Position() Position {
	return Position{WeekIndex: a.CurrentWeekIndex, DayIndex: a.CurrentDayIndex}
}

func (a *ProgramAssignment) IsActive() bool {
	return a.Status == AssignmentActive
}
