package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgramDayCompletion records that one day of an assignment was finished.
// (ProgramAssignmentID, WeekIndex, DayIndex) is unique; a second insert for
// the same day is the signal that the day was already completed.
type ProgramDayCompletion struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProgramAssignmentID primitive.ObjectID  `bson:"programAssignmentId" json:"programAssignmentId"`
	ClientID            primitive.ObjectID  `bson:"clientId" json:"clientId"`
	WeekIndex           int                 `bson:"weekIndex" json:"weekIndex"`
	DayIndex            int                 `bson:"dayIndex" json:"dayIndex"`
	CompletedBy         primitive.ObjectID  `bson:"completedBy" json:"completedBy"`
	CompletedByRole     Role                `bson:"completedByRole,omitempty" json:"completedByRole,omitempty"`
	Notes               string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CompletedAt         time.Time           `bson:"completedAt" json:"completedAt"`
	UploadID            *primitive.ObjectID `bson:"uploadId,omitempty" json:"uploadId,omitempty"`
}

func (c *ProgramDayCompletion) Position() Position {
	return Position{WeekIndex: c.WeekIndex, DayIndex: c.DayIndex}
}
