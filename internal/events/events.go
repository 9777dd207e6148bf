// Package events publishes progression events for downstream consumers
// such as the notification service.
package events

import (
	"context"
	"time"
)

// Routing keys on the events exchange.
const (
	RoutingDayCompleted     = "program.day_completed"
	RoutingProgramCompleted = "program.completed"
)

// DayCompleted is emitted once per successfully advanced day.
type DayCompleted struct {
	ProgramAssignmentID string    `json:"programAssignmentId"`
	ProgramID           string    `json:"programId"`
	ProgramName         string    `json:"programName"`
	ClientID            string    `json:"clientId"`
	TrainerID           string    `json:"trainerId"`
	CompletedBy         string    `json:"completedBy"`
	CompletedByRole     string    `json:"completedByRole,omitempty"`
	WeekIndex           int       `json:"weekIndex"`
	DayIndex            int       `json:"dayIndex"`
	ProgramCompleted    bool      `json:"programCompleted"`
	OccurredAt          time.Time `json:"occurredAt"`
}

// Publisher hands events to a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }
