package service

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/events"
	"coachline/fitness-api/internal/metrics"
	"coachline/fitness-api/internal/repository"
	"coachline/fitness-api/internal/tracing"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// errDayTaken aborts the completion transaction when another caller already
// recorded the day. It never leaves the service.
var errDayTaken = errors.New("day completion already recorded")

// AdvanceRequest identifies whose program moves and who finished the day.
// CompletedBy is recorded for audit only; callers authorize before Advance.
type AdvanceRequest struct {
	ClientID        primitive.ObjectID
	CompletedBy     primitive.ObjectID
	CompletedByRole domain.Role
	Notes           string
}

// ProgressionService moves clients through their assigned programs.
type ProgressionService interface {
	// Advance completes the client's current day at most once and moves the
	// assignment to the next day, or finishes it after the last day.
	Advance(ctx context.Context, req AdvanceRequest) AdvanceResult
}

type progressionService struct {
	assignmentRepo repository.ProgramAssignmentRepository
	completionRepo repository.DayCompletionRepository
	programRepo    repository.ProgramRepository
	transactor     repository.Transactor
	publisher      events.Publisher
	logger         *zap.Logger
}

// NewProgressionService creates the advancer. A nil transactor runs the
// writes without a transaction and a nil publisher drops events.
func NewProgressionService(
	assignmentRepo repository.ProgramAssignmentRepository,
	completionRepo repository.DayCompletionRepository,
	programRepo repository.ProgramRepository,
	transactor repository.Transactor,
	publisher events.Publisher,
	logger *zap.Logger,
) ProgressionService {
	if transactor == nil {
		transactor = repository.NoTransaction
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &progressionService{
		assignmentRepo: assignmentRepo,
		completionRepo: completionRepo,
		programRepo:    programRepo,
		transactor:     transactor,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *progressionService) Advance(ctx context.Context, req AdvanceRequest) (result AdvanceResult) {
	ctx, end := tracing.Start(ctx, "ProgressionService.Advance")
	defer end()

	start := time.Now()
	defer func() { s.observe(req, result, time.Since(start)) }()

	if req.ClientID == primitive.NilObjectID || req.CompletedBy == primitive.NilObjectID {
		return internalFailure("client ID and completing user are required", nil)
	}

	assignment, failure := s.currentAssignment(ctx, req.ClientID)
	if failure != nil {
		return failure
	}

	current := assignment.Position()
	if assignment.IsCompleted || assignment.Status == domain.AssignmentCompleted {
		return &ProgramCompleted{
			ProgramAssignmentID: assignment.ID,
			Current:             current,
			Message:             "program already completed",
		}
	}

	done, err := s.completionRepo.Exists(ctx, assignment.ID, current)
	if err != nil {
		return internalFailure("failed to check day completion", err)
	}
	if done {
		return dayAlreadyCompleted(assignment)
	}

	ws, err := s.programRepo.GetWeekStructure(ctx, assignment.ProgramID)
	if err != nil {
		return internalFailure("failed to load program structure", err)
	}
	if !ws.Contains(current) {
		return internalFailure("assignment position is outside the program",
			fmt.Errorf("position %+v, days per week %v", current, ws.DaysPerWeek))
	}
	next, hasNext := ws.Next(current)

	completion := &domain.ProgramDayCompletion{
		ProgramAssignmentID: assignment.ID,
		ClientID:            assignment.ClientID,
		WeekIndex:           current.WeekIndex,
		DayIndex:            current.DayIndex,
		CompletedBy:         req.CompletedBy,
		CompletedByRole:     req.CompletedByRole,
		Notes:               req.Notes,
	}

	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		inserted, err := s.completionRepo.InsertIfAbsent(ctx, completion)
		if err != nil {
			return fmt.Errorf("insert day completion: %w", err)
		}
		if !inserted {
			return errDayTaken
		}
		if hasNext {
			return s.assignmentRepo.AdvancePosition(ctx, assignment.ID, current, next)
		}
		return s.assignmentRepo.MarkCompleted(ctx, assignment.ID, current)
	})
	switch {
	case errors.Is(err, errDayTaken):
		return dayAlreadyCompleted(assignment)
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
		return internalFailure("assignment changed while completing the day", err)
	case err != nil:
		return internalFailure("failed to record day completion", err)
	}

	advanced := &Advanced{
		ProgramAssignmentID: assignment.ID,
		ProgramID:           assignment.ProgramID,
		ProgramName:         assignment.ProgramName,
		Completed:           current,
		Current:             current,
		IsCompleted:         !hasNext,
		CompletionID:        completion.ID,
	}
	if hasNext {
		advanced.Current = next
	}

	s.publish(ctx, assignment, completion, advanced)
	return advanced
}

// currentAssignment returns the active assignment, or the latest one when it
// is completed so repeated calls after the final day report completion.
func (s *progressionService) currentAssignment(ctx context.Context, clientID primitive.ObjectID) (*domain.ProgramAssignment, *Failure) {
	active, err := s.assignmentRepo.GetActiveByClientID(ctx, clientID)
	switch {
	case err == nil:
		return active, nil
	case errors.Is(err, repository.ErrMultipleActive):
		return nil, &Failure{
			Reason:  ReasonMultipleActive,
			Message: "client has more than one active program assignment",
			Err:     err,
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, internalFailure("failed to load active program assignment", err)
	}

	latest, err := s.assignmentRepo.GetLatestByClientID(ctx, clientID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, internalFailure("failed to load program assignment", err)
	}
	if latest == nil || latest.Status != domain.AssignmentCompleted {
		return nil, &Failure{
			Reason:  ReasonNoActiveAssignment,
			Message: "no active program assignment for this client",
		}
	}
	return latest, nil
}

func (s *progressionService) publish(ctx context.Context, a *domain.ProgramAssignment, c *domain.ProgramDayCompletion, r *Advanced) {
	evt := events.DayCompleted{
		ProgramAssignmentID: a.ID.Hex(),
		ProgramID:           a.ProgramID.Hex(),
		ProgramName:         a.ProgramName,
		ClientID:            a.ClientID.Hex(),
		TrainerID:           a.TrainerID.Hex(),
		CompletedBy:         c.CompletedBy.Hex(),
		CompletedByRole:     string(c.CompletedByRole),
		WeekIndex:           r.Completed.WeekIndex,
		DayIndex:            r.Completed.DayIndex,
		ProgramCompleted:    r.IsCompleted,
		OccurredAt:          c.CompletedAt,
	}

	keys := []string{events.RoutingDayCompleted}
	if r.IsCompleted {
		keys = append(keys, events.RoutingProgramCompleted)
	}
	for _, key := range keys {
		err := s.publisher.Publish(ctx, key, evt)
		metrics.RecordEventPublished(key, err)
		if err != nil {
			s.logger.Warn("Failed to publish progression event",
				zap.String("routing_key", key),
				zap.String("assignment_id", a.ID.Hex()),
				zap.Error(err),
			)
		}
	}
}

func (s *progressionService) observe(req AdvanceRequest, result AdvanceResult, took time.Duration) {
	fields := []zap.Field{
		zap.String("client_id", req.ClientID.Hex()),
		zap.String("completed_by", req.CompletedBy.Hex()),
		zap.String("status", string(result.Status())),
		zap.Duration("took", took),
	}

	reason := ""
	switch r := result.(type) {
	case *Failure:
		reason = string(r.Reason)
		fields = append(fields, zap.String("reason", reason), zap.Error(r.Err))
		if r.Reason == ReasonNoActiveAssignment {
			s.logger.Info("No program to advance", fields...)
		} else {
			s.logger.Error("Program advance failed", fields...)
		}
	case *Advanced:
		fields = append(fields,
			zap.String("assignment_id", r.ProgramAssignmentID.Hex()),
			zap.Int("completed_week", r.Completed.WeekIndex),
			zap.Int("completed_day", r.Completed.DayIndex),
			zap.Bool("program_completed", r.IsCompleted),
		)
		s.logger.Info("Program advanced", fields...)
	default:
		s.logger.Debug("Program not advanced", fields...)
	}

	metrics.RecordAdvance(string(result.Status()), reason, took)
}

func dayAlreadyCompleted(a *domain.ProgramAssignment) *DayAlreadyCompleted {
	return &DayAlreadyCompleted{
		ProgramAssignmentID: a.ID,
		Current:             a.Position(),
		Message:             "this day is already completed",
	}
}

func internalFailure(message string, err error) *Failure {
	return &Failure{Reason: ReasonInternal, Message: message, Err: err}
}
