package service

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/repository"
	"context"
	"errors"
	"fmt"
)

// ProgressView is an assignment with enough of its program to render the
// client's position.
type ProgressView struct {
	Assignment    *domain.ProgramAssignment     `json:"assignment"`
	Program       *domain.Program               `json:"program"`
	CurrentDay    *domain.ProgramDay            `json:"currentDay,omitempty"` // nil once the program is finished
	CompletedDays int                           `json:"completedDays"`
	TotalDays     int                           `json:"totalDays"`
	Completions   []domain.ProgramDayCompletion `json:"completions"`
}

func buildProgressView(
	ctx context.Context,
	programRepo repository.ProgramRepository,
	completionRepo repository.DayCompletionRepository,
	assignment *domain.ProgramAssignment,
) (*ProgressView, error) {
	program, err := programRepo.GetByID(ctx, assignment.ProgramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("assignment %s references missing program %s: %w",
				assignment.ID.Hex(), assignment.ProgramID.Hex(), ErrProgramNotFound)
		}
		return nil, err
	}

	completions, err := completionRepo.ListByAssignmentID(ctx, assignment.ID)
	if err != nil {
		return nil, err
	}
	if completions == nil {
		completions = []domain.ProgramDayCompletion{}
	}

	view := &ProgressView{
		Assignment:    assignment,
		Program:       program,
		CompletedDays: len(completions),
		TotalDays:     program.TotalDays(),
		Completions:   completions,
	}
	if assignment.IsActive() && !assignment.IsCompleted {
		view.CurrentDay = program.DayAt(assignment.Position())
	}
	return view, nil
}
