package service

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrExerciseNotFound     = errors.New("exercise not found")
	ErrExerciseAccessDenied = errors.New("access denied to modify or delete this exercise")
	ErrValidationFailed     = errors.New("exercise validation failed")
)

// ExerciseInput carries the editable fields of a library exercise.
type ExerciseInput struct {
	Name             string
	Description      string
	MuscleGroup      string
	ExecutionTechnic string
	Applicability    string
	Difficulty       string
	VideoURL         string
}

func (in ExerciseInput) applyTo(e *domain.Exercise) {
	e.Name = in.Name
	e.Description = in.Description
	e.MuscleGroup = in.MuscleGroup
	e.ExecutionTechnic = in.ExecutionTechnic
	e.Applicability = in.Applicability
	e.Difficulty = in.Difficulty
	e.VideoURL = in.VideoURL
}

// ExerciseService manages a trainer's exercise library. Program days
// reference these exercises.
type ExerciseService interface {
	CreateExercise(ctx context.Context, trainerID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error)
	GetExerciseByID(ctx context.Context, trainerID, exerciseID primitive.ObjectID) (*domain.Exercise, error)
	GetExercisesByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Exercise, error)
	UpdateExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error)
	DeleteExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID) error
}

type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
}

func NewExerciseService(exerciseRepo repository.ExerciseRepository) ExerciseService {
	return &exerciseService{exerciseRepo: exerciseRepo}
}

func (s *exerciseService) CreateExercise(ctx context.Context, trainerID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	if in.Name == "" {
		return nil, ErrValidationFailed
	}
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required to create an exercise")
	}

	exercise := &domain.Exercise{TrainerID: trainerID}
	in.applyTo(exercise)

	if _, err := s.exerciseRepo.Create(ctx, exercise); err != nil {
		return nil, err
	}
	return exercise, nil
}

// GetExerciseByID returns an exercise owned by trainerID. Another trainer's
// exercise is reported as not found.
func (s *exerciseService) GetExerciseByID(ctx context.Context, trainerID, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	if exercise.TrainerID != trainerID {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

func (s *exerciseService) GetExercisesByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Exercise, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID cannot be nil")
	}
	return s.exerciseRepo.GetByTrainerID(ctx, trainerID)
}

func (s *exerciseService) UpdateExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	if in.Name == "" {
		return nil, ErrValidationFailed
	}

	existing, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	if existing.TrainerID != trainerID {
		return nil, ErrExerciseAccessDenied
	}

	in.applyTo(existing)
	if err := s.exerciseRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return existing, nil
}

// DeleteExercise relies on the repository filtering by trainerId, so a
// foreign exercise is indistinguishable from a missing one.
func (s *exerciseService) DeleteExercise(ctx context.Context, trainerID, exerciseID primitive.ObjectID) error {
	if err := s.exerciseRepo.Delete(ctx, exerciseID, trainerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}
	return nil
}
