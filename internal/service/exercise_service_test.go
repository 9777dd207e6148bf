package service

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestExerciseLibraryOwnership(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewExerciseService(store.Exercises())
	owner, other := primitive.NewObjectID(), primitive.NewObjectID()

	if _, err := svc.CreateExercise(ctx, owner, ExerciseInput{}); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("empty name: err = %v, want ErrValidationFailed", err)
	}

	squat, err := svc.CreateExercise(ctx, owner, ExerciseInput{Name: "Back Squat", Difficulty: "Medium"})
	if err != nil {
		t.Fatalf("CreateExercise: %v", err)
	}
	if squat.TrainerID != owner || squat.ID.IsZero() {
		t.Errorf("created = %+v", squat)
	}

	if _, err := svc.GetExerciseByID(ctx, other, squat.ID); !errors.Is(err, ErrExerciseNotFound) {
		t.Errorf("foreign get: err = %v, want ErrExerciseNotFound", err)
	}
	if _, err := svc.UpdateExercise(ctx, other, squat.ID, ExerciseInput{Name: "Mine now"}); !errors.Is(err, ErrExerciseAccessDenied) {
		t.Errorf("foreign update: err = %v, want ErrExerciseAccessDenied", err)
	}
	if err := svc.DeleteExercise(ctx, other, squat.ID); !errors.Is(err, ErrExerciseNotFound) {
		t.Errorf("foreign delete: err = %v, want ErrExerciseNotFound", err)
	}

	updated, err := svc.UpdateExercise(ctx, owner, squat.ID, ExerciseInput{Name: "Front Squat", MuscleGroup: "Legs"})
	if err != nil {
		t.Fatalf("UpdateExercise: %v", err)
	}
	if updated.Name != "Front Squat" || updated.Difficulty != "" {
		t.Errorf("updated = %+v, want every field replaced", updated)
	}

	list, err := svc.GetExercisesByTrainer(ctx, owner)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, %v", list, err)
	}
	if list, _ := svc.GetExercisesByTrainer(ctx, other); len(list) != 0 {
		t.Errorf("other trainer sees %d exercises", len(list))
	}

	if err := svc.DeleteExercise(ctx, owner, squat.ID); err != nil {
		t.Fatalf("DeleteExercise: %v", err)
	}
	if _, err := svc.GetExerciseByID(ctx, owner, squat.ID); !errors.Is(err, ErrExerciseNotFound) {
		t.Errorf("after delete: err = %v, want ErrExerciseNotFound", err)
	}
}
