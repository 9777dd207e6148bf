package mongo

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const exerciseCollectionName = "exercises"

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseRepository creates a new Exercise repository backed by MongoDB.
func NewMongoExerciseRepository(db *mongo.Database) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
	}
}

// Create inserts a new exercise into the database.
func (r *mongoExerciseRepository) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	// Basic validation (more in service layer)
	if exercise.Name == "" || exercise.TrainerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("exercise name and trainer ID are required")
	}

	exercise.ID = primitive.NewObjectID() // Generate new ID
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, exercise); err != nil {
		return primitive.NilObjectID, err
	}
	return exercise.ID, nil
}

// GetByID retrieves an exercise by its ID.
func (r *mongoExerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	var exercise domain.Exercise
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&exercise); err != nil {
		return nil, notFound(err)
	}
	return &exercise, nil
}

// GetByTrainerID retrieves all exercises created by a specific trainer, newest first.
func (r *mongoExerciseRepository) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Exercise, error) {
	// Sort by creation date descending so new exercises show first
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"trainerId": trainerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx) // Ensure cursor is closed

	var exercises []domain.Exercise
	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// CountOwned counts how many of ids are exercises owned by trainerID.
func (r *mongoExerciseRepository) CountOwned(ctx context.Context, trainerID primitive.ObjectID, ids []primitive.ObjectID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	// Duplicate IDs in the input collapse in $in, so callers pass distinct IDs
	filter := bson.M{"_id": bson.M{"$in": ids}, "trainerId": trainerID}
	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Update modifies an existing exercise. The owning trainer is never changed here.
func (r *mongoExerciseRepository) Update(ctx context.Context, exercise *domain.Exercise) error {
	if exercise.ID == primitive.NilObjectID {
		return errors.New("exercise ID is required for update")
	}
	if exercise.Name == "" {
		return errors.New("exercise name cannot be empty")
	}

	// Filter by ID and owner so one trainer cannot edit another's exercise
	filter := bson.M{"_id": exercise.ID, "trainerId": exercise.TrainerID}
	update := bson.M{
		"$set": bson.M{ // Only the editable fields; trainerId and createdAt stay as they are
			"name":             exercise.Name,
			"description":      exercise.Description,
			"muscleGroup":      exercise.MuscleGroup,
			"executionTechnic": exercise.ExecutionTechnic,
			"applicability":    exercise.Applicability,
			"difficulty":       exercise.Difficulty,
			"videoUrl":         exercise.VideoURL,
			"updatedAt":        time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound // Not found or not owned by this trainer
	}
	return nil
}

// Delete removes an exercise, ensuring it belongs to the specified trainer.
// A foreign exercise looks the same as a missing one.
func (r *mongoExerciseRepository) Delete(ctx context.Context, id primitive.ObjectID, trainerID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "trainerId": trainerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound // Nothing matched both ID and owner
	}
	return nil
}

func exerciseIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "trainerId", Value: 1}}, // Library listing per trainer
		},
		{
			// Text index for searching by name or description
			Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName("exercise_text_search"),
		},
	}
}
