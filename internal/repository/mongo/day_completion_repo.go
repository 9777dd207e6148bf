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

const dayCompletionCollectionName = "program_day_completions"

// mongoDayCompletionRepository implements repository.DayCompletionRepository
type mongoDayCompletionRepository struct {
	collection *mongo.Collection
}

// NewMongoDayCompletionRepository creates a new day completion repository.
func NewMongoDayCompletionRepository(db *mongo.Database) repository.DayCompletionRepository {
	return &mongoDayCompletionRepository{
		collection: db.Collection(dayCompletionCollectionName),
	}
}

func dayKey(assignmentID primitive.ObjectID, pos domain.Position) bson.M {
	return bson.M{
		"programAssignmentId": assignmentID,
		"weekIndex":           pos.WeekIndex,
		"dayIndex":            pos.DayIndex,
	}
}

// Exists reports whether a completion is already recorded for the day.
func (r *mongoDayCompletionRepository) Exists(ctx context.Context, assignmentID primitive.ObjectID, pos domain.Position) (bool, error) {
	// Limit 1: we only care whether any row exists
	n, err := r.collection.CountDocuments(ctx, dayKey(assignmentID, pos), options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertIfAbsent inserts the completion. A unique index violation on
// (programAssignmentId, weekIndex, dayIndex) is the expected outcome for the
// losing side of a race and returns inserted=false without an error.
func (r *mongoDayCompletionRepository) InsertIfAbsent(ctx context.Context, completion *domain.ProgramDayCompletion) (bool, error) {
	if completion.ProgramAssignmentID == primitive.NilObjectID || completion.CompletedBy == primitive.NilObjectID {
		return false, errors.New("day completion requires programAssignmentId and completedBy")
	}

	completion.ID = primitive.NewObjectID()
	if completion.CompletedAt.IsZero() { // Callers may stamp the time themselves
		completion.CompletedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, completion); err != nil {
		if isDuplicateKey(err) {
			return false, nil // Someone else recorded this day first
		}
		return false, err
	}
	return true, nil
}

// GetByID retrieves a single completion.
func (r *mongoDayCompletionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgramDayCompletion, error) {
	var completion domain.ProgramDayCompletion
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&completion); err != nil {
		return nil, notFound(err)
	}
	return &completion, nil
}

// ListByAssignmentID returns the completion log of an assignment in program order.
func (r *mongoDayCompletionRepository) ListByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.ProgramDayCompletion, error) {
	// Sort by week, then day, to read like the program itself
	findOptions := options.Find().SetSort(bson.D{{Key: "weekIndex", Value: 1}, {Key: "dayIndex", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"programAssignmentId": assignmentID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx) // Ensure cursor is closed

	var completions []domain.ProgramDayCompletion
	if err = cursor.All(ctx, &completions); err != nil {
		return nil, err
	}
	return completions, nil
}

// SetUpload links progress media to a completion.
func (r *mongoDayCompletionRepository) SetUpload(ctx context.Context, id, uploadID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"uploadId": uploadID}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func dayCompletionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "programAssignmentId", Value: 1},
				{Key: "weekIndex", Value: 1},
				{Key: "dayIndex", Value: 1},
			},
			Options: options.Index().SetName("one_completion_per_day").SetUnique(true),
		},
		{
			// Client history, newest first
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "completedAt", Value: -1}},
		},
	}
}
