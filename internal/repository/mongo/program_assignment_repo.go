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

const programAssignmentCollectionName = "program_assignments"

// mongoProgramAssignmentRepository implements repository.ProgramAssignmentRepository
type mongoProgramAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoProgramAssignmentRepository creates a new ProgramAssignment repository backed by MongoDB.
func NewMongoProgramAssignmentRepository(db *mongo.Database) repository.ProgramAssignmentRepository {
	return &mongoProgramAssignmentRepository{
		collection: db.Collection(programAssignmentCollectionName),
	}
}

// Create inserts a new active assignment positioned on the first day.
// The partial unique index on clientId turns a second active assignment
// into repository.ErrDuplicate.
func (r *mongoProgramAssignmentRepository) Create(ctx context.Context, assignment *domain.ProgramAssignment) (primitive.ObjectID, error) {
	if assignment.ClientID == primitive.NilObjectID ||
		assignment.TrainerID == primitive.NilObjectID ||
		assignment.ProgramID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("program assignment requires clientId, trainerId and programId")
	}

	assignment.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	assignment.AssignedAt = now
	assignment.UpdatedAt = now
	// Every assignment starts active on week 0, day 0
	assignment.Status = domain.AssignmentActive
	assignment.CurrentWeekIndex = 0
	assignment.CurrentDayIndex = 0
	assignment.IsCompleted = false

	if _, err := r.collection.InsertOne(ctx, assignment); err != nil {
		if isDuplicateKey(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return assignment.ID, nil
}

// GetByID retrieves an assignment by its ID.
func (r *mongoProgramAssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgramAssignment, error) {
	var assignment domain.ProgramAssignment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment); err != nil {
		return nil, notFound(err)
	}
	return &assignment, nil
}

// GetActiveByClientID fetches up to two active assignments so a broken
// one-active-per-client invariant is reported instead of picking one.
func (r *mongoProgramAssignmentRepository) GetActiveByClientID(ctx context.Context, clientID primitive.ObjectID) (*domain.ProgramAssignment, error) {
	filter := bson.M{"clientId": clientID, "status": domain.AssignmentActive}
	findOptions := options.Find().SetLimit(2) // A second hit is enough to report the problem

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx) // Ensure cursor is closed

	var found []domain.ProgramAssignment
	if err = cursor.All(ctx, &found); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, repository.ErrNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, repository.ErrMultipleActive
	}
}

// GetLatestByClientID returns the client's most recently assigned assignment.
func (r *mongoProgramAssignmentRepository) GetLatestByClientID(ctx context.Context, clientID primitive.ObjectID) (*domain.ProgramAssignment, error) {
	// Any status; the caller decides what a completed or cancelled one means
	filter := bson.M{"clientId": clientID}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "assignedAt", Value: -1}})

	var assignment domain.ProgramAssignment
	if err := r.collection.FindOne(ctx, filter, findOptions).Decode(&assignment); err != nil {
		return nil, notFound(err)
	}
	return &assignment, nil
}

// ListByClientID returns every assignment a client ever had, newest first.
func (r *mongoProgramAssignmentRepository) ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgramAssignment, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "assignedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"clientId": clientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assignments []domain.ProgramAssignment
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// AdvancePosition is a compare-and-set on (currentWeekIndex, currentDayIndex).
func (r *mongoProgramAssignmentRepository) AdvancePosition(ctx context.Context, id primitive.ObjectID, from, to domain.Position) error {
	// Only matches while the assignment is still on the expected day
	filter := positionFilter(id, from)
	update := bson.M{
		"$set": bson.M{
			"currentWeekIndex": to.WeekIndex,
			"currentDayIndex":  to.DayIndex,
			"updatedAt":        time.Now().UTC(),
		},
	}
	return r.updateGuarded(ctx, filter, update)
}

// MarkCompleted freezes the position on the last day and closes the assignment.
func (r *mongoProgramAssignmentRepository) MarkCompleted(ctx context.Context, id primitive.ObjectID, at domain.Position) error {
	now := time.Now().UTC()
	filter := positionFilter(id, at)
	update := bson.M{
		"$set": bson.M{
			"isCompleted": true,
			"status":      domain.AssignmentCompleted,
			"completedAt": now,
			"updatedAt":   now,
		},
	}
	return r.updateGuarded(ctx, filter, update)
}

// Cancel ends an active assignment.
func (r *mongoProgramAssignmentRepository) Cancel(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	// Completed or already cancelled assignments are left alone
	filter := bson.M{"_id": id, "status": domain.AssignmentActive}
	update := bson.M{
		"$set": bson.M{
			"status":      domain.AssignmentCancelled,
			"cancelledAt": now,
			"updatedAt":   now,
		},
	}
	return r.updateGuarded(ctx, filter, update)
}

func positionFilter(id primitive.ObjectID, pos domain.Position) bson.M {
	return bson.M{
		"_id":              id,
		"status":           domain.AssignmentActive,
		"isCompleted":      false,
		"currentWeekIndex": pos.WeekIndex,
		"currentDayIndex":  pos.DayIndex,
	}
}

// updateGuarded applies update and distinguishes a missing document from
// one that no longer matches the guard.
func (r *mongoProgramAssignmentRepository) updateGuarded(ctx context.Context, filter bson.M, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 1 {
		return nil
	}

	// No match: check whether the document exists at all
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": filter["_id"]})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

func programAssignmentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// At most one active assignment per client.
			Keys: bson.D{{Key: "clientId", Value: 1}},
			Options: options.Index().
				SetName("one_active_per_client").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.AssignmentActive}),
		},
		{
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "assignedAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "trainerId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "programId", Value: 1}},
		},
	}
}
