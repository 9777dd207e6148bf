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

const programCollectionName = "programs"

// mongoProgramRepository implements repository.ProgramRepository
type mongoProgramRepository struct {
	collection *mongo.Collection
}

// NewMongoProgramRepository creates a new Program repository.
func NewMongoProgramRepository(db *mongo.Database) repository.ProgramRepository {
	return &mongoProgramRepository{
		collection: db.Collection(programCollectionName),
	}
}

// Create inserts a new program after validating its week/day shape.
func (r *mongoProgramRepository) Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error) {
	if program.TrainerID == primitive.NilObjectID || program.Name == "" {
		return primitive.NilObjectID, errors.New("program requires trainerId and name")
	}
	if err := program.Validate(); err != nil {
		return primitive.NilObjectID, err
	}
	program.NormalizeWeekNumbers() // Week labels always read 1..n

	program.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, program); err != nil {
		return primitive.NilObjectID, err
	}
	return program.ID, nil
}

// GetByID retrieves a single program by its ID.
func (r *mongoProgramRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error) {
	var program domain.Program
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&program); err != nil {
		return nil, notFound(err)
	}
	return &program, nil
}

// ListByTrainerID returns a trainer's programs, newest first.
func (r *mongoProgramRepository) ListByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Program, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"trainerId": trainerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx) // Ensure cursor is closed

	var programs []domain.Program
	if err = cursor.All(ctx, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// weekShape is the projection used to read only the day counts of a program.
type weekShape struct {
	Weeks []struct {
		Days []bson.Raw `bson:"days"`
	} `bson:"weeks"`
}

// GetWeekStructure loads the ordered day count of every week without
// decoding exercise prescriptions.
func (r *mongoProgramRepository) GetWeekStructure(ctx context.Context, programID primitive.ObjectID) (*domain.WeekStructure, error) {
	findOptions := options.FindOne().SetProjection(bson.M{"weeks.days.name": 1})

	var shape weekShape
	if err := r.collection.FindOne(ctx, bson.M{"_id": programID}, findOptions).Decode(&shape); err != nil {
		return nil, notFound(err)
	}

	ws := &domain.WeekStructure{ProgramID: programID, DaysPerWeek: make([]int, len(shape.Weeks))}
	for i, w := range shape.Weeks {
		ws.DaysPerWeek[i] = len(w.Days)
	}
	return ws, nil
}

func programIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "trainerId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}
}
