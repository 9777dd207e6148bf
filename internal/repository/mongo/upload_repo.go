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

const uploadCollectionName = "uploads"

// mongoUploadRepository implements repository.UploadRepository
type mongoUploadRepository struct {
	collection *mongo.Collection
}

// NewMongoUploadRepository creates a new Upload repository backed by MongoDB.
func NewMongoUploadRepository(db *mongo.Database) repository.UploadRepository {
	return &mongoUploadRepository{
		collection: db.Collection(uploadCollectionName),
	}
}

// Create inserts new upload metadata. One upload per day completion.
func (r *mongoUploadRepository) Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error) {
	// Metadata without its completion, owner or object key is useless
	if upload.DayCompletionID == primitive.NilObjectID ||
		upload.ClientID == primitive.NilObjectID ||
		upload.S3ObjectKey == "" {
		return primitive.NilObjectID, errors.New("upload requires dayCompletionId, clientId, and s3ObjectKey")
	}

	upload.ID = primitive.NewObjectID()
	upload.UploadedAt = time.Now().UTC() // Set upload timestamp

	if _, err := r.collection.InsertOne(ctx, upload); err != nil {
		// The completion already has an upload
		if isDuplicateKey(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return upload.ID, nil
}

// GetByID retrieves upload metadata by its ID.
func (r *mongoUploadRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error) {
	var upload domain.Upload
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&upload); err != nil {
		return nil, notFound(err)
	}
	return &upload, nil
}

// GetByDayCompletionID retrieves the upload linked to a day completion.
func (r *mongoUploadRepository) GetByDayCompletionID(ctx context.Context, completionID primitive.ObjectID) (*domain.Upload, error) {
	var upload domain.Upload
	if err := r.collection.FindOne(ctx, bson.M{"dayCompletionId": completionID}).Decode(&upload); err != nil {
		return nil, notFound(err)
	}
	return &upload, nil
}

func uploadIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// At most one upload per completed day
			Keys:    bson.D{{Key: "dayCompletionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "clientId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "trainerId", Value: 1}},
		},
	}
}
