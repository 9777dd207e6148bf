package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upload stores metadata about progress media a client attached to a
// completed program day. The file itself lives in object storage.
type Upload struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DayCompletionID primitive.ObjectID `bson:"dayCompletionId" json:"dayCompletionId"`
	ClientID        primitive.ObjectID `bson:"clientId" json:"clientId"`
	TrainerID       primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	S3ObjectKey     string             `bson:"s3ObjectKey" json:"-"`
	FileName        string             `bson:"fileName" json:"fileName"`
	ContentType     string             `bson:"contentType" json:"contentType"`
	Size            int64              `bson:"size" json:"size"`
	UploadedAt      time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
