package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise is an entry in a trainer's exercise library. Program days
// reference exercises by ID.
type Exercise struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID        primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	Name             string             `bson:"name" json:"name"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	MuscleGroup      string             `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"`           // "Chest", "Legs", ...
	ExecutionTechnic string             `bson:"executionTechnic,omitempty" json:"executionTechnic,omitempty"` // how to perform it
	Applicability    string             `bson:"applicability,omitempty" json:"applicability,omitempty"`       // "Home", "Gym", "Home/Gym"
	Difficulty       string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"`             // "Novice", "Medium", "Advanced"
	VideoURL         string             `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}
