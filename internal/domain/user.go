package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role distinguishes coaches from the clients they train.
type Role string

const (
	RoleTrainer Role = "trainer"
	RoleClient  Role = "client"
)

// User is either a Trainer (coach) or a Client.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // never serialized
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Trainer only: clients on this trainer's roster.
	ClientIDs []primitive.ObjectID `bson:"clientIds,omitempty" json:"clientIds,omitempty"`

	// Client only: the trainer coaching this client.
	TrainerID *primitive.ObjectID `bson:"trainerId,omitempty" json:"trainerId,omitempty"`
}

func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// IsCoachedBy reports whether trainerID is this client's trainer.
func (u *User) IsCoachedBy(trainerID primitive.ObjectID) bool {
	return u.IsClient() && u.TrainerID != nil && *u.TrainerID == trainerID
}
