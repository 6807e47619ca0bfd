package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType names the lifecycle event a user is told about.
type NotificationType string

const (
	NotificationInterestReceived NotificationType = "interest_received"
	NotificationInterestAccepted NotificationType = "interest_accepted"
	NotificationInterestDeclined NotificationType = "interest_declined"
	NotificationAccessRevoked    NotificationType = "access_revoked"
)

// Notification is stored in MongoDB (one document per event) and mirrored to
// the Redis recent list and the live WebSocket channel.
type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Type       NotificationType   `bson:"type" json:"type"`
	ActorID    string             `bson:"actor_id" json:"actor_id"`
	InterestID string             `bson:"interest_id,omitempty" json:"interest_id,omitempty"`
	GrantID    string             `bson:"grant_id,omitempty" json:"grant_id,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	Read       bool               `bson:"read" json:"read"`
}
