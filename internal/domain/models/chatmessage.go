package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat message types.
const (
	MessageSystem = "system"
	MessageUser   = "user"
)

// ChatMessage is one entry in a group's append-only chat log.
//
// The _id is a push-ID (see system/pushid): a client-generated key
// whose lexicographic order matches creation order. Key order, not the
// CreatedAt field, is the authoritative ordering of the log.
type ChatMessage struct {
	ID      string             `bson:"_id" json:"id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`
	Type    string             `bson:"type" json:"type"` // "system" | "user"
	Body    string             `bson:"body" json:"body"`

	// Set only for type "user".
	UserID   *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	UserName string              `bson:"user_name,omitempty" json:"user_name,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
