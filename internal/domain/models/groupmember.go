package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// GroupMember is the authoritative join between users and groups.
// Exactly one document per (group_id, user_id), enforced by a unique
// index; role is a scalar ("admin"|"member").
type GroupMember struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role     string             `bson:"role" json:"role"`
	UserName string             `bson:"user_name" json:"user_name"` // denormalized display name

	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}
