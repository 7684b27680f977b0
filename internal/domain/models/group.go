package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a study group for one module.
//
// NOTE:
//   - Member and join-request records are not embedded on Group.
//     They live in the group_members and join_requests collections.
//   - MemberCount is denormalized from group_members and is only ever
//     written together with the membership change that caused it, so
//     it cannot drift from |members|.
//   - Version increments on every membership transition and serves as
//     an optimistic concurrency token.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	ModuleCode  string             `bson:"module_code" json:"module_code"`
	Description string             `bson:"description" json:"description"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`

	MaxMembers  int   `bson:"max_members" json:"max_members"`
	MemberCount int   `bson:"member_count" json:"member_count"`
	IsPrivate   bool  `bson:"is_private" json:"is_private"`
	Version     int64 `bson:"version" json:"version"`

	// Optional meeting/location details supplied at creation.
	Lat             *float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng             *float64 `bson:"lng,omitempty" json:"lng,omitempty"`
	MeetingDate     string   `bson:"meeting_date,omitempty" json:"meeting_date,omitempty"` // ISO date (2006-01-02)
	MeetingTime     string   `bson:"meeting_time,omitempty" json:"meeting_time,omitempty"`
	Recurrence      string   `bson:"recurrence,omitempty" json:"recurrence,omitempty"` // daily|weekly|biweekly|monthly
	LocationDetails string   `bson:"location_details,omitempty" json:"location_details,omitempty"`

	LastActivity time.Time `bson:"last_activity" json:"last_activity"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// IsFull reports whether the group has reached its member capacity.
func (g Group) IsFull() bool {
	return g.MemberCount >= g.MaxMembers
}
