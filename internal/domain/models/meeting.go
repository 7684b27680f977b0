package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recurrence patterns for meeting series.
const (
	RecurDaily    = "daily"
	RecurWeekly   = "weekly"
	RecurBiweekly = "biweekly"
	RecurMonthly  = "monthly"
)

// Meeting is one occurrence of a group's meeting series. Group and
// module metadata are duplicated onto each occurrence so calendar reads
// do not need a join. OriginalMeetingID links every occurrence of a
// series to its first meeting.
type Meeting struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID    primitive.ObjectID `bson:"group_id" json:"group_id"`
	GroupName  string             `bson:"group_name" json:"group_name"`
	ModuleCode string             `bson:"module_code" json:"module_code"`

	StartsOn time.Time `bson:"starts_on" json:"starts_on"` // date of the occurrence (UTC midnight)
	Time     string    `bson:"time,omitempty" json:"time,omitempty"`
	Location string    `bson:"location,omitempty" json:"location,omitempty"`

	Recurrence        string              `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
	OriginalMeetingID *primitive.ObjectID `bson:"original_meeting_id,omitempty" json:"original_meeting_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
