package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an authenticated account. Group membership is not embedded
// here; the group_members collection is the authoritative join.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Faculty      string             `bson:"faculty,omitempty" json:"faculty,omitempty"`
	Department   string             `bson:"department,omitempty" json:"department,omitempty"`
	MajorCode    string             `bson:"major_code,omitempty" json:"major_code,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
