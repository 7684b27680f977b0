// Package grouppolicy answers read-side authorization questions
// against the authoritative group_members collection. Write-side
// checks live in the workflow service; both consult the same
// collection, never session state.
package grouppolicy

import (
	"context"

	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// IsMember reports whether the user holds any role in the group.
func IsMember(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) (bool, error) {
	n, err := db.Collection("group_members").CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsAdmin reports whether the user holds the admin role in the group.
func IsAdmin(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) (bool, error) {
	n, err := db.Collection("group_members").CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"role":     models.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CanViewMembers reports whether the user may see the group's member
// roster and chat: members always, anyone for public groups.
// Returns (false, nil) for "not authorized" and (false, err) only on
// database failure.
func CanViewMembers(ctx context.Context, db *mongo.Database, g models.Group, userID primitive.ObjectID) (bool, error) {
	if !g.IsPrivate {
		return true, nil
	}
	return IsMember(ctx, db, g.ID, userID)
}
