package authz

import (
	"net/http"

	"github.com/studycircle/studycircle/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the signed-in user's name, Mongo ObjectID, and a
// found flag. If no user is present in context or the user ID is
// malformed, it returns "", NilObjectID, false — so ok=true always
// means a valid, authenticated user with a valid ObjectID.
//
// Group-level authority (admin vs member) is never derived from the
// session; callers resolve it against group_members via grouppolicy.
func UserCtx(r *http.Request) (name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "", primitive.NilObjectID, false
	}
	return user.Name, userID, true
}
