// Package groups exposes the group workflow over HTTP: listing and
// creating groups, joining and leaving, the join-request queue, role
// promotion, deletion, and the meeting calendar.
package groups

import (
	"net/http"

	"github.com/studycircle/studycircle/internal/app/features/shared/respond"
	"github.com/studycircle/studycircle/internal/app/workflow"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature.
// All writes go through the workflow service; the DB handle is only
// used for read-side policy checks.
type Handler struct {
	Workflow *workflow.Service
	DB       *mongo.Database
	Log      *zap.Logger
}

func NewHandler(svc *workflow.Service, db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Workflow: svc, DB: db, Log: logger}
}

// pathID parses the {id}-style chi URL parameter already extracted by
// the caller. A zero return with false means the response is written.
func pathID(w http.ResponseWriter, raw string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "not found")
		return primitive.NilObjectID, false
	}
	return id, true
}
