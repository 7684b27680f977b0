package groups

import (
	"context"
	"net/http"
	"strconv"

	"github.com/studycircle/studycircle/internal/app/features/shared/respond"
	"github.com/studycircle/studycircle/internal/app/store/groups"
	"github.com/studycircle/studycircle/internal/app/system/authz"
	"github.com/studycircle/studycircle/internal/app/system/timeouts"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type listResponse struct {
	Groups []models.Group `json:"groups"`
}

// List handles GET /groups. Query parameters: module (code filter),
// q (name search), public=true (exclude private groups), mine=true
// (only groups the caller belongs to), limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, userID, signedIn := authz.UserCtx(r)

	q := r.URL.Query()
	f := groupstore.ListFilter{
		ModuleCode: q.Get("module"),
		SearchName: q.Get("q"),
		PublicOnly: q.Get("public") == "true",
	}
	if n, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil && n > 0 {
		f.Limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		list []models.Group
		err  error
	)
	if q.Get("mine") == "true" {
		if !signedIn {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		list, err = h.listMine(ctx, userID)
	} else {
		list, err = h.Workflow.Groups().List(ctx, f)
	}
	if err != nil {
		h.Log.Error("group list failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []models.Group{}
	}
	respond.JSON(w, http.StatusOK, listResponse{Groups: list})
}

func (h *Handler) listMine(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	ids, err := h.Workflow.Members().ListGroupIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.Workflow.Groups().ListByIDs(ctx, ids)
}
