package groups

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/studycircle/studycircle/internal/app/features/shared/respond"
	"github.com/studycircle/studycircle/internal/app/system/authz"
	"github.com/studycircle/studycircle/internal/app/system/timeouts"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.uber.org/zap"
)

type meetingsResponse struct {
	Meetings []models.Meeting `json:"meetings"`
}

// Meetings handles GET /groups/{id}/meetings.
func (h *Handler) Meetings(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := authz.UserCtx(r); !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Workflow.Meetings().ListByGroup(ctx, groupID)
	if err != nil {
		h.Log.Error("meeting list failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []models.Meeting{}
	}
	respond.JSON(w, http.StatusOK, meetingsResponse{Meetings: list})
}
