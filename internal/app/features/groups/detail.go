package groups

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/studycircle/studycircle/internal/app/features/shared/respond"
	"github.com/studycircle/studycircle/internal/app/policy/grouppolicy"
	"github.com/studycircle/studycircle/internal/app/store/groups"
	"github.com/studycircle/studycircle/internal/app/store/members"
	"github.com/studycircle/studycircle/internal/app/system/authz"
	"github.com/studycircle/studycircle/internal/app/system/timeouts"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.uber.org/zap"
)

type detailResponse struct {
	Group models.Group `json:"group"`

	// Populated only when the caller may see the roster.
	Members []models.GroupMember `json:"members,omitempty"`

	// Caller's relationship to the group.
	IsMember   bool `json:"is_member"`
	IsAdmin    bool `json:"is_admin"`
	HasPending bool `json:"has_pending_request"`
}

// Detail handles GET /groups/{id}. The group document itself is
// visible to any signed-in user; the member roster only to members of
// private groups (and to everyone for public ones).
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Workflow.Groups().GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "not found")
			return
		}
		h.Log.Error("group detail failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := detailResponse{Group: g}

	m, err := h.Workflow.Members().Get(ctx, groupID, userID)
	switch {
	case err == nil:
		resp.IsMember = true
		resp.IsAdmin = m.Role == models.RoleAdmin
	case errors.Is(err, memberstore.ErrNotMember):
		// fallthrough to pending check
	default:
		h.Log.Error("membership check failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !resp.IsMember {
		pending, err := h.Workflow.Requests().HasPending(ctx, groupID, userID)
		if err != nil {
			h.Log.Error("pending check failed", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.HasPending = pending
	}

	canView, err := grouppolicy.CanViewMembers(ctx, h.DB, g, userID)
	if err != nil {
		h.Log.Error("roster policy check failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if canView {
		roster, err := h.Workflow.Members().ListByGroup(ctx, groupID)
		if err != nil {
			h.Log.Error("roster load failed", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.Members = roster
	}

	respond.JSON(w, http.StatusOK, resp)
}
