package groups

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/studycircle/studycircle/internal/app/features/shared/respond"
	"github.com/studycircle/studycircle/internal/app/system/authz"
	"github.com/studycircle/studycircle/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Join handles POST /groups/{id}/join (public groups only).
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, h.Workflow.JoinPublic)
}

// Leave handles POST /groups/{id}/leave.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, h.Workflow.LeaveGroup)
}

// Delete handles DELETE /groups/{id} (admin only).
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, func(ctx context.Context, groupID, callerID primitive.ObjectID) error {
		return h.Workflow.DeleteGroup(ctx, groupID, callerID)
	})
}

// Promote handles POST /groups/{id}/members/{userID}/promote (admin
// only).
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	_, callerID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	targetID, ok := pathID(w, chi.URLParam(r, "userID"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Workflow.PromoteMember(ctx, groupID, targetID, callerID); err != nil {
		respond.WorkflowError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// memberAction runs a (groupID, callerID) transition and answers 204.
func (h *Handler) memberAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, groupID, callerID primitive.ObjectID) error) {
	_, callerID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := fn(ctx, groupID, callerID); err != nil {
		respond.WorkflowError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
