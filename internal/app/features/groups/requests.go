package groups

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/studycircle/studycircle/internal/app/features/shared/respond"
	"github.com/studycircle/studycircle/internal/app/policy/grouppolicy"
	"github.com/studycircle/studycircle/internal/app/system/authz"
	"github.com/studycircle/studycircle/internal/app/system/timeouts"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type requestJoinRequest struct {
	Message string `json:"message"`
}

// RequestJoin handles POST /groups/{id}/requests (private groups).
func (h *Handler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req requestJoinRequest
	if r.ContentLength > 0 {
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, http.StatusBadRequest, "malformed JSON body")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	jr, err := h.Workflow.RequestJoin(ctx, groupID, userID, req.Message)
	if err != nil {
		respond.WorkflowError(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, jr)
}

type requestsResponse struct {
	Requests []models.JoinRequest `json:"requests"`
}

// ListRequests handles GET /groups/{id}/requests (admin only).
// ?status= filters; default pending.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	_, callerID, ok := authz.UserCtx(r)
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

	isAdmin, err := grouppolicy.IsAdmin(ctx, h.DB, groupID, callerID)
	if err != nil {
		h.Log.Error("admin check failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !isAdmin {
		respond.Error(w, http.StatusForbidden, "forbidden")
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.RequestPending
	}
	list, err := h.Workflow.Requests().ListByGroup(ctx, groupID, status)
	if err != nil {
		h.Log.Error("request list failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []models.JoinRequest{}
	}
	respond.JSON(w, http.StatusOK, requestsResponse{Requests: list})
}

// Accept handles POST /groups/{id}/requests/{reqID}/accept.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, h.Workflow.AcceptRequest)
}

// Decline handles POST /groups/{id}/requests/{reqID}/decline.
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, h.Workflow.DeclineRequest)
}

func (h *Handler) resolveRequest(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, groupID, requestID, callerID primitive.ObjectID) error) {
	_, callerID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	requestID, ok := pathID(w, chi.URLParam(r, "reqID"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := fn(ctx, groupID, requestID, callerID); err != nil {
		respond.WorkflowError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
