package groups

import (
	"context"
	"net/http"

	"github.com/studycircle/studycircle/internal/app/features/shared/respond"
	"github.com/studycircle/studycircle/internal/app/system/authz"
	"github.com/studycircle/studycircle/internal/app/system/timeouts"
	"github.com/studycircle/studycircle/internal/app/workflow"
)

type createRequest struct {
	Name        string   `json:"name"`
	ModuleCode  string   `json:"module_code"`
	Description string   `json:"description"`
	MaxMembers  int      `json:"max_members"`
	IsPrivate   bool     `json:"is_private"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`

	MeetingDate     string `json:"meeting_date"`
	MeetingTime     string `json:"meeting_time"`
	Recurrence      string `json:"recurrence"`
	RecurrenceEnd   string `json:"recurrence_end"`
	LocationDetails string `json:"location_details"`
}

// Create handles POST /groups.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	g, err := h.Workflow.CreateGroup(ctx, userID, workflow.CreateGroupInput{
		Name:            req.Name,
		ModuleCode:      req.ModuleCode,
		Description:     req.Description,
		MaxMembers:      req.MaxMembers,
		IsPrivate:       req.IsPrivate,
		Lat:             req.Lat,
		Lng:             req.Lng,
		MeetingDate:     req.MeetingDate,
		MeetingTime:     req.MeetingTime,
		Recurrence:      req.Recurrence,
		RecurrenceEnd:   req.RecurrenceEnd,
		LocationDetails: req.LocationDetails,
	})
	if err != nil {
		respond.WorkflowError(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, g)
}
