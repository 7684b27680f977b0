// Package chat exposes the group chat log: history reads, posting, and
// the live websocket feed.
package chat

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/studycircle/studycircle/internal/app/features/shared/respond"
	"github.com/studycircle/studycircle/internal/app/feed"
	"github.com/studycircle/studycircle/internal/app/policy/grouppolicy"
	"github.com/studycircle/studycircle/internal/app/system/authz"
	"github.com/studycircle/studycircle/internal/app/system/timeouts"
	"github.com/studycircle/studycircle/internal/app/workflow"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 100

// Handler serves chat history and live feeds.
type Handler struct {
	Workflow *workflow.Service
	Hub      *feed.Hub
	Tickets  *feed.TicketIssuer
	DB       *mongo.Database
	Log      *zap.Logger

	upgrader websocket.Upgrader
}

func NewHandler(svc *workflow.Service, hub *feed.Hub, tickets *feed.TicketIssuer, db *mongo.Database, allowedOrigin string, logger *zap.Logger) *Handler {
	return &Handler{
		Workflow: svc,
		Hub:      hub,
		Tickets:  tickets,
		DB:       db,
		Log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

type messagesResponse struct {
	Messages []models.ChatMessage `json:"messages"`
}

// Messages handles GET /chat/groups/{id}/messages. Member-gated.
// ?after=<push-ID> pages forward, ?limit caps the batch.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, ok := parseGroupID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.requireMember(ctx, w, groupID, userID) {
		return
	}

	limit := int64(defaultHistoryLimit)
	if n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && n > 0 {
		limit = n // the store caps oversized pages
	}
	list, err := h.Workflow.Chat().ListByGroup(ctx, groupID, r.URL.Query().Get("after"), limit)
	if err != nil {
		h.Log.Error("chat history failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []models.ChatMessage{}
	}
	respond.JSON(w, http.StatusOK, messagesResponse{Messages: list})
}

type postRequest struct {
	Body string `json:"body"`
}

// Post handles POST /chat/groups/{id}/messages. Membership is
// re-verified inside the workflow on every post.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, ok := parseGroupID(w, r)
	if !ok {
		return
	}

	var req postRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	msg, err := h.Workflow.PostMessage(ctx, groupID, userID, req.Body)
	if err != nil {
		respond.WorkflowError(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, msg)
}

type ticketResponse struct {
	Ticket string `json:"ticket"`
}

// Ticket handles POST /chat/groups/{id}/ticket: exchanges the session
// cookie for a short-lived websocket ticket.
func (h *Handler) Ticket(w http.ResponseWriter, r *http.Request) {
	name, userID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, ok := parseGroupID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if !h.requireMember(ctx, w, groupID, userID) {
		return
	}

	token, err := h.Tickets.Issue(groupID, userID, name)
	if err != nil {
		h.Log.Error("ticket mint failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, ticketResponse{Ticket: token})
}

// Feed handles GET /chat/groups/{id}/ws?ticket=... — the live feed.
// The peer receives the full current log first (key order) and then
// every append; frames it sends are posted as messages.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseGroupID(w, r)
	if !ok {
		return
	}
	_, userID, err := h.Tickets.Redeem(r.URL.Query().Get("ticket"), groupID)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "ticket invalid or expired")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	if !h.requireMember(ctx, w, groupID, userID) {
		cancel()
		return
	}

	// Subscribe before the snapshot read: anything appended during the
	// read also lands in the subscription buffer, and the client
	// de-duplicates by key on replay.
	sub := h.Hub.Subscribe(groupID)
	backlog, err := h.Workflow.Chat().ListByGroup(ctx, groupID, "", 500)
	cancel()
	if err != nil {
		sub.Cancel()
		h.Log.Error("chat snapshot failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Cancel()
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := feed.NewClient(conn, sub, backlog, groupID, userID, h.Workflow.PostMessage, h.Log)
	client.Run(r.Context())
}

// requireMember answers 403/500 and returns false when userID is not a
// member of the group.
func (h *Handler) requireMember(ctx context.Context, w http.ResponseWriter, groupID, userID primitive.ObjectID) bool {
	ok, err := grouppolicy.IsMember(ctx, h.DB, groupID, userID)
	if err != nil {
		h.Log.Error("membership check failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if !ok {
		respond.Error(w, http.StatusForbidden, "members only")
		return false
	}
	return true
}

func parseGroupID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusNotFound, "not found")
		return primitive.NilObjectID, false
	}
	return id, true
}
