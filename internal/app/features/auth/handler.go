// Package auth exposes account registration, session login/logout, and
// the current-user endpoint.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/studycircle/studycircle/internal/app/features/shared/respond"
	"github.com/studycircle/studycircle/internal/app/store/users"
	sysauth "github.com/studycircle/studycircle/internal/app/system/auth"
	"github.com/studycircle/studycircle/internal/app/system/authz"
	"github.com/studycircle/studycircle/internal/app/system/htmlsanitize"
	"github.com/studycircle/studycircle/internal/app/system/ratelimit"
	"github.com/studycircle/studycircle/internal/app/system/timeouts"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.uber.org/zap"
)

// Handler handles account and session endpoints.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *sysauth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	Log        *zap.Logger
}

func NewHandler(users *userstore.Store, sm *sysauth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sm,
		Limiter:    ratelimit.NewLoginLimiter(),
		Log:        logger,
	}
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Faculty    string `json:"faculty"`
	Department string `json:"department"`
	MajorCode  string `json:"major_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /auth/register. A successful registration also
// signs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	name := htmlsanitize.Plain(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case name == "":
		respond.Error(w, http.StatusUnprocessableEntity, "name is required")
		return
	case email == "" || !strings.Contains(email, "@"):
		respond.Error(w, http.StatusUnprocessableEntity, "a valid email is required")
		return
	case len(req.Password) < 8:
		respond.Error(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Name:       name,
		Email:      email,
		Faculty:    htmlsanitize.Plain(req.Faculty),
		Department: htmlsanitize.Plain(req.Department),
		MajorCode:  strings.ToUpper(strings.TrimSpace(req.MajorCode)),
	}, req.Password)
	if err != nil {
		if errors.Is(err, userstore.ErrEmailTaken) {
			respond.Error(w, http.StatusConflict, "an account with this email already exists")
			return
		}
		h.Log.Error("register failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.signIn(w, r, u); err != nil {
		return
	}
	respond.JSON(w, http.StatusCreated, u)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if allowed, reason := h.Limiter.Check(r, email); !allowed {
		respond.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Authenticate(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, userstore.ErrBadPassword) {
			// Deliberately the same answer for unknown email and
			// wrong password.
			respond.Error(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.Log.Error("login failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.Limiter.ResetEmail(email)
	if err := h.signIn(w, r, u); err != nil {
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("session not cleared", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me. It re-reads the user document so profile
// edits show up without a fresh login.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			respond.Error(w, http.StatusNotFound, "account no longer exists")
			return
		}
		h.Log.Error("load current user failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

type profileRequest struct {
	Faculty    string `json:"faculty"`
	Department string `json:"department"`
	MajorCode  string `json:"major_code"`
}

// UpdateProfile handles PUT /auth/me.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req profileRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.Users.UpdateProfile(ctx, userID,
		htmlsanitize.Plain(req.Faculty),
		htmlsanitize.Plain(req.Department),
		strings.ToUpper(strings.TrimSpace(req.MajorCode)))
	if err != nil {
		h.Log.Error("profile update failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, u models.User) error {
	err := h.SessionMgr.SignIn(w, r, sysauth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.Name,
		Email: u.Email,
	})
	if err != nil {
		h.Log.Error("session not written", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
	return err
}
