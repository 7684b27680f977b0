// Package catalogue serves the module/major reference data and the
// loader endpoint fed by the offline scrape CLI.
package catalogue

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/studycircle/studycircle/internal/app/features/shared/respond"
	"github.com/studycircle/studycircle/internal/app/store/catalogue"
	"github.com/studycircle/studycircle/internal/app/system/limits"
	"github.com/studycircle/studycircle/internal/app/system/timeouts"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves catalogue reads and the batch loader.
type Handler struct {
	Store *cataloguestore.Store
	Log   *zap.Logger

	// Loader guard: a bearer JWT signed with JWTSecret (issuer-checked)
	// or the X-Admin-Key header matching AdminKey.
	AdminKey  string
	JWTSecret []byte
	JWTIssuer string
}

func NewHandler(store *cataloguestore.Store, adminKey string, jwtSecret []byte, jwtIssuer string, logger *zap.Logger) *Handler {
	return &Handler{
		Store:     store,
		Log:       logger,
		AdminKey:  adminKey,
		JWTSecret: jwtSecret,
		JWTIssuer: jwtIssuer,
	}
}

type modulesResponse struct {
	Modules []models.Module `json:"modules"`
}

// ListModules handles GET /modules. ?major= filters by programme.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var limit int64
	if n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil {
		limit = n
	}
	list, err := h.Store.ListModules(ctx, r.URL.Query().Get("major"), limit)
	if err != nil {
		h.Log.Error("module list failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []models.Module{}
	}
	respond.JSON(w, http.StatusOK, modulesResponse{Modules: list})
}

// GetModule handles GET /modules/{code}.
func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Store.GetModule(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.notFoundOr500(w, err, "module load failed")
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

type majorsResponse struct {
	Majors []models.Major `json:"majors"`
}

// ListMajors handles GET /majors.
func (h *Handler) ListMajors(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Store.ListMajors(ctx)
	if err != nil {
		h.Log.Error("major list failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []models.Major{}
	}
	respond.JSON(w, http.StatusOK, majorsResponse{Majors: list})
}

// GetMajor handles GET /majors/{code}.
func (h *Handler) GetMajor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Store.GetMajor(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.notFoundOr500(w, err, "major load failed")
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

type loadRequest struct {
	Source  string          `json:"source"`
	Modules []models.Module `json:"modules"`
	Majors  []models.Major  `json:"majors"`
}

type loadResponse struct {
	BatchID string `json:"batch_id"`
	Modules int    `json:"modules"`
	Majors  int    `json:"majors"`
}

// Load handles POST /catalogue/load: bulk-upserts the scraped
// catalogue. Guarded by bearer JWT or the admin key header.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	if err := h.authorizeLoader(r); err != nil {
		respond.Error(w, http.StatusUnauthorized, err.Error())
		return
	}

	// Decoded directly rather than through respond.Decode: the batch
	// payload is far larger than the ordinary JSON body cap.
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxCatalogueBodySize)
	var req loadRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if len(req.Modules) == 0 && len(req.Majors) == 0 {
		respond.Error(w, http.StatusUnprocessableEntity, "nothing to load")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	batchID := uuid.NewString()
	if err := h.Store.LoadBatch(ctx, req.Source, batchID, req.Modules, req.Majors); err != nil {
		h.Log.Error("catalogue load failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.Log.Info("catalogue loaded",
		zap.String("batch_id", batchID),
		zap.Int("modules", len(req.Modules)),
		zap.Int("majors", len(req.Majors)))
	respond.JSON(w, http.StatusOK, loadResponse{
		BatchID: batchID,
		Modules: len(req.Modules),
		Majors:  len(req.Majors),
	})
}

// Status handles GET /catalogue/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	meta, err := h.Store.GetMeta(ctx)
	if err != nil {
		if errors.Is(err, cataloguestore.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "catalogue never loaded")
			return
		}
		h.Log.Error("catalogue status failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, meta)
}

func (h *Handler) authorizeLoader(r *http.Request) error {
	if key := r.Header.Get("X-Admin-Key"); key != "" && h.AdminKey != "" {
		if subtle.ConstantTimeCompare([]byte(key), []byte(h.AdminKey)) == 1 {
			return nil
		}
		return errors.New("admin key rejected")
	}

	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" || len(h.JWTSecret) == 0 {
		return errors.New("credentials required")
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return h.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return errors.New("token rejected")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !claims.VerifyIssuer(h.JWTIssuer, true) {
		return errors.New("token rejected")
	}
	return nil
}

func (h *Handler) notFoundOr500(w http.ResponseWriter, err error, logMsg string) {
	if errors.Is(err, cataloguestore.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "not found")
		return
	}
	h.Log.Error(logMsg, zap.Error(err))
	respond.Error(w, http.StatusInternalServerError, "internal error")
}
