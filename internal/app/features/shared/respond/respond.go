// Package respond writes JSON responses and maps workflow errors to
// HTTP statuses. All features answer through it so the error surface
// stays uniform.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/studycircle/studycircle/internal/app/system/limits"
	"github.com/studycircle/studycircle/internal/app/workflow"
	"go.uber.org/zap"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Error writes a JSON error body.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errBody{Error: msg})
}

// WorkflowError maps a workflow error to its status. Unrecognized
// errors are logged and answered with a bare 500; their text never
// reaches the client.
func WorkflowError(w http.ResponseWriter, log *zap.Logger, err error) {
	var ve *workflow.ValidationError
	if errors.As(err, &ve) {
		JSON(w, http.StatusUnprocessableEntity, errBody{Error: ve.Reason, Field: ve.Field})
		return
	}

	switch {
	case errors.Is(err, workflow.ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, workflow.ErrAuthorization):
		Error(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, workflow.ErrCapacity):
		Error(w, http.StatusConflict, "group is full")
	case errors.Is(err, workflow.ErrAlreadyMember):
		Error(w, http.StatusConflict, "already a member")
	case errors.Is(err, workflow.ErrDuplicatePending):
		Error(w, http.StatusConflict, "request already pending")
	case errors.Is(err, workflow.ErrNotPending):
		Error(w, http.StatusConflict, "request already resolved")
	case errors.Is(err, workflow.ErrLastAdmin):
		Error(w, http.StatusConflict, "promote another admin first")
	case errors.Is(err, workflow.ErrPrivateGroup):
		Error(w, http.StatusConflict, "group is private")
	default:
		log.Error("request failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// Decode parses a JSON request body into v. Bodies are capped at
// limits.MaxJSONBodySize; endpoints with bigger payloads (the
// catalogue loader) install their own MaxBytesReader first.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limits.MaxJSONBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
