package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
)

const (
	errInternalText    = "Internal error"
	errBadRequestText  = "Malformed request body"
	errUnavailableText = "The assistant is unavailable right now"
)

type ResponseError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func sendErr(ctx context.Context, w http.ResponseWriter, code int, err error, msg string) {
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "api error", "error", err, "code", code)
	} else {
		slog.WarnContext(ctx, "api error", "error", err, "code", code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err = json.NewEncoder(w).Encode(ResponseError{Message: msg, Error: err.Error()})
	if err != nil {
		slog.ErrorContext(ctx, "encode error response", "error", err)
	}
}

func sendJSON(ctx context.Context, w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.ErrorContext(ctx, "encode response", "error", err)
	}
}

// sendServiceErr maps a service error onto its HTTP status.
func sendServiceErr(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrValidation):
		sendErr(ctx, w, http.StatusUnprocessableEntity, err, validationText(err))
	case errors.Is(err, entity.ErrUnauthorized):
		sendErr(ctx, w, http.StatusUnauthorized, err, "Session is missing or expired")
	case errors.Is(err, entity.ErrForbidden):
		sendErr(ctx, w, http.StatusForbidden, err, "This screen is not available for your role")
	case errors.Is(err, entity.ErrNotFound):
		sendErr(ctx, w, http.StatusNotFound, err, "Not found")
	case errors.Is(err, entity.ErrConflict):
		sendErr(ctx, w, http.StatusConflict, err, "The request conflicts with the current session")
	case errors.Is(err, entity.ErrState):
		sendErr(ctx, w, http.StatusConflict, err, "The request is not valid in the current state")
	case errors.Is(err, entity.ErrExternalService):
		sendErr(ctx, w, http.StatusServiceUnavailable, err, errUnavailableText)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		sendErr(ctx, w, http.StatusRequestTimeout, err, "Request cancelled")
	default:
		sendErr(ctx, w, http.StatusInternalServerError, err, errInternalText)
	}
}

func validationText(err error) string {
	switch {
	case errors.Is(err, entity.ErrChallengeMismatch):
		return entity.ChallengeMismatchText
	case errors.Is(err, entity.ErrCodeRejected):
		return entity.CodeRejectedText
	case errors.Is(err, entity.ErrCodeIncomplete):
		return "Enter all six digits"
	case errors.Is(err, entity.ErrRoleUnknown):
		return "Unknown role"
	case errors.Is(err, entity.ErrLeadNameEmpty):
		return "Name is required"
	default:
		return "Invalid request"
	}
}
