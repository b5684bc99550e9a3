package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"course-enrollment/internal/domain"
)

const (
	codeValidation      = "validation_error"
	codeNotFound        = "not_found"
	codeForbidden       = "forbidden"
	codeStatusBlocked   = "status_blocked"
	codeUnauthenticated = "unauthenticated"
	codeRateLimited     = "rate_limited"
	codeUnavailable     = "unavailable"
	codeInternal        = "internal"
)

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	writeJSON(w, status, errorBody{Error: errorPayload{Code: code, Message: msg, Details: details}})
}

// writeError maps domain errors to the HTTP error envelope and returns the
// status written. Unknown errors are reported as internal without their text.
func writeError(w http.ResponseWriter, err error) int {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeErrorBody(w, http.StatusBadRequest, codeValidation, ve.Message, ve.Details)
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConfirmationRequired):
		writeErrorBody(w, http.StatusBadRequest, codeValidation, "confirm must be true", map[string]any{"confirm": "required"})
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidArgument):
		writeErrorBody(w, http.StatusBadRequest, codeValidation, "invalid request", nil)
		return http.StatusBadRequest
	case errors.Is(err, errUnauthenticated):
		writeErrorBody(w, http.StatusUnauthorized, codeUnauthenticated, "authentication required", nil)
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden), errors.Is(err, domain.ErrForbidden):
		writeErrorBody(w, http.StatusForbidden, codeForbidden, "operation not permitted", nil)
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, codeNotFound, "not found", nil)
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStatusBlocked):
		writeErrorBody(w, http.StatusForbidden, codeStatusBlocked, err.Error(), nil)
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRateLimited):
		writeErrorBody(w, http.StatusTooManyRequests, codeRateLimited, "too many requests", nil)
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrMailboxNotConfigured):
		writeErrorBody(w, http.StatusServiceUnavailable, codeUnavailable, "mailbox is not configured", nil)
		return http.StatusServiceUnavailable
	default:
		writeErrorBody(w, http.StatusInternalServerError, codeInternal, "internal error", nil)
		return http.StatusInternalServerError
	}
}
