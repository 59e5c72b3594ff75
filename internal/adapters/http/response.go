package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viralforge/affiliate-core/internal/contracts"
	"github.com/viralforge/affiliate-core/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, contracts.SuccessResponse{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, contracts.ErrorResponse{Status: "error", Code: code, Message: message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code, message := mapDomainError(err)
	writeError(w, status, code, message)
}

// mapDomainError checks ErrInvalidLink first because link resolution failures
// wrap the underlying inactive or not-found cause.
func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidLink):
		return http.StatusNotFound, "INVALID_LINK", "invalid affiliate link"
	case errors.Is(err, domain.ErrNoAttributionCode):
		return http.StatusBadRequest, "NO_ATTRIBUTION_CODE", "no affiliate code supplied"
	case errors.Is(err, domain.ErrProgramInactive):
		return http.StatusBadRequest, "PROGRAM_INACTIVE", "program is not active"
	case errors.Is(err, domain.ErrLinkNotFound), errors.Is(err, domain.ErrLinkInactive):
		return http.StatusNotFound, "INVALID_LINK", "invalid affiliate link"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, "INVALID_TRANSITION", err.Error()
	case errors.Is(err, domain.ErrDuplicateConversion):
		return http.StatusConflict, "DUPLICATE_CONVERSION", "transaction already recorded"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
