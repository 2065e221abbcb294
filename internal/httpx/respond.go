// Package httpx holds the JSON response helpers shared by the HTTP handlers,
// including the mapping from the service error taxonomy to status codes.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arjun/nft-marketplace/backend/internal/apperr"
	"github.com/arjun/nft-marketplace/backend/internal/auth"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError maps a service error onto a JSON error response.
func WriteError(w http.ResponseWriter, err error) {
	var (
		valErr  *apperr.ValidationError
		rateErr *apperr.RateLimitError
		confErr *apperr.ConflictError
		stErr   *apperr.StoreError
	)
	switch {
	case errors.As(err, &valErr):
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": "validation failed", "fields": valErr.Fields,
		})
	case errors.As(err, &rateErr):
		WriteJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error": rateErr.Error(), "retry_after_seconds": int(rateErr.RetryAfter.Seconds()),
		})
	case errors.As(err, &confErr):
		WriteJSON(w, http.StatusConflict, map[string]string{"error": confErr.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.As(err, &stErr):
		WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "backing service unavailable"})
	default:
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
