package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/longregen/amaru/internal/adapters/http/dto"
	"github.com/longregen/amaru/internal/adapters/http/encoding"
	"github.com/longregen/amaru/internal/domain"
)

// respond writes data in the encoding the client asked for
func respond(w http.ResponseWriter, r *http.Request, data any, status int) {
	_ = encoding.Write(w, r, status, data)
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, data any, status int) {
	_ = encoding.WriteJSON(w, status, data)
}

// respondError writes an error body tagged with the request id
func respondError(w http.ResponseWriter, r *http.Request, kind, message string, status int) {
	body := dto.NewErrorResponse(kind, message, status, chimw.GetReqID(r.Context()))
	respond(w, r, body, status)
}

// respondDomainError maps a store error onto a status code
func respondDomainError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, r, "not_found", what+" not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrStoreUnavailable):
		respondError(w, r, "unavailable", "store unavailable", http.StatusServiceUnavailable)
	default:
		respondError(w, r, "internal_error", "failed to load "+what, http.StatusInternalServerError)
	}
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(r *http.Request, name string, defaultValue int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// validateURLParam validates and returns a URL parameter
func validateURLParam(r *http.Request, w http.ResponseWriter, paramName, errorField string) (string, bool) {
	value := chi.URLParam(r, paramName)
	if value == "" {
		respondError(w, r, "invalid_request", errorField+" is required", http.StatusBadRequest)
		return "", false
	}
	return value, true
}
