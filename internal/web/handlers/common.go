package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/snapmatch/snapmatch/internal/apperr"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// statusResponse is the wire shape of the public capture/email endpoints.
type statusResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// httpStatusFor maps an error kind to an HTTP status code.
func httpStatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Transport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondOpError maps a typed operation error to the public status shape.
func respondOpError(w http.ResponseWriter, err error) {
	respondJSON(w, httpStatusFor(err), statusResponse{
		Status:  "error",
		Message: apperr.Message(err),
	})
}

// respondAdminError maps a typed operation error to the admin error shape.
func respondAdminError(w http.ResponseWriter, err error) {
	respondError(w, httpStatusFor(err), apperr.Message(err))
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
