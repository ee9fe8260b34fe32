package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"nutripal/extract"
	"nutripal/nutrition"
	"nutripal/tracker"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

func WriteJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("API: Failed to encode response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, status int, errMsg, message string) {
	WriteJSONResponse(w, status, ErrorResponse{Error: errMsg, Message: message})
}

// writeTrackerError maps service errors onto HTTP statuses.
func writeTrackerError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *tracker.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", ve.Reason)
	case errors.Is(err, nutrition.ErrInvalidProfile):
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, tracker.ErrAIRequired):
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, tracker.ErrInvalidIndex):
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "Item index out of range")
	case errors.Is(err, extract.ErrInvalidCredential):
		slog.Error("API: Extraction credential rejected", "path", r.URL.Path, "error", err)
		WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized",
			"The nutrition service credential was rejected; contact the operator")
	case errors.Is(err, tracker.ErrNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "Not Found", "Resource not found")
	case errors.Is(err, tracker.ErrFoodNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "Not Found", "Food not found")
	default:
		slog.Error("API: Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong")
	}
}
