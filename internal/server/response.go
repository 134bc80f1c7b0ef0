package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ErrorResponse is the JSON envelope of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
	Error      string `json:"error"`

	// State is "not_found" on lookup misses so clients can render an
	// explicit not-found page.
	State string `json:"state,omitempty"`
}

const stateNotFound = "not_found"

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Warnf("Failed to encode response: %v", err)
	}
}

// errorResponse writes a formatted error response.
func errorResponse(w http.ResponseWriter, statusCode int, errorMsg string) {
	if statusCode >= http.StatusInternalServerError {
		logrus.Warn(errorMsg)
	} else {
		logrus.Debug(errorMsg)
	}

	writeJSON(w, statusCode, ErrorResponse{
		StatusCode: statusCode,
		Status:     "error",
		Error:      errorMsg,
	})
}

// notFound writes the explicit not-found state for a lookup miss.
func notFound(w http.ResponseWriter, errorMsg string) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		StatusCode: http.StatusNotFound,
		Status:     "error",
		Error:      errorMsg,
		State:      stateNotFound,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}
