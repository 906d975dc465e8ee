package http

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"
)

// ErrorResponse is the JSON envelope for every failed request.
// RetryAfterSeconds accompanies 423/429, RemainingAttempts accompanies 401
// responses from the lockout-guarded endpoints.
type ErrorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	Details           string `json:"details,omitempty"`
	RetryAfterSeconds *int   `json:"retry_after_seconds,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
}

// WriteJSON writes v as JSON with the given status
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg} with 200
func WriteMessage(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, map[string]string{"message": message})
}

func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message, Details: details})
}

// WriteRetryAfter writes an error carrying a retry hint in both the body and
// the Retry-After header. Partial seconds round up.
func WriteRetryAfter(w http.ResponseWriter, statusCode int, errorCode, message string, retryAfter time.Duration) {
	secs := RetryAfterSeconds(retryAfter)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	WriteJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message, RetryAfterSeconds: &secs})
}

// WriteAttemptsRemaining writes a 401 carrying the remaining attempt budget
func WriteAttemptsRemaining(w http.ResponseWriter, errorCode, message string, remaining int) {
	if remaining < 0 {
		remaining = 0
	}
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: errorCode, Message: message, RemainingAttempts: &remaining})
}

func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
