package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	pkghttp "github.com/kosanku/kosanku-api/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteError(w, 400, "bad_request", "Invalid input")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp["error"])
	assert.Equal(t, "Invalid input", resp["message"])
	assert.NotContains(t, resp, "details")
	assert.NotContains(t, resp, "retry_after_seconds")
	assert.NotContains(t, resp, "remaining_attempts")
}

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteErrorWithDetails(w, 400, "validation_error", "Validation failed", "email: must be a valid email")

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "email: must be a valid email", resp.Details)
}

func TestWriteRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteRetryAfter(w, 423, "account_locked", "Too many attempts", 90*time.Second+300*time.Millisecond)

	assert.Equal(t, 423, w.Code)
	assert.Equal(t, "91", w.Header().Get("Retry-After"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.RetryAfterSeconds)
	assert.Equal(t, 91, *resp.RetryAfterSeconds)
	assert.Nil(t, resp.RemainingAttempts)
}

func TestWriteAttemptsRemaining(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteAttemptsRemaining(w, "invalid_credentials", "Email or password is incorrect", 3)

	assert.Equal(t, 401, w.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.RemainingAttempts)
	assert.Equal(t, 3, *resp.RemainingAttempts)
}

func TestWriteAttemptsRemaining_ClampsNegative(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteAttemptsRemaining(w, "invalid_code", "Wrong code", -2)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, *resp.RemainingAttempts)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, pkghttp.RetryAfterSeconds(0))
	assert.Equal(t, 0, pkghttp.RetryAfterSeconds(-time.Second))
	assert.Equal(t, 1, pkghttp.RetryAfterSeconds(time.Millisecond))
	assert.Equal(t, 60, pkghttp.RetryAfterSeconds(time.Minute))
}

func TestWriteMessage(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteMessage(w, "OTP sent")

	assert.Equal(t, 200, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OTP sent", resp["message"])
}

func TestCommonWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *httptest.ResponseRecorder)
		status int
		code   string
	}{
		{"not found", func(w *httptest.ResponseRecorder) { pkghttp.WriteNotFound(w, "x") }, 404, "not_found"},
		{"conflict", func(w *httptest.ResponseRecorder) { pkghttp.WriteConflict(w, "x") }, 409, "conflict"},
		{"forbidden", func(w *httptest.ResponseRecorder) { pkghttp.WriteForbidden(w, "x") }, 403, "forbidden"},
		{"too many", func(w *httptest.ResponseRecorder) { pkghttp.WriteTooManyRequests(w, "x") }, 429, "rate_limit_exceeded"},
		{"internal", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w, "x") }, 500, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.status, w.Code)

			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}
