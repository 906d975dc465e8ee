package handlers

import (
	"errors"
	"net/http"

	"github.com/kosanku/kosanku-api/internal/models"
	pkghttp "github.com/kosanku/kosanku-api/pkg/http"
)

// Error codes carried in the envelope's "error" field
const (
	codeAccountLocked      = "account_locked"
	codeInvalidCredentials = "invalid_credentials"
	codeInvalidOTP         = "invalid_otp"
	codePendingActivation  = "pending_activation"
	codeAlreadyActive      = "already_active"
)

func writeBadRequest(w http.ResponseWriter, message string) {
	pkghttp.WriteBadRequest(w, message)
}

// writeThrottled handles the lockout (423) and cooldown (429) outcomes.
// It reports whether err was one of them.
func writeThrottled(w http.ResponseWriter, err error) bool {
	var retry *models.RetryError
	if !errors.As(err, &retry) {
		return false
	}
	if errors.Is(err, models.ErrAccountLocked) {
		pkghttp.WriteRetryAfter(w, http.StatusLocked, codeAccountLocked,
			"Too many failed attempts. Try again later.", retry.RetryAfter)
		return true
	}
	pkghttp.WriteRetryAfter(w, http.StatusTooManyRequests, "rate_limit_exceeded",
		"Too many requests. Try again shortly.", retry.RetryAfter)
	return true
}

// otpFailureMessage describes a failed code check
func otpFailureMessage(err error, reissued bool) string {
	switch {
	case errors.Is(err, models.ErrWrongCode):
		return "Incorrect OTP"
	case errors.Is(err, models.ErrOTPExpired) && reissued:
		return "OTP expired. A new code has been sent to your email."
	case errors.Is(err, models.ErrNoActiveOTP) && reissued:
		return "OTP not found. A new code has been sent to your email."
	default:
		return "OTP not found or expired"
	}
}
