package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account lifecycle errors
	ErrAlreadyActive     = errors.New("account is already active")
	ErrPendingActivation = errors.New("account is pending activation")
	ErrInvalidPassword   = errors.New("invalid password")

	// Brute-force and throttling errors
	ErrAccountLocked  = errors.New("account is temporarily locked")
	ErrCooldown       = errors.New("otp requested too recently")
	ErrBadCredentials = errors.New("invalid email or password")

	// OTP errors
	ErrNoActiveOTP = errors.New("no active otp")
	ErrOTPExpired  = errors.New("otp expired")
	ErrWrongCode   = errors.New("otp does not match")
)

// RetryError is returned for throttled outcomes (lockout, cooldown) and
// carries how long the caller should wait.
type RetryError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", e.Err, e.RetryAfter.Round(time.Second))
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// AttemptsError is returned for failed credential or code checks that count
// against a lockout budget.
type AttemptsError struct {
	Err       error
	Remaining int
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("%v (%d attempts remaining)", e.Err, e.Remaining)
}

func (e *AttemptsError) Unwrap() error {
	return e.Err
}
