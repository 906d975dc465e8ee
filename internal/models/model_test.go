package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccount_ToProfile(t *testing.T) {
	name := "Siti"
	gender := "female"
	birth := time.Date(2001, 4, 9, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 9, 7, 10, 0, 0, 0, time.UTC)

	acc := &Account{
		ID:           "acc-1",
		Email:        "siti@example.com",
		PasswordHash: "hash",
		FullName:     &name,
		BirthDate:    &birth,
		Gender:       &gender,
		Status:       StatusActive,
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	p := acc.ToProfile()

	assert.Equal(t, "acc-1", p.ID)
	assert.Equal(t, "siti@example.com", p.Email)
	assert.Equal(t, "ACTIVE", p.Status)
	if assert.NotNil(t, p.BirthDate) {
		assert.Equal(t, "2001-04-09", *p.BirthDate)
	}
	assert.Nil(t, p.Image)
	assert.Equal(t, "2025-09-07T10:00:00Z", p.CreatedAt)
}

func TestAccount_IsActive(t *testing.T) {
	assert.True(t, (&Account{Status: StatusActive}).IsActive())
	assert.False(t, (&Account{Status: StatusPending}).IsActive())
}

func TestOneTimeCode_Expiry(t *testing.T) {
	now := time.Now()
	code := &OneTimeCode{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, code.IsExpiredAt(now))
	assert.True(t, code.IsExpiredAt(now.Add(2*time.Minute)))
	assert.False(t, code.IsConsumed())

	code.ConsumedAt = &now
	assert.True(t, code.IsConsumed())
}

func TestWrappedErrors(t *testing.T) {
	var err error = &RetryError{Err: ErrAccountLocked, RetryAfter: 90 * time.Second}
	wrapped := fmt.Errorf("login: %w", err)

	assert.True(t, errors.Is(wrapped, ErrAccountLocked))
	var retryErr *RetryError
	if assert.True(t, errors.As(wrapped, &retryErr)) {
		assert.Equal(t, 90*time.Second, retryErr.RetryAfter)
	}

	err = &AttemptsError{Err: ErrWrongCode, Remaining: 3}
	assert.True(t, errors.Is(err, ErrWrongCode))
	assert.Contains(t, err.Error(), "3 attempts remaining")
}

func TestRateKey(t *testing.T) {
	assert.Equal(t, "login:a@b.co", RateKey(ChannelLogin, "a@b.co"))
	assert.Equal(t, "forgot-otp:a@b.co", RateKey(ChannelForgotOTP, "a@b.co"))
}
