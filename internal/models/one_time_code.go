package models

import (
	"time"
)

// OneTimeCode is a single emailed OTP challenge. Only the keyed hash of the
// code is stored.
type OneTimeCode struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	CodeHash   string     `json:"-"` // Never expose code hash
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsExpiredAt checks if the code has expired at the given instant
func (c *OneTimeCode) IsExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsConsumed checks if the code has already been used
func (c *OneTimeCode) IsConsumed() bool {
	return c.ConsumedAt != nil
}
