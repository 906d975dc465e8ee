package models

import "time"

// Rate-limit channels. A channel plus an email forms a rate-state key.
const (
	ChannelLogin     = "login"
	ChannelForgotOTP = "forgot-otp"
)

// RateKey builds the rate-state key for a channel and identifier
func RateKey(channel, identifier string) string {
	return channel + ":" + identifier
}

// RateState is the ephemeral brute-force state for one key
type RateState struct {
	Failures       int
	SuspendedUntil *time.Time
}
