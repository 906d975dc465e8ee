package models

import (
	"github.com/golang-jwt/jwt/v5"
)

const TokenTypeAccess = "access"

type TokenClaims struct {
	Type      string `json:"type"`
	Realm     Realm  `json:"realm"`
	AccountID string `json:"account_id"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthResponse is returned by successful activation and login
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	Account     *Profile `json:"account"`
}
