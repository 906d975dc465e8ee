package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kosanku/kosanku-api/internal/models"
)

// TokenKeyFetcher loads an account so its TokenKey can be mixed into the
// signing key
type TokenKeyFetcher interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

// TokenManager issues and validates session tokens for both realms.
// Tokens are HS256-signed with secret+account.TokenKey, so rotating the
// TokenKey revokes every outstanding token for that account.
type TokenManager struct {
	secret   string
	expiry   time.Duration
	fetchers map[models.Realm]TokenKeyFetcher
	now      func() time.Time
}

func NewTokenManager(secret string, accessExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:   secret,
		expiry:   accessExpiry,
		fetchers: make(map[models.Realm]TokenKeyFetcher),
		now:      time.Now,
	}
}

// RegisterRealm enables token validation for a realm
func (tm *TokenManager) RegisterRealm(realm models.Realm, fetcher TokenKeyFetcher) {
	tm.fetchers[realm] = fetcher
}

func (tm *TokenManager) AccessTokenExpiry() time.Duration {
	return tm.expiry
}

// GenerateAccessToken issues a session token for the account
func (tm *TokenManager) GenerateAccessToken(realm models.Realm, account *models.Account) (string, error) {
	now := tm.now()
	claims := &models.TokenClaims{
		Type:      models.TokenTypeAccess,
		Realm:     realm,
		AccountID: account.ID,
		Email:     account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   account.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(tm.secret + account.TokenKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature against the account's current
// TokenKey and returns the claims
func (tm *TokenManager) ValidateToken(ctx context.Context, tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		c, ok := token.Claims.(*models.TokenClaims)
		if !ok || c.AccountID == "" {
			return nil, errors.New("missing account claim")
		}

		fetcher, ok := tm.fetchers[c.Realm]
		if !ok {
			return nil, fmt.Errorf("unknown realm %q", c.Realm)
		}

		account, err := fetcher.GetByID(ctx, c.AccountID)
		if err != nil {
			return nil, fmt.Errorf("load account: %w", err)
		}
		return []byte(tm.secret + account.TokenKey), nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, models.ErrUnauthorized
	}
	if claims.Type != models.TokenTypeAccess {
		return nil, fmt.Errorf("%w: unexpected token type %q", models.ErrUnauthorized, claims.Type)
	}

	return claims, nil
}
