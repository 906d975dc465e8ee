package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kosanku/kosanku-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	acct := testAccount("u1")
	tm := NewTokenManager(testSecret, time.Hour)
	tm.RegisterRealm(models.RealmUser, newFakeFetcher(acct))

	token, err := tm.GenerateAccessToken(models.RealmUser, acct)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.AccountID)
	assert.Equal(t, models.RealmUser, claims.Realm)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_RotatedKeyInvalidatesToken(t *testing.T) {
	acct := testAccount("u1")
	tm := NewTokenManager(testSecret, time.Hour)
	tm.RegisterRealm(models.RealmUser, newFakeFetcher(acct))

	token, err := tm.GenerateAccessToken(models.RealmUser, acct)
	require.NoError(t, err)

	acct.TokenKey = "rotated"

	_, err = tm.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_RealmIsolation(t *testing.T) {
	user := testAccount("shared-id")
	admin := &models.Account{ID: "shared-id", Email: "admin@example.com", TokenKey: "admin-key"}

	tm := NewTokenManager(testSecret, time.Hour)
	tm.RegisterRealm(models.RealmUser, newFakeFetcher(user))
	tm.RegisterRealm(models.RealmAdmin, newFakeFetcher(admin))

	token, err := tm.GenerateAccessToken(models.RealmUser, user)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.RealmUser, claims.Realm)

	// a token signed with the user's key cannot pass as an admin token
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.TokenClaims{
		Type: models.TokenTypeAccess, Realm: models.RealmAdmin, AccountID: "shared-id",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := forged.SignedString([]byte(testSecret + user.TokenKey))
	require.NoError(t, err)

	_, err = tm.ValidateToken(context.Background(), signed)
	assert.Error(t, err)
}

func TestTokenManager_Expired(t *testing.T) {
	acct := testAccount("u1")
	tm := NewTokenManager(testSecret, time.Minute)
	tm.RegisterRealm(models.RealmUser, newFakeFetcher(acct))

	issued := time.Now()
	tm.now = func() time.Time { return issued }
	token, err := tm.GenerateAccessToken(models.RealmUser, acct)
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_UnknownAccountOrRealm(t *testing.T) {
	acct := testAccount("u1")
	tm := NewTokenManager(testSecret, time.Hour)
	tm.RegisterRealm(models.RealmUser, newFakeFetcher())

	token, err := tm.GenerateAccessToken(models.RealmUser, acct)
	require.NoError(t, err)
	_, err = tm.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	adminToken, err := tm.GenerateAccessToken(models.RealmAdmin, acct)
	require.NoError(t, err)
	_, err = tm.ValidateToken(context.Background(), adminToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	acct := testAccount("u1")
	tm := NewTokenManager(testSecret, time.Hour)
	tm.RegisterRealm(models.RealmUser, newFakeFetcher(acct))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &models.TokenClaims{
		Type: models.TokenTypeAccess, Realm: models.RealmUser, AccountID: "u1",
	})
	s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.ValidateToken(context.Background(), s)
	assert.Error(t, err)
}
