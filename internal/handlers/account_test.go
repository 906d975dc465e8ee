package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kosanku/kosanku-api/internal/handlers"
	"github.com/kosanku/kosanku-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfile(t *testing.T) {
	svc := &handlers.MockAccountService{
		ProfileFunc: func(ctx context.Context, accountID string) (*models.Profile, error) {
			return &models.Profile{ID: accountID, Email: "budi@example.com", Status: "ACTIVE"}, nil
		},
	}
	handler := handlers.NewAccountHandler(svc, discardLogger())

	req := handlers.WithAccountContext(httptest.NewRequest("GET", "/auth/profile", nil), models.RealmUser, "acct-1", "budi@example.com")
	w := httptest.NewRecorder()
	handler.GetProfile(w, req)

	var resp struct {
		Data models.Profile `json:"data"`
	}
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "acct-1", resp.Data.ID)
}

func TestAccountEndpoints_RequireClaims(t *testing.T) {
	handler := handlers.NewAccountHandler(&handlers.MockAccountService{}, discardLogger())

	for name, fn := range map[string]http.HandlerFunc{
		"profile":         handler.GetProfile,
		"update profile":  handler.UpdateProfile,
		"change password": handler.ChangePassword,
		"logout":          handler.Logout,
		"logout all":      handler.LogoutAll,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			fn(w, httptest.NewRequest("POST", "/", nil))
			handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	var got models.ProfileUpdate
	svc := &handlers.MockAccountService{
		UpdateProfileFunc: func(ctx context.Context, accountID string, update models.ProfileUpdate) (*models.Profile, error) {
			got = update
			return &models.Profile{ID: accountID}, nil
		},
	}
	handler := handlers.NewAccountHandler(svc, discardLogger())

	bd := "1999-12-31"
	gender := "female"
	req := handlers.NewTestRequest(t, "POST", "/auth/profile", handlers.UpdateProfileRequest{BirthDate: &bd, Gender: &gender})
	req = handlers.WithAccountContext(req, models.RealmUser, "acct-1", "siti@example.com")
	w := httptest.NewRecorder()
	handler.UpdateProfile(w, req)

	handlers.AssertJSONResponse(t, w, http.StatusOK, nil)
	require.NotNil(t, got.BirthDate)
	assert.Equal(t, "1999-12-31", got.BirthDate.Format("2006-01-02"))
	assert.Equal(t, "female", *got.Gender)
	assert.Nil(t, got.FullName)
}

func TestUpdateProfile_Rejections(t *testing.T) {
	bad := "31-12-1999"
	other := "other"

	tests := []struct {
		name string
		body handlers.UpdateProfileRequest
		err  error
	}{
		{"malformed date", handlers.UpdateProfileRequest{BirthDate: &bad}, nil},
		{"unknown gender", handlers.UpdateProfileRequest{Gender: &other}, nil},
		{"service rejects", handlers.UpdateProfileRequest{}, fmt.Errorf("%w: birth_date must be before today", models.ErrBadRequest)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &handlers.MockAccountService{
				UpdateProfileFunc: func(ctx context.Context, accountID string, update models.ProfileUpdate) (*models.Profile, error) {
					return nil, tt.err
				},
			}
			handler := handlers.NewAccountHandler(svc, discardLogger())
			req := handlers.WithAccountContext(handlers.NewTestRequest(t, "POST", "/auth/profile", tt.body), models.RealmUser, "acct-1", "")
			w := httptest.NewRecorder()
			handler.UpdateProfile(w, req)
			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name     string
		body     handlers.ChangePasswordRequest
		err      error
		status   int
		errorKey string
	}{
		{"wrong current password", handlers.ChangePasswordRequest{CurrentPassword: "x", Password: "baru-456", PasswordConfirmation: "baru-456"}, models.ErrBadCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"confirmation mismatch", handlers.ChangePasswordRequest{CurrentPassword: "x", Password: "baru-456", PasswordConfirmation: "baru-457"}, nil, http.StatusBadRequest, "bad_request"},
		{"too short", handlers.ChangePasswordRequest{CurrentPassword: "x", Password: "123", PasswordConfirmation: "123"}, nil, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &handlers.MockAccountService{
				ChangePasswordFunc: func(ctx context.Context, accountID, current, newPassword string) error { return tt.err },
			}
			handler := handlers.NewAccountHandler(svc, discardLogger())
			req := handlers.WithAccountContext(handlers.NewTestRequest(t, "POST", "/auth/change-password", tt.body), models.RealmUser, "acct-1", "")
			w := httptest.NewRecorder()
			handler.ChangePassword(w, req)
			handlers.AssertErrorResponse(t, w, tt.status, tt.errorKey)
		})
	}

	t.Run("success", func(t *testing.T) {
		handler := handlers.NewAccountHandler(&handlers.MockAccountService{}, discardLogger())
		body := handlers.ChangePasswordRequest{CurrentPassword: "rahasia123", Password: "baru-456", PasswordConfirmation: "baru-456"}
		req := handlers.WithAccountContext(handlers.NewTestRequest(t, "POST", "/auth/change-password", body), models.RealmUser, "acct-1", "")
		w := httptest.NewRecorder()
		handler.ChangePassword(w, req)
		handlers.AssertJSONResponse(t, w, http.StatusOK, nil)
	})
}

func TestLogoutAndLogoutAll(t *testing.T) {
	var loggedOut *models.TokenClaims
	var loggedOutAll string
	svc := &handlers.MockAccountService{
		LogoutFunc: func(ctx context.Context, claims *models.TokenClaims) error {
			loggedOut = claims
			return nil
		},
		LogoutAllFunc: func(ctx context.Context, accountID string) error {
			loggedOutAll = accountID
			return nil
		},
	}
	handler := handlers.NewAccountHandler(svc, discardLogger())

	w := httptest.NewRecorder()
	handler.Logout(w, handlers.WithAccountContext(httptest.NewRequest("POST", "/auth/logout", nil), models.RealmUser, "acct-1", ""))
	handlers.AssertJSONResponse(t, w, http.StatusOK, nil)
	require.NotNil(t, loggedOut)
	assert.Equal(t, "acct-1", loggedOut.AccountID)

	w = httptest.NewRecorder()
	handler.LogoutAll(w, handlers.WithAccountContext(httptest.NewRequest("POST", "/auth/logout-all", nil), models.RealmUser, "acct-1", ""))
	handlers.AssertJSONResponse(t, w, http.StatusOK, nil)
	assert.Equal(t, "acct-1", loggedOutAll)
}

func TestLogout_ServiceError(t *testing.T) {
	svc := &handlers.MockAccountService{
		LogoutFunc: func(ctx context.Context, claims *models.TokenClaims) error { return errors.New("db down") },
	}
	handler := handlers.NewAccountHandler(svc, discardLogger())
	w := httptest.NewRecorder()
	handler.Logout(w, handlers.WithAccountContext(httptest.NewRequest("POST", "/auth/logout", nil), models.RealmUser, "acct-1", ""))
	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
}

func TestCheckEmail(t *testing.T) {
	svc := &handlers.MockAccountService{
		CheckEmailFunc: func(ctx context.Context, email string) (bool, error) {
			return email == "admin@kosanku.id", nil
		},
	}
	handler := handlers.NewAccountHandler(svc, discardLogger())
	router := chi.NewRouter()
	router.Get("/admin/check/{email}", handler.CheckEmail)

	for email, want := range map[string]bool{"admin@kosanku.id": true, "other@kosanku.id": false} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/check/"+email, nil))

		var resp struct {
			Data    bool   `json:"data"`
			Message string `json:"message"`
		}
		handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, want, resp.Data, email)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/check/not-an-email", nil))
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}
