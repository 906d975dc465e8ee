package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kosanku/kosanku-api/internal/auth"
	"github.com/kosanku/kosanku-api/internal/models"
	"github.com/kosanku/kosanku-api/internal/services"
	pkghttp "github.com/kosanku/kosanku-api/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAccountContext adds access-token claims to the request context
func WithAccountContext(req *http.Request, realm models.Realm, accountID, email string) *http.Request {
	claims := &models.TokenClaims{
		Type:      models.TokenTypeAccess,
		Realm:     realm,
		AccountID: accountID,
		Email:     email,
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response and returns it
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthEngine implements AuthEngineInterface for testing
type MockAuthEngine struct {
	RealmValue          models.Realm
	RegisterFunc        func(ctx context.Context, in services.RegisterInput) error
	ResendOTPFunc       func(ctx context.Context, email string) error
	VerifyOTPFunc       func(ctx context.Context, email, code string) (*models.AuthResponse, error)
	LoginFunc           func(ctx context.Context, email, password string) (*models.AuthResponse, error)
	ForgotPasswordFunc  func(ctx context.Context, email string) error
	VerifyForgotOTPFunc func(ctx context.Context, email, code, newPassword string) error
}

func (m *MockAuthEngine) Realm() models.Realm {
	if m.RealmValue == "" {
		return models.RealmUser
	}
	return m.RealmValue
}

func (m *MockAuthEngine) Register(ctx context.Context, in services.RegisterInput) error {
	if m.RegisterFunc == nil {
		return nil
	}
	return m.RegisterFunc(ctx, in)
}

func (m *MockAuthEngine) ResendOTP(ctx context.Context, email string) error {
	if m.ResendOTPFunc == nil {
		return nil
	}
	return m.ResendOTPFunc(ctx, email)
}

func (m *MockAuthEngine) VerifyOTP(ctx context.Context, email, code string) (*models.AuthResponse, error) {
	if m.VerifyOTPFunc == nil {
		return nil, models.ErrWrongCode
	}
	return m.VerifyOTPFunc(ctx, email, code)
}

func (m *MockAuthEngine) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, &models.AttemptsError{Err: models.ErrBadCredentials, Remaining: 4}
	}
	return m.LoginFunc(ctx, email, password)
}

func (m *MockAuthEngine) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc == nil {
		return nil
	}
	return m.ForgotPasswordFunc(ctx, email)
}

func (m *MockAuthEngine) VerifyForgotOTP(ctx context.Context, email, code, newPassword string) error {
	if m.VerifyForgotOTPFunc == nil {
		return nil
	}
	return m.VerifyForgotOTPFunc(ctx, email, code, newPassword)
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	ProfileFunc        func(ctx context.Context, accountID string) (*models.Profile, error)
	UpdateProfileFunc  func(ctx context.Context, accountID string, update models.ProfileUpdate) (*models.Profile, error)
	ChangePasswordFunc func(ctx context.Context, accountID, currentPassword, newPassword string) error
	CheckEmailFunc     func(ctx context.Context, email string) (bool, error)
	LogoutFunc         func(ctx context.Context, claims *models.TokenClaims) error
	LogoutAllFunc      func(ctx context.Context, accountID string) error
}

func (m *MockAccountService) Profile(ctx context.Context, accountID string) (*models.Profile, error) {
	if m.ProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ProfileFunc(ctx, accountID)
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, accountID string, update models.ProfileUpdate) (*models.Profile, error) {
	if m.UpdateProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateProfileFunc(ctx, accountID, update)
}

func (m *MockAccountService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc == nil {
		return nil
	}
	return m.ChangePasswordFunc(ctx, accountID, currentPassword, newPassword)
}

func (m *MockAccountService) CheckEmail(ctx context.Context, email string) (bool, error) {
	if m.CheckEmailFunc == nil {
		return false, nil
	}
	return m.CheckEmailFunc(ctx, email)
}

func (m *MockAccountService) Logout(ctx context.Context, claims *models.TokenClaims) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, claims)
}

func (m *MockAccountService) LogoutAll(ctx context.Context, accountID string) error {
	if m.LogoutAllFunc == nil {
		return nil
	}
	return m.LogoutAllFunc(ctx, accountID)
}
