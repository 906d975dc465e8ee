package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kosanku/kosanku-api/internal/models"
	"github.com/kosanku/kosanku-api/internal/services"
	pkghttp "github.com/kosanku/kosanku-api/pkg/http"
)

// AuthEngineInterface is the public OTP-gated auth flow of one realm
type AuthEngineInterface interface {
	Realm() models.Realm
	Register(ctx context.Context, in services.RegisterInput) error
	ResendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyForgotOTP(ctx context.Context, email, code, newPassword string) error
}

// AuthHandler serves the unauthenticated endpoints of one realm
type AuthHandler struct {
	engine AuthEngineInterface
	logger *slog.Logger
}

func NewAuthHandler(engine AuthEngineInterface, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		engine: engine,
		logger: logger.With(slog.String("realm", string(engine.Realm()))),
	}
}

// Request DTOs

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyForgotOTPRequest struct {
	Email                string `json:"email" validate:"required,email"`
	Code                 string `json:"code" validate:"required,len=6,numeric"`
	Password             string `json:"password" validate:"required,min=6,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// VerifyOTPResponse is returned after a successful activation
type VerifyOTPResponse struct {
	Message     string          `json:"message"`
	AccessToken string          `json:"access_token"`
	Account     *models.Profile `json:"account"`
}

func (h *AuthHandler) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request failed", slog.String("op", op), slog.Any("error", err))
	pkghttp.WriteInternalError(w, "Internal server error")
}

// Register handles account registration
// @Summary Register an account and send its activation OTP
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /{realm}/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		req.FullName = &name
	}

	err := h.engine.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	switch {
	case err == nil:
		pkghttp.WriteMessage(w, "OTP has been sent to your email.")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Email is already registered")
	case errors.Is(err, models.ErrInvalidPassword):
		writeBadRequest(w, err.Error())
	default:
		h.internalError(w, "register", err)
	}
}

// ResendOTP handles activation code resend
// @Summary Resend the activation OTP of a pending account
// @Accept json
// @Param request body EmailRequest true "Resend request"
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Router /{realm}/resend-otp [post]
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.engine.ResendOTP(r.Context(), req.Email)
	switch {
	case err == nil:
		pkghttp.WriteMessage(w, "A new OTP has been sent.")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Email is not registered")
	case errors.Is(err, models.ErrAlreadyActive):
		pkghttp.WriteError(w, http.StatusConflict, codeAlreadyActive, "Account is already active")
	case writeThrottled(w, err):
	default:
		h.internalError(w, "resend_otp", err)
	}
}

// VerifyOTP handles account activation
// @Summary Activate an account with its OTP
// @Accept json
// @Param request body VerifyOTPRequest true "Verify request"
// @Produce json
// @Success 200 {object} VerifyOTPResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /{realm}/verify-otp [post]
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.engine.VerifyOTP(r.Context(), req.Email, req.Code)
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusOK, VerifyOTPResponse{
			Message:     "Verification successful. Account is active.",
			AccessToken: resp.AccessToken,
			Account:     resp.Account,
		})
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteError(w, http.StatusUnauthorized, codeInvalidOTP, "Email is not registered")
	case errors.Is(err, models.ErrNoActiveOTP), errors.Is(err, models.ErrOTPExpired), errors.Is(err, models.ErrWrongCode):
		pkghttp.WriteError(w, http.StatusUnauthorized, codeInvalidOTP, otpFailureMessage(err, true))
	default:
		h.internalError(w, "verify_otp", err)
	}
}

// Login handles password login
// @Summary Log in with email and password
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Router /{realm}/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.engine.Login(r.Context(), req.Email, req.Password)
	var attempts *models.AttemptsError
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusOK, resp)
	case writeThrottled(w, err):
	case errors.As(err, &attempts):
		pkghttp.WriteAttemptsRemaining(w, codeInvalidCredentials, "Invalid email or password", attempts.Remaining)
	case errors.Is(err, models.ErrPendingActivation):
		pkghttp.WriteError(w, http.StatusConflict, codePendingActivation,
			"Account is not active yet. A new OTP has been sent to your email.")
	default:
		h.internalError(w, "login", err)
	}
}

// ForgotPassword starts a password reset
// @Summary Send a password reset OTP
// @Accept json
// @Param request body EmailRequest true "Forgot password request"
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Router /{realm}/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.engine.ForgotPassword(r.Context(), req.Email)
	switch {
	case err == nil:
		pkghttp.WriteMessage(w, "Password reset OTP has been sent to your email.")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Email is not registered")
	case writeThrottled(w, err):
	default:
		h.internalError(w, "forgot_password", err)
	}
}

// VerifyForgotOTP completes a password reset
// @Summary Reset the password with the emailed OTP
// @Accept json
// @Param request body VerifyForgotOTPRequest true "Reset request"
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Router /{realm}/verify-forgot-otp [post]
func (h *AuthHandler) VerifyForgotOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyForgotOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.engine.VerifyForgotOTP(r.Context(), req.Email, req.Code, req.Password)
	var attempts *models.AttemptsError
	switch {
	case err == nil:
		pkghttp.WriteMessage(w, "Password has been reset. You can log in with the new password.")
	case errors.Is(err, models.ErrInvalidPassword):
		writeBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Email is not registered")
	case writeThrottled(w, err):
	case errors.As(err, &attempts):
		pkghttp.WriteAttemptsRemaining(w, codeInvalidOTP, otpFailureMessage(err, false), attempts.Remaining)
	default:
		h.internalError(w, "verify_forgot_otp", err)
	}
}
