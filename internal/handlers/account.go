package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kosanku/kosanku-api/internal/auth"
	"github.com/kosanku/kosanku-api/internal/models"
	pkghttp "github.com/kosanku/kosanku-api/pkg/http"
)

// AccountServiceInterface covers the authenticated account operations
type AccountServiceInterface interface {
	Profile(ctx context.Context, accountID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, accountID string, update models.ProfileUpdate) (*models.Profile, error)
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error
	CheckEmail(ctx context.Context, email string) (bool, error)
	Logout(ctx context.Context, claims *models.TokenClaims) error
	LogoutAll(ctx context.Context, accountID string) error
}

// AccountHandler serves the authenticated endpoints of one realm
type AccountHandler struct {
	service AccountServiceInterface
	logger  *slog.Logger
}

func NewAccountHandler(service AccountServiceInterface, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: service, logger: logger}
}

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,max=255"`
	BirthDate *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender    *string `json:"gender" validate:"omitempty,oneof=male female"`
}

type ChangePasswordRequest struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,min=6,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// DataResponse wraps a payload as {"data": ...}
type DataResponse struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

func (h *AccountHandler) claims(w http.ResponseWriter, r *http.Request) *models.TokenClaims {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
	}
	return claims
}

func (h *AccountHandler) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request failed", slog.String("op", op), slog.Any("error", err))
	pkghttp.WriteInternalError(w, "Internal server error")
}

// GetProfile returns the caller's profile
// @Summary Get the current account's profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} DataResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /{realm}/profile [get]
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := h.claims(w, r)
	if claims == nil {
		return
	}

	profile, err := h.service.Profile(r.Context(), claims.AccountID)
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusOK, DataResponse{Data: profile})
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteUnauthorized(w, "unauthorized")
	default:
		h.internalError(w, "get_profile", err)
	}
}

// UpdateProfile changes name, birth date or gender
// @Summary Update the current account's profile
// @Security BearerAuth
// @Accept json
// @Param request body UpdateProfileRequest true "Profile fields"
// @Produce json
// @Success 200 {object} DataResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Router /{realm}/profile [post]
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := h.claims(w, r)
	if claims == nil {
		return
	}

	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	update := models.ProfileUpdate{FullName: req.FullName, Gender: req.Gender}
	if req.BirthDate != nil {
		bd, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			writeBadRequest(w, "birth_date must be a date in the format 2006-01-02")
			return
		}
		update.BirthDate = &bd
	}

	profile, err := h.service.UpdateProfile(r.Context(), claims.AccountID, update)
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusOK, DataResponse{Data: profile, Message: "Profile updated"})
	case errors.Is(err, models.ErrBadRequest):
		writeBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteUnauthorized(w, "unauthorized")
	default:
		h.internalError(w, "update_profile", err)
	}
}

// ChangePassword replaces the caller's password
// @Summary Change password
// @Security BearerAuth
// @Accept json
// @Param request body ChangePasswordRequest true "Change password request"
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /{realm}/change-password [post]
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := h.claims(w, r)
	if claims == nil {
		return
	}

	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.ChangePassword(r.Context(), claims.AccountID, req.CurrentPassword, req.Password)
	switch {
	case err == nil:
		pkghttp.WriteMessage(w, "Password changed")
	case errors.Is(err, models.ErrInvalidPassword):
		writeBadRequest(w, err.Error())
	case errors.Is(err, models.ErrBadCredentials):
		pkghttp.WriteError(w, http.StatusUnauthorized, codeInvalidCredentials, "Current password is incorrect")
	default:
		h.internalError(w, "change_password", err)
	}
}

// Logout revokes the presented token
// @Summary Log out this session
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /{realm}/logout [post]
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := h.claims(w, r)
	if claims == nil {
		return
	}

	if err := h.service.Logout(r.Context(), claims); err != nil {
		h.internalError(w, "logout", err)
		return
	}
	pkghttp.WriteMessage(w, "Logged out")
}

// LogoutAll invalidates every session of the caller
// @Summary Log out from all devices
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /{realm}/logout-all [post]
func (h *AccountHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := h.claims(w, r)
	if claims == nil {
		return
	}

	if err := h.service.LogoutAll(r.Context(), claims.AccountID); err != nil {
		h.internalError(w, "logout_all", err)
		return
	}
	pkghttp.WriteMessage(w, "Logged out from all devices")
}

// CheckEmail reports whether an email is registered
// @Summary Check whether an email is registered
// @Produce json
// @Param email path string true "Email"
// @Success 200 {object} DataResponse
// @Router /admin/check/{email} [get]
func (h *AccountHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || strings.TrimSpace(email) == "" {
		writeBadRequest(w, "Invalid email")
		return
	}
	if err := validate.Var(email, "email"); err != nil {
		writeBadRequest(w, "Invalid email")
		return
	}

	exists, err := h.service.CheckEmail(r.Context(), email)
	if err != nil {
		h.internalError(w, "check_email", err)
		return
	}

	msg := "Email is not registered"
	if exists {
		msg = "Email is already registered"
	}
	pkghttp.WriteJSON(w, http.StatusOK, DataResponse{Data: exists, Message: msg})
}
