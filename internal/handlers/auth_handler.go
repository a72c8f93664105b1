package handlers

import (
	"errors"
	"log"
	"net/http"

	"eventos-backend/internal/middleware"
	"eventos-backend/internal/models"
	"eventos-backend/internal/services"
	"eventos-backend/pkg/utils"
)

// AuthHandler serves login, the 2FA second step and the current user's account
type AuthHandler struct {
	Users  *services.UserService
	TOTP   *services.TOTPService
	logger *log.Logger
}

func NewAuthHandler(users *services.UserService, totp *services.TOTPService, logger *log.Logger) *AuthHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthHandler{Users: users, TOTP: totp, logger: logger}
}

// writeAuthError maps the login sentinels before falling back to the error kinds
func writeAuthError(w http.ResponseWriter, logger *log.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidTOTPCode):
		utils.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrTooManyAttempts):
		utils.Error(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, services.ErrInactiveUser):
		utils.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNoTOTPSecret), errors.Is(err, services.ErrTOTPNotEnabled):
		utils.Error(w, http.StatusBadRequest, err.Error())
	default:
		utils.WriteError(w, logger, err)
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req, false) {
		return
	}
	resp, err := h.Users.Login(r.Context(), req)
	if err != nil {
		writeAuthError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Verify2FA handles POST /auth/2fa/verificar
func (h *AuthHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPVerifyRequest
	if !decode(w, r, &req, false) {
		return
	}
	resp, err := h.TOTP.VerifyLogin(r.Context(), req)
	if err != nil {
		writeAuthError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u, err := h.Users.GetUser(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, u)
}

// ChangePassword handles PUT /api/me/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req models.ChangePasswordRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := h.Users.ChangePassword(r.Context(), userID, req); err != nil {
		writeAuthError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Setup2FA handles POST /api/me/2fa/setup
func (h *AuthHandler) Setup2FA(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	setup, err := h.TOTP.GenerateSetup(r.Context(), userID)
	if err != nil {
		writeAuthError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, setup)
}

// Enable2FA handles POST /api/me/2fa/activar
func (h *AuthHandler) Enable2FA(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req models.TOTPCodeRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := h.TOTP.Enable(r.Context(), userID, req.Code); err != nil {
		writeAuthError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, models.User2FAStatus{Enabled: true})
}

// Disable2FA handles POST /api/me/2fa/desactivar
func (h *AuthHandler) Disable2FA(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req models.TOTPDisableRequest
	if !decode(w, r, &req, false) {
		return
	}
	if err := h.TOTP.Disable(r.Context(), userID, req); err != nil {
		writeAuthError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, models.User2FAStatus{Enabled: false})
}

// Status2FA handles GET /api/me/2fa
func (h *AuthHandler) Status2FA(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	st, err := h.TOTP.Status(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, st)
}
