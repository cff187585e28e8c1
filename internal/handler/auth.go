package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farelProject/v-technology/internal/middleware"
	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/internal/service"
	"github.com/farelProject/v-technology/pkg/logger"
)

const resetRequestedMessage = "If an account with that email exists, a password reset link has been sent."

// AuthHandler handles account endpoints.
type AuthHandler struct {
	service     *service.AuthService
	exposeToken bool
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler. When exposeToken is set the
// forgot-password response carries the reset token, for deployments without
// a mailer on the event stream.
func NewAuthHandler(svc *service.AuthService, exposeToken bool, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service:     svc,
		exposeToken: exposeToken,
		logger:      log,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "register")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "log in")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Profile(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err, "load profile")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

// DeleteMe handles DELETE /api/auth/me
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccount(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, h.logger, err, "delete account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User deleted successfully.",
	})
}

// ForgotPassword handles POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, h.logger, err, "request password reset")
		return
	}

	resp := model.ForgotPasswordResponse{Message: resetRequestedMessage}
	if h.exposeToken {
		resp.Token = token
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckResetToken handles GET /api/auth/reset-password/{token}
func (h *AuthHandler) CheckResetToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := middleware.ValidateResetToken(token); err != nil {
		writeServiceError(w, h.logger, service.ErrInvalidResetToken, "check reset token")
		return
	}

	email, err := h.service.LookupResetToken(r.Context(), token)
	if err != nil {
		writeServiceError(w, h.logger, err, "check reset token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"email": email,
	})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, h.logger, err, "reset password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password has been reset successfully.",
	})
}
