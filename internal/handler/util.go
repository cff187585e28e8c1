// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/middleware"
	"github.com/farelProject/v-technology/internal/service"
	"github.com/farelProject/v-technology/internal/upload"
	"github.com/farelProject/v-technology/pkg/logger"
)

const featureLockedMessage = "Feature Locked: please log in to use image generation, search, and file uploads."

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, middleware.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// caller identifies the signed-in user or guest behind the request.
func caller(r *http.Request) service.Caller {
	return service.Caller{
		UserID:  middleware.GetUserID(r.Context()),
		GuestID: middleware.GetGuestID(r.Context()),
	}
}

// writeServiceError maps service errors to status codes and user-facing
// text. Unknown errors are logged and reported as a generic failure.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, action string) {
	var (
		verr   *service.ValidationError
		lerr   *service.LimitError
		aerr   *service.AIError
		uperr  *service.UploadError
		status int
		msg    string
	)

	switch {
	case errors.As(err, &verr):
		status, msg = http.StatusBadRequest, verr.Message
	case errors.Is(err, service.ErrEmptyInput):
		status, msg = http.StatusBadRequest, "Message cannot be empty."
	case errors.Is(err, service.ErrInvalidMode):
		status, msg = http.StatusBadRequest, "Unknown AI mode."
	case errors.Is(err, service.ErrInvalidResetToken):
		status, msg = http.StatusBadRequest, "Password reset token is invalid or has expired."
	case errors.Is(err, service.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid email or password."
	case errors.Is(err, service.ErrFeatureLocked):
		status, msg = http.StatusForbidden, featureLockedMessage
	case errors.Is(err, service.ErrUserNotFound):
		status, msg = http.StatusNotFound, "User not found."
	case errors.Is(err, service.ErrSessionNotFound):
		status, msg = http.StatusNotFound, "Chat session not found."
	case errors.Is(err, service.ErrEmailTaken):
		status, msg = http.StatusConflict, "User with this email already exists."
	case errors.As(err, &lerr):
		status, msg = http.StatusTooManyRequests, lerr.Message()
	case errors.As(err, &uperr):
		status, msg = http.StatusBadGateway, upload.Message(uperr.Err)
		if upload.IsInvalid(uperr.Err) {
			status = http.StatusBadRequest
		}
	case errors.As(err, &aerr):
		status, msg = http.StatusBadGateway, aerr.Message
	default:
		log.Error("request failed", zap.String("action", action), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to "+action)
		return
	}

	if status >= http.StatusInternalServerError {
		log.Warn("upstream failure", zap.String("action", action), zap.Error(err))
	}
	writeError(w, status, msg)
}
