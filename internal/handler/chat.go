package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/middleware"
	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/internal/service"
	"github.com/farelProject/v-technology/internal/upload"
	"github.com/farelProject/v-technology/pkg/logger"
)

// ChatHandler handles sends, quota, uploads and audio lookups.
type ChatHandler struct {
	chat     *service.ChatService
	audio    *service.AudioService
	uploader upload.Uploader
	logger   *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, audio *service.AudioService, uploader upload.Uploader, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		audio:    audio,
		uploader: uploader,
		logger:   log,
	}
}

// Send handles POST /api/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := middleware.ValidateInput(req.Input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID != "" {
		if err := middleware.ValidateSessionID(req.SessionID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.chat.Send(r.Context(), caller(r), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "send message")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Limit handles GET /api/limit
func (h *ChatHandler) Limit(w http.ResponseWriter, r *http.Request) {
	resp, err := h.chat.Limit(r.Context(), caller(r))
	if err != nil {
		writeServiceError(w, h.logger, err, "load chat limit")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Upload handles POST /api/upload
func (h *ChatHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if caller(r).IsGuest() {
		writeError(w, http.StatusForbidden, featureLockedMessage)
		return
	}

	var req model.UploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	url, err := h.uploader.Upload(r.Context(), req.Image)
	if err != nil {
		status := http.StatusBadGateway
		if upload.IsInvalid(err) {
			status = http.StatusBadRequest
		} else {
			h.logger.Warn("image upload failed", zap.String("host", h.uploader.Name()), zap.Error(err))
		}
		writeError(w, status, upload.Message(err))
		return
	}

	writeJSON(w, http.StatusCreated, model.UploadResponse{URL: url})
}

// Audio handles GET /api/audio?query=
func (h *ChatHandler) Audio(w http.ResponseWriter, r *http.Request) {
	result, err := h.audio.Find(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeServiceError(w, h.logger, err, "find audio")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
