package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farelProject/v-technology/internal/middleware"
	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/internal/service"
	"github.com/farelProject/v-technology/pkg/logger"
)

// SessionHandler handles chat history endpoints.
type SessionHandler struct {
	service *service.SessionService
	logger  *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(svc *service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.service.List(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeServiceError(w, h.logger, err, "list sessions")
		return
	}

	resp := model.ListSessionsResponse{
		Sessions: make([]model.SessionSummary, 0, len(sessions)),
		Total:    len(sessions),
	}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, sessions[i].Summary())
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.service.Get(ctx, middleware.GetUserID(ctx), sessionID)
	if err != nil {
		writeServiceError(w, h.logger, err, "load session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Delete handles DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Delete(ctx, middleware.GetUserID(ctx), sessionID); err != nil {
		writeServiceError(w, h.logger, err, "delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
