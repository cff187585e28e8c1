package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/internal/store"
	"github.com/farelProject/v-technology/pkg/logger"
	"github.com/farelProject/v-technology/pkg/metrics"
)

const titleLength = 50

// SessionService manages saved chat sessions.
type SessionService struct {
	store  store.Store
	images ImageRemover
	events EventPublisher
	logger *logger.Logger
	now    func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(st store.Store, images ImageRemover, events EventPublisher, log *logger.Logger) *SessionService {
	return &SessionService{
		store:  st,
		images: images,
		events: events,
		logger: log.Named("sessions"),
		now:    time.Now,
	}
}

// New returns an empty session for userID. It is not stored until its
// first exchange is saved.
func (s *SessionService) New(userID string) *model.ChatSession {
	return &model.ChatSession{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Timestamp: s.now().UTC(),
		Messages:  []model.Message{},
	}
}

// List returns the user's sessions, most recent first.
func (s *SessionService) List(ctx context.Context, userID string) ([]model.ChatSession, error) {
	sessions, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Get returns one session owned by userID.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	session, err := s.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Title derives a session title from the first 50 characters of its first
// user message, always followed by an ellipsis. A message without text
// yields no title.
func Title(messages []model.Message) string {
	for _, m := range messages {
		if m.Role != model.RoleUser {
			continue
		}
		runes := []rune(strings.TrimSpace(m.Content))
		if len(runes) == 0 {
			return ""
		}
		if len(runes) > titleLength {
			runes = runes[:titleLength]
		}
		return string(runes) + "..."
	}
	return ""
}

// Save stores the session, titling it on first save and bumping its timestamp.
func (s *SessionService) Save(ctx context.Context, userID string, session *model.ChatSession) error {
	if session.Title == "" {
		session.Title = Title(session.Messages)
	}
	if session.Title == "" {
		session.Title = "New Chat"
	}
	session.UserID = userID
	session.Timestamp = s.now().UTC()

	if err := s.store.SaveSession(ctx, userID, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	metrics.SessionsSaved.Inc()
	publish(ctx, s.events, s.logger, &model.ChatEvent{
		Type:      model.EventSessionSaved,
		UserID:    userID,
		SessionID: session.ID,
	})
	return nil
}

// Delete removes a session and the images it references.
func (s *SessionService) Delete(ctx context.Context, userID, sessionID string) error {
	session, err := s.store.DeleteSession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	removed := removeImages(ctx, s.images, s.logger, session)
	s.logger.Info("session deleted",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Int("images", removed),
	)
	publish(ctx, s.events, s.logger, &model.ChatEvent{
		Type:      model.EventSessionDeleted,
		UserID:    userID,
		SessionID: sessionID,
	})
	return nil
}
