package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/flow"
	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/internal/quota"
	"github.com/farelProject/v-technology/internal/store"
	"github.com/farelProject/v-technology/internal/upload"
	"github.com/farelProject/v-technology/pkg/logger"
	"github.com/farelProject/v-technology/pkg/metrics"
)

const (
	busyMessage        = "The AI model is currently busy. Please try again in a few moments."
	failedMessage      = "Failed to get a response from the AI. Please try again."
	rehostWarning      = "Could not save the generated image to the server."
	imageContentFormat = "Here is the image you requested for: %q"
)

// AIFlows runs the AI operation behind each chat mode.
type AIFlows interface {
	Chat(ctx context.Context, in flow.Input) (*flow.ChatOutput, error)
	ChatWithSearch(ctx context.Context, in flow.Input) (*flow.SearchOutput, error)
	GenerateImage(ctx context.Context, prompt string) *flow.ImageOutput
}

// ChatService runs the send pipeline and tracks chat limits.
type ChatService struct {
	store    store.Store
	sessions *SessionService
	flows    AIFlows
	uploader upload.Uploader
	guests   *quota.GuestTracker
	events   EventPublisher
	logger   *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(
	st store.Store,
	sessions *SessionService,
	flows AIFlows,
	uploader upload.Uploader,
	guests *quota.GuestTracker,
	events EventPublisher,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		store:    st,
		sessions: sessions,
		flows:    flows,
		uploader: uploader,
		guests:   guests,
		events:   events,
		logger:   log.Named("chat"),
		tracer:   otel.Tracer("github.com/farelProject/v-technology/internal/service"),
		now:      time.Now,
	}
}

func audience(c Caller) string {
	if c.IsGuest() {
		return "guest"
	}
	return "user"
}

// BuildQuery prefixes the user's input with the chosen style and persona.
func BuildQuery(settings model.Settings, input string) string {
	settings = settings.Normalize()
	return fmt.Sprintf("AI Style: %s, AI Model: %s.\n\nQuery: %s", settings.AiStyle, settings.AiModel, input)
}

// Limit returns the caller's chat limit, applying and persisting a day rollover.
func (s *ChatService) Limit(ctx context.Context, caller Caller) (*model.LimitResponse, error) {
	limit, err := s.currentLimit(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &model.LimitResponse{
		ChatLimit: limit,
		Remaining: quota.Remaining(limit),
		Guest:     caller.IsGuest(),
	}, nil
}

func (s *ChatService) currentLimit(ctx context.Context, caller Caller) (model.ChatLimit, error) {
	if caller.IsGuest() {
		return s.guests.Peek(caller.GuestID), nil
	}
	now := s.now()
	limit, err := s.store.UpdateChatLimit(ctx, caller.UserID, func(l *model.ChatLimit) error {
		quota.Refresh(l, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return model.ChatLimit{}, ErrUserNotFound
		}
		return model.ChatLimit{}, fmt.Errorf("failed to load chat limit: %w", err)
	}
	return limit, nil
}

func (s *ChatService) consume(ctx context.Context, caller Caller) (model.ChatLimit, error) {
	if caller.IsGuest() {
		return s.guests.Consume(caller.GuestID)
	}
	now := s.now()
	return s.store.UpdateChatLimit(ctx, caller.UserID, func(l *model.ChatLimit) error {
		quota.Refresh(l, now)
		return quota.Consume(l)
	})
}

func (s *ChatService) refund(ctx context.Context, caller Caller) model.ChatLimit {
	if caller.IsGuest() {
		return s.guests.Refund(caller.GuestID)
	}
	limit, err := s.store.UpdateChatLimit(ctx, caller.UserID, func(l *model.ChatLimit) error {
		quota.Refund(l)
		return nil
	})
	if err != nil {
		s.logger.Error("failed to refund chat limit", zap.String("user_id", caller.UserID), zap.Error(err))
	}
	return limit
}

func (s *ChatService) rejectLimit(ctx context.Context, caller Caller, limit model.ChatLimit) error {
	metrics.ChatLimitRejections.WithLabelValues(audience(caller)).Inc()
	if !caller.IsGuest() {
		publish(ctx, s.events, s.logger, &model.ChatEvent{
			Type:   model.EventLimitReached,
			UserID: caller.UserID,
			Metadata: map[string]string{
				"limit":      fmt.Sprint(limit.Limit),
				"next_reset": quota.NextReset(limit).Format(time.RFC3339),
			},
		})
	}
	return &LimitError{Guest: caller.IsGuest(), ChatLimit: limit}
}

func (s *ChatService) resolveSession(ctx context.Context, caller Caller, sessionID string) (*model.ChatSession, error) {
	if caller.IsGuest() || sessionID == "" {
		return s.sessions.New(caller.UserID), nil
	}
	return s.sessions.Get(ctx, caller.UserID, sessionID)
}

// Send runs one exchange: the user's message goes through the AI flow for
// req.Mode and both messages are appended to the session. Quota is spent
// only when the flow answers.
func (s *ChatService) Send(ctx context.Context, caller Caller, req *model.ChatRequest) (resp *model.ChatResponse, err error) {
	mode := req.Mode
	if mode == "" {
		mode = model.AiModeChat
	}

	ctx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.String("chat.mode", string(mode)),
		attribute.String("chat.audience", audience(caller)),
		attribute.Bool("chat.file", req.File != ""),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = outcomeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		metrics.RecordSend(string(mode), audience(caller), outcome)
		span.End()
	}()

	input := strings.TrimSpace(req.Input)
	if input == "" && req.File == "" {
		return nil, ErrEmptyInput
	}
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	if caller.IsGuest() && (mode != model.AiModeChat || req.File != "") {
		return nil, ErrFeatureLocked
	}

	session, err := s.resolveSession(ctx, caller, req.SessionID)
	if err != nil {
		return nil, err
	}

	limit, err := s.currentLimit(ctx, caller)
	if err != nil {
		return nil, err
	}
	if quota.Exhausted(limit) {
		return nil, s.rejectLimit(ctx, caller, limit)
	}

	var fileURL string
	if req.File != "" {
		fileURL, err = s.upload(ctx, req.File)
		if err != nil {
			return nil, &UploadError{Err: err}
		}
	}

	limit, err = s.consume(ctx, caller)
	if err != nil {
		s.discardUpload(ctx, fileURL)
		if errors.Is(err, quota.ErrExhausted) {
			return nil, s.rejectLimit(ctx, caller, limit)
		}
		return nil, fmt.Errorf("failed to consume chat limit: %w", err)
	}
	warning := quota.Warning(limit)

	userMsg := model.Message{
		ID:       uuid.Must(uuid.NewV7()).String(),
		Role:     model.RoleUser,
		Content:  input,
		Type:     model.MessageTypeText,
		ImageURL: fileURL,
		UserID:   caller.ID(),
	}

	assistantMsg, flowWarning, err := s.runFlow(ctx, mode, req, input)
	if err != nil {
		limit = s.refund(ctx, caller)
		s.discardUpload(ctx, fileURL)
		s.logger.Error("AI flow failed",
			zap.String("mode", string(mode)),
			zap.String("caller", caller.ID()),
			zap.Error(err),
		)
		return nil, &AIError{Message: aiMessage(err), Err: err}
	}
	assistantMsg.UserID = caller.ID()
	if flowWarning != "" {
		warning = joinWarnings(warning, flowWarning)
	}

	session.Messages = append(session.Messages, userMsg, assistantMsg)

	saved := false
	if !caller.IsGuest() {
		if err := s.sessions.Save(ctx, caller.UserID, session); err != nil {
			s.logger.Error("failed to save session",
				zap.String("user_id", caller.UserID),
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		} else {
			saved = true
		}
	}

	return &model.ChatResponse{
		Session:          session,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		ChatLimit:        limit,
		Warning:          warning,
		Saved:            saved,
	}, nil
}

func (s *ChatService) upload(ctx context.Context, dataURI string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "chat.upload", trace.WithAttributes(
		attribute.String("upload.host", s.uploader.Name()),
	))
	defer span.End()

	url, err := s.uploader.Upload(ctx, dataURI)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return "", err
	}
	return url, nil
}

// discardUpload removes an attachment uploaded for a send that did not
// complete.
func (s *ChatService) discardUpload(ctx context.Context, url string) {
	if url == "" {
		return
	}
	err := s.uploader.Delete(ctx, url)
	if err != nil && !errors.Is(err, upload.ErrUnsupportedLocation) {
		s.logger.Warn("failed to discard upload", zap.String("url", url), zap.Error(err))
	}
}

// runFlow produces the assistant message for mode, plus a warning when the
// answer was degraded.
func (s *ChatService) runFlow(ctx context.Context, mode model.AiMode, req *model.ChatRequest, input string) (model.Message, string, error) {
	ctx, span := s.tracer.Start(ctx, "chat.flow", trace.WithAttributes(
		attribute.String("chat.mode", string(mode)),
	))
	defer span.End()

	msg := model.Message{
		ID:   uuid.Must(uuid.NewV7()).String(),
		Role: model.RoleAssistant,
		Type: model.MessageTypeText,
	}
	in := flow.Input{
		Query:       BuildQuery(req.Settings, input),
		SearchTerms: input,
		File:        req.File,
	}

	switch mode {
	case model.AiModeImage:
		out := s.flows.GenerateImage(ctx, input)
		msg.Type = model.MessageTypeImage
		msg.Content = fmt.Sprintf(imageContentFormat, input)
		msg.ImageURL = out.ImageURL
		if !strings.HasPrefix(out.ImageURL, "data:") {
			return msg, "", nil
		}
		hosted, err := s.upload(ctx, out.ImageURL)
		if err != nil {
			s.logger.Warn("failed to re-host generated image", zap.Error(err))
			return msg, rehostWarning, nil
		}
		msg.ImageURL = hosted
		return msg, "", nil

	case model.AiModeSearch:
		out, err := s.flows.ChatWithSearch(ctx, in)
		if err != nil {
			span.RecordError(err)
			return msg, "", err
		}
		msg.Content = out.Response
		msg.SearchResults = out.SearchResults
		return msg, "", nil

	default:
		out, err := s.flows.Chat(ctx, in)
		if err != nil {
			span.RecordError(err)
			return msg, "", err
		}
		msg.Content = out.Response
		return msg, "", nil
	}
}

func aiMessage(err error) string {
	if strings.Contains(strings.ToLower(err.Error()), "overloaded") {
		return busyMessage
	}
	return failedMessage
}

func joinWarnings(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrChatLimitReached):
		return "limited"
	case errors.Is(err, ErrFeatureLocked):
		return "locked"
	case errors.Is(err, ErrUploadFailed):
		return "upload_error"
	case errors.Is(err, ErrAIUnavailable):
		return "ai_error"
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrInvalidMode), errors.Is(err, ErrSessionNotFound):
		return "rejected"
	default:
		return "error"
	}
}
