// Package service provides business logic for the chat assistant.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/pkg/logger"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("reset token invalid or expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("chat session not found")
	ErrEmptyInput         = errors.New("message cannot be empty")
	ErrInvalidMode        = errors.New("unknown AI mode")
	ErrFeatureLocked      = errors.New("feature requires sign in")
	ErrChatLimitReached   = errors.New("chat limit reached")
	ErrUploadFailed       = errors.New("image upload failed")
	ErrAIUnavailable      = errors.New("AI flow failed")
)

// ValidationError describes a rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// LimitError is returned when the daily chat limit blocks a send.
type LimitError struct {
	Guest     bool
	ChatLimit model.ChatLimit
}

func (e *LimitError) Error() string {
	return "Chat Limit Reached: " + e.Message()
}

// Message is the user facing explanation.
func (e *LimitError) Message() string {
	if e.Guest {
		return "Please log in to continue chatting."
	}
	return "Your daily limit will reset in 24 hours."
}

func (e *LimitError) Unwrap() error {
	return ErrChatLimitReached
}

// AIError is returned when the AI flow failed; Message is safe to show.
type AIError struct {
	Message string
	Err     error
}

func (e *AIError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *AIError) Unwrap() []error {
	return []error{ErrAIUnavailable, e.Err}
}

// UploadError wraps a hosting failure.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return "image upload failed: " + e.Err.Error()
}

func (e *UploadError) Unwrap() []error {
	return []error{ErrUploadFailed, e.Err}
}

// EventPublisher sends domain events to the event stream.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *model.ChatEvent) (uint64, error)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(ctx context.Context, event *model.ChatEvent) (uint64, error) {
	return 0, nil
}

// ImageRemover deletes hosted images.
type ImageRemover interface {
	Delete(ctx context.Context, url string) error
}

// Caller identifies who is acting: a signed-in user or a guest.
type Caller struct {
	UserID  string
	GuestID string
}

// IsGuest reports whether the caller is not signed in.
func (c Caller) IsGuest() bool {
	return c.UserID == ""
}

// ID returns the user id, or "guest" for guests.
func (c Caller) ID() string {
	if c.IsGuest() {
		return "guest"
	}
	return c.UserID
}

// publish sends an event and logs failures; events never fail a request.
func publish(ctx context.Context, pub EventPublisher, log *logger.Logger, event *model.ChatEvent) {
	if _, err := pub.PublishEvent(ctx, event); err != nil {
		log.Warn("failed to publish event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}
