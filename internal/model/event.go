package model

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

const (
	EventSessionSaved           EventType = "session.saved"
	EventSessionDeleted         EventType = "session.deleted"
	EventUserRegistered         EventType = "user.registered"
	EventUserDeleted            EventType = "user.deleted"
	EventPasswordResetRequested EventType = "password.reset_requested"
	EventLimitReached           EventType = "limit.reached"
)

// ChatEvent is published to the event stream when something notable happens.
type ChatEvent struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Sequence  uint64            `json:"sequence,omitempty"`
}

// ChatRequest is the body of a send.
type ChatRequest struct {
	SessionID string   `json:"session_id,omitempty"`
	Input     string   `json:"input"`
	Mode      AiMode   `json:"mode"`
	File      string   `json:"file,omitempty"`
	Settings  Settings `json:"settings"`
}

// ChatResponse is the result of a successful send.
type ChatResponse struct {
	Session          *ChatSession `json:"session"`
	UserMessage      Message      `json:"user_message"`
	AssistantMessage Message      `json:"assistant_message"`
	ChatLimit        ChatLimit    `json:"chat_limit"`
	Warning          string       `json:"warning,omitempty"`
	Saved            bool         `json:"saved"`
}

// LimitResponse reports the caller's current quota.
type LimitResponse struct {
	ChatLimit ChatLimit `json:"chat_limit"`
	Remaining int       `json:"remaining"`
	Guest     bool      `json:"guest"`
}

// AudioResult is the outcome of a YouTube audio lookup.
type AudioResult struct {
	Success  bool   `json:"success"`
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	AudioURL string `json:"audioUrl,omitempty"`
	Message  string `json:"message,omitempty"`
}

// UploadRequest carries a data URI to host.
type UploadRequest struct {
	Image string `json:"image"`
}

// UploadResponse returns where the image now lives.
type UploadResponse struct {
	URL string `json:"url"`
}
