package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageType is the kind of content an assistant message carries.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeAudio MessageType = "audio"
)

// SearchResult is one link produced by the search flow.
type SearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Message is a single turn in a chat session.
type Message struct {
	ID            string         `json:"id"`
	Role          Role           `json:"role"`
	Content       string         `json:"content"`
	Type          MessageType    `json:"type,omitempty"`
	ImageURL      string         `json:"image_url,omitempty"`
	AudioURL      string         `json:"audio_url,omitempty"`
	AudioTitle    string         `json:"audio_title,omitempty"`
	SearchResults []SearchResult `json:"search_results,omitempty"`
	IsLoading     bool           `json:"isLoading,omitempty"`
	UserID        string         `json:"userId"`
}

// ChatSession is a titled conversation owned by one user.
type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	Messages  []Message `json:"messages"`
}

// ImageURLs returns every image referenced by the session's messages.
func (s *ChatSession) ImageURLs() []string {
	var urls []string
	for _, m := range s.Messages {
		if m.ImageURL != "" {
			urls = append(urls, m.ImageURL)
		}
	}
	return urls
}

// SessionSummary is the history list entry for a session.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Timestamp    time.Time `json:"timestamp"`
	MessageCount int       `json:"message_count"`
}

// Summary builds the history list entry for s.
func (s *ChatSession) Summary() SessionSummary {
	return SessionSummary{
		ID:           s.ID,
		Title:        s.Title,
		Timestamp:    s.Timestamp,
		MessageCount: len(s.Messages),
	}
}

// ListSessionsResponse is the response for the history page.
type ListSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	Total    int              `json:"total"`
}
