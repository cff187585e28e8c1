// Package store persists users and chat sessions.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/farelProject/v-technology/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrSessionNotFound   = errors.New("chat session not found")
)

// Store is the persistence boundary for accounts and chat history.
type Store interface {
	// User methods
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	// UpdateUser writes the profile, password and reset token. The chat limit
	// is left as stored; only UpdateChatLimit changes it.
	UpdateUser(ctx context.Context, user *model.User) error
	// DeleteUser removes the user and all their sessions, returning the removed sessions.
	DeleteUser(ctx context.Context, id string) ([]model.ChatSession, error)
	// UpdateChatLimit applies fn to the stored limit atomically and returns the result.
	// When fn fails nothing is written.
	UpdateChatLimit(ctx context.Context, userID string, fn func(*model.ChatLimit) error) (model.ChatLimit, error)

	// Session methods
	ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error)
	GetSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error)
	// SaveSession fails with ErrUserNotFound when the owner no longer exists.
	SaveSession(ctx context.Context, userID string, session *model.ChatSession) error
	DeleteSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error)

	Ping(ctx context.Context) error
	Close() error
}

// Driver names a storage backend.
type Driver string

const (
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite3"
	DriverPostgres Driver = "postgres"
)

// Options configures New.
type Options struct {
	Driver      Driver
	DataDir     string
	DatabaseURL string
}

// New opens the store selected by opts.Driver.
func New(opts Options) (Store, error) {
	switch opts.Driver {
	case DriverFile, "":
		return NewFileStore(opts.DataDir)
	case DriverSQLite, DriverPostgres:
		return NewSQLStore(opts.Driver, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", opts.Driver)
	}
}

// sortRecentFirst orders sessions by timestamp, newest first.
func sortRecentFirst(sessions []model.ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Timestamp.After(sessions[j].Timestamp)
	})
}

// stripLoading clears transient loading flags before a session is written.
func stripLoading(s *model.ChatSession) {
	for i := range s.Messages {
		s.Messages[i].IsLoading = false
	}
}
