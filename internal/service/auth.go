package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/auth"
	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/internal/quota"
	"github.com/farelProject/v-technology/internal/store"
	"github.com/farelProject/v-technology/internal/upload"
	"github.com/farelProject/v-technology/pkg/logger"
)

const minPasswordLength = 6

// AuthService handles accounts and password resets.
type AuthService struct {
	store     store.Store
	tokens    *auth.TokenManager
	images    ImageRemover
	events    EventPublisher
	userLimit int
	logger    *logger.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	st store.Store,
	tokens *auth.TokenManager,
	images ImageRemover,
	events EventPublisher,
	userLimit int,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		store:     st,
		tokens:    tokens,
		images:    images,
		events:    events,
		userLimit: userLimit,
		logger:    log.Named("auth"),
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email", "email is not valid")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return invalid("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(password) > 72 {
		return invalid("password", "password must be at most 72 bytes")
	}
	return nil
}

func (s *AuthService) issue(user *model.User) (*model.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{Token: token, ExpiresAt: expiresAt, User: user.Public()}, nil
}

// Register creates an account with the default daily chat limit.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)

	if name == "" {
		return nil, invalid("name", "name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		ChatLimit:    quota.New(s.userLimit, now),
		CreatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	publish(ctx, s.events, s.logger, &model.ChatEvent{Type: model.EventUserRegistered, UserID: user.ID})

	return s.issue(user)
}

// Login checks credentials. Unknown emails and wrong passwords fail alike.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// Profile returns the signed-in user.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// DeleteAccount removes the user, their sessions and the images those
// sessions reference.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	sessions, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	removed := 0
	for _, session := range sessions {
		removed += removeImages(ctx, s.images, s.logger, &session)
	}

	s.logger.Info("user deleted",
		zap.String("user_id", userID),
		zap.Int("sessions", len(sessions)),
		zap.Int("images", removed),
	)
	publish(ctx, s.events, s.logger, &model.ChatEvent{Type: model.EventUserDeleted, UserID: userID})
	return nil
}

// removeImages deletes the images hosted for a session and returns how many went.
func removeImages(ctx context.Context, images ImageRemover, log *logger.Logger, session *model.ChatSession) int {
	removed := 0
	for _, url := range session.ImageURLs() {
		err := images.Delete(ctx, url)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, upload.ErrUnsupportedLocation):
		default:
			log.Warn("failed to delete image", zap.String("url", url), zap.Error(err))
		}
	}
	return removed
}

// RequestPasswordReset stores a one hour reset token for the email and
// hands it to the mailer through the event stream. An unknown email
// succeeds with an empty token.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	token, expires, err := auth.NewResetToken(s.now())
	if err != nil {
		return "", err
	}
	user.SetResetToken(token, expires)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	publish(ctx, s.events, s.logger, &model.ChatEvent{
		Type:   model.EventPasswordResetRequested,
		UserID: user.ID,
		Metadata: map[string]string{
			"email":      user.Email,
			"name":       user.Name,
			"token":      token,
			"expires_at": expires.UTC().Format(time.RFC3339),
		},
	})
	return token, nil
}

// LookupResetToken returns the email a valid token belongs to.
func (s *AuthService) LookupResetToken(ctx context.Context, token string) (string, error) {
	user, err := s.store.GetUserByResetToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", ErrInvalidResetToken
		}
		return "", fmt.Errorf("failed to look up token: %w", err)
	}
	return user.Email, nil
}

// ResetPassword sets a new password and consumes the token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	user, err := s.store.GetUserByResetToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to look up token: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	user.ClearResetToken()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.logger.Info("password reset", zap.String("user_id", user.ID))
	return nil
}
