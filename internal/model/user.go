// Package model defines data structures for the chat assistant.
package model

import (
	"time"
)

// ChatLimit is a daily message quota.
type ChatLimit struct {
	Count     int       `json:"count"`
	Limit     int       `json:"limit"`
	LastReset time.Time `json:"lastReset"`
}

// User is an account as stored. PasswordHash and the reset fields are
// persisted but never sent to clients; use Public for responses.
type User struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	PasswordHash         string    `json:"password,omitempty"`
	ResetPasswordToken   *string   `json:"resetPasswordToken"`
	ResetPasswordExpires *int64    `json:"resetPasswordExpires"`
	ChatLimit            ChatLimit `json:"chatLimit"`
	CreatedAt            time.Time `json:"createdAt"`
}

// PublicUser is the client facing view of a User.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public strips credentials from the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

// SetResetToken stores a reset token valid until expires.
func (u *User) SetResetToken(token string, expires time.Time) {
	ms := expires.UnixMilli()
	u.ResetPasswordToken = &token
	u.ResetPasswordExpires = &ms
}

// ClearResetToken removes any pending reset token.
func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordExpires = nil
}

// ResetTokenValid reports whether token matches the pending token and has not expired at now.
func (u *User) ResetTokenValid(token string, now time.Time) bool {
	if token == "" || u.ResetPasswordToken == nil || u.ResetPasswordExpires == nil {
		return false
	}
	return *u.ResetPasswordToken == token && *u.ResetPasswordExpires > now.UnixMilli()
}

// RegisterRequest is the request to create an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the request to sign in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned after register and login.
type AuthResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      PublicUser `json:"user"`
}

// ForgotPasswordRequest asks for a reset token.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse acknowledges a reset request. Token is only set
// when the server is configured to expose it.
type ForgotPasswordResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// ResetPasswordRequest sets a new password using a reset token.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
