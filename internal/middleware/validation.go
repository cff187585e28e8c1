package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxInputLength bounds a chat message.
	MaxInputLength = 20000
	// MaxBodyBytes bounds request bodies; attached images arrive inline as data URIs.
	MaxBodyBytes = 12 << 20
)

// ValidateInput validates chat message text. Empty input is left to the
// send pipeline, which allows it when a file is attached.
func ValidateInput(input string) error {
	if len(input) > MaxInputLength {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(input) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a chat session ID. New sessions get UUIDs;
// older saved sessions may carry other printable ids.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err == nil {
		return nil
	}
	if id == "" || len(id) > 128 || strings.ContainsAny(id, "/\\ ") {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateResetToken validates the shape of a password reset token.
func ValidateResetToken(token string) error {
	if len(token) != 64 {
		return errors.New("invalid reset token format")
	}
	for _, c := range token {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return errors.New("invalid reset token format")
		}
	}
	return nil
}
