package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = time.Hour

// NewResetToken returns 32 random bytes, hex encoded, and the expiry measured from now.
func NewResetToken(now time.Time) (string, time.Time, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), now.Add(ResetTokenTTL), nil
}
