// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/farelProject/v-technology/internal/auth"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// UserIDKey is the context key for user ID.
	UserIDKey ContextKey = "user_id"
	// EmailKey is the context key for the signed-in email.
	EmailKey ContextKey = "email"
	// GuestIDKey is the context key for the guest identity.
	GuestIDKey ContextKey = "guest_id"
)

// GuestHeader lets the extension pin a stable guest identity.
const GuestHeader = "X-Guest-ID"

const maxGuestIDLength = 64

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	noteUser(ctx, claims.Subject)
	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
	return context.WithValue(ctx, EmailKey, claims.Email)
}

// Auth creates JWT authentication middleware that rejects anonymous requests.
func Auth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				http.Error(w, `{"error":"Not authorized, no token"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				http.Error(w, `{"error":"Not authorized, token failed"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches the user when a valid token is present and a guest
// identity otherwise. A bad token is treated as no token.
func OptionalAuth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if tokenString, ok := bearerToken(r); ok {
				if claims, err := tokens.Parse(tokenString); err == nil {
					next.ServeHTTP(w, r.WithContext(withClaims(ctx, claims)))
					return
				}
			}
			ctx = context.WithValue(ctx, GuestIDKey, guestID(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func guestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(GuestHeader)); id != "" && len(id) <= maxGuestIDLength {
		return "guest:" + id
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetUserID gets user ID from context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetEmail gets the signed-in email from context.
func GetEmail(ctx context.Context) string {
	if v := ctx.Value(EmailKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetGuestID gets the guest identity from context.
func GetGuestID(ctx context.Context) string {
	if v := ctx.Value(GuestIDKey); v != nil {
		return v.(string)
	}
	return ""
}
