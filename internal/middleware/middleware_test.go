package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelProject/v-technology/internal/auth"
	"github.com/farelProject/v-technology/pkg/logger"
)

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(GetUserID(r.Context()) + "|" + GetGuestID(r.Context())))
}

func TestAuth(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	token, _, err := tokens.Issue("user-1", "a@b.co")
	require.NoError(t, err)

	h := Auth(tokens)(http.HandlerFunc(echoIdentity))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no header", "", http.StatusUnauthorized, "no token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "no token"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "token failed"},
		{"valid", "Bearer " + token, http.StatusOK, "user-1|"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	token, _, err := tokens.Issue("user-1", "a@b.co")
	require.NoError(t, err)

	h := OptionalAuth(tokens)(http.HandlerFunc(echoIdentity))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "user-1|", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	req.Header.Set("Authorization", "Bearer expired-or-bad")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "|ip:10.0.0.7", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(GuestHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "|guest:abc", rec.Body.String())
}

func TestLoggingSetsCorrelationID(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	token, _, err := tokens.Issue("user-1", "a@b.co")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(Logging(logger.NewNop()))
	r.With(Auth(tokens)).Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		info, ok := r.Context().Value(requestInfoKey).(*requestInfo)
		require.True(t, ok)
		assert.Equal(t, "user-1", info.userID)
		w.Write([]byte(GetCorrelationID(r.Context())))
	})

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "corr-1", rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, "corr-1", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestValidation(t *testing.T) {
	assert.NoError(t, ValidateInput(""))
	assert.NoError(t, ValidateInput("hello"))
	assert.Error(t, ValidateInput(strings.Repeat("a", MaxInputLength+1)))
	assert.Error(t, ValidateInput("\xff"))

	assert.NoError(t, ValidateSessionID("0190a3c2-7b1e-7c3a-9a4e-5f6d7e8f9a0b"))
	assert.NoError(t, ValidateSessionID("1718000000000"))
	assert.Error(t, ValidateSessionID(""))
	assert.Error(t, ValidateSessionID("../users"))

	assert.NoError(t, ValidateResetToken(strings.Repeat("ab", 32)))
	assert.Error(t, ValidateResetToken("short"))
	assert.Error(t, ValidateResetToken(strings.Repeat("zz", 32)))
}
