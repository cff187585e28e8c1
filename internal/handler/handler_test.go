package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelProject/v-technology/internal/auth"
	"github.com/farelProject/v-technology/internal/flow"
	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/internal/quota"
	"github.com/farelProject/v-technology/internal/service"
	"github.com/farelProject/v-technology/internal/store"
	"github.com/farelProject/v-technology/internal/upload"
	"github.com/farelProject/v-technology/pkg/logger"
)

const pngURI = "data:image/png;base64,aGVsbG8="

type stubFlows struct {
	err error
}

func (f *stubFlows) Chat(ctx context.Context, in flow.Input) (*flow.ChatOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &flow.ChatOutput{Response: "hi from the assistant"}, nil
}

func (f *stubFlows) ChatWithSearch(ctx context.Context, in flow.Input) (*flow.SearchOutput, error) {
	return &flow.SearchOutput{Response: "results", SearchResults: flow.WebSearch(in.Query)}, nil
}

func (f *stubFlows) GenerateImage(ctx context.Context, prompt string) *flow.ImageOutput {
	return &flow.ImageOutput{ImageURL: pngURI}
}

type stubFinder struct{}

func (stubFinder) YoutubeAudio(ctx context.Context, query string) model.AudioResult {
	return model.AudioResult{Success: true, Title: query, AudioURL: "https://cdn.example/a.mp3"}
}

type testServer struct {
	*httptest.Server
	flows *stubFlows
}

func newTestServer(t *testing.T, guestLimit int) *testServer {
	t.Helper()

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	uploadsDir := t.TempDir()
	uploader, err := upload.NewLocalUploader(uploadsDir)
	require.NoError(t, err)

	log := logger.NewNop()
	events := service.NopPublisher{}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	flows := &stubFlows{}

	authSvc := service.NewAuthService(st, tokens, uploader, events, 100, log)
	sessionSvc := service.NewSessionService(st, uploader, events, log)
	chatSvc := service.NewChatService(st, sessionSvc, flows, uploader, quota.NewGuestTracker(guestLimit, time.Hour), events, log)
	audioSvc := service.NewAudioService(stubFinder{}, log)

	router := NewRouter(RouterConfig{
		Health:         NewHealthHandler(st, nil),
		Auth:           NewAuthHandler(authSvc, true, log),
		Sessions:       NewSessionHandler(sessionSvc, log),
		Chat:           NewChatHandler(chatSvc, audioSvc, uploader, log),
		Tokens:         tokens,
		UploadsDir:     uploadsDir,
		AllowedOrigins: []string{"*"},
		RateLimit:      1000,
		RateWindow:     time.Minute,
		Logger:         log,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, flows: flows}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Farel", "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status)
	return body["token"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 10)

	status, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, 10)
	token := s.register(t, "farel@example.com")

	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Farel", "email": "FAREL@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "User with this email already exists.", body["error"])

	status, body = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Farel", "email": "x@example.com", "password": "1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "password")

	status, _ = s.do(t, http.MethodPost, "/api/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "farel@example.com", "password": "wrong-one",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password.", body["error"])

	status, body = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "farel@example.com", body["email"])
	assert.NotContains(t, body, "password")

	status, _ = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodDelete, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t, 10)
	s.register(t, "farel@example.com")

	status, body := s.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "token")

	status, body = s.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "farel@example.com"})
	require.Equal(t, http.StatusOK, status)
	token := body["token"].(string)

	status, body = s.do(t, http.MethodGet, "/api/auth/reset-password/"+token, "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "farel@example.com", body["email"])

	status, _ = s.do(t, http.MethodGet, "/api/auth/reset-password/garbage", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"token": token, "password": "brand-new"})
	assert.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"token": token, "password": "brand-new"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Password reset token is invalid or has expired.", body["error"])

	status, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "farel@example.com", "password": "brand-new"})
	assert.Equal(t, http.StatusOK, status)
}

func TestChatAsUser(t *testing.T) {
	s := newTestServer(t, 10)
	token := s.register(t, "farel@example.com")

	status, body := s.do(t, http.MethodPost, "/api/chat", token, map[string]any{
		"input": "hello", "mode": "chat",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["saved"])
	assistant := body["assistant_message"].(map[string]any)
	assert.Equal(t, "hi from the assistant", assistant["content"])
	sessionID := body["session"].(map[string]any)["id"].(string)

	status, body = s.do(t, http.MethodGet, "/api/sessions", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	status, body = s.do(t, http.MethodGet, "/api/sessions/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello...", body["title"])
	assert.Len(t, body["messages"], 2)

	status, body = s.do(t, http.MethodGet, "/api/limit", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(99), body["remaining"])
	assert.Equal(t, false, body["guest"])

	status, _ = s.do(t, http.MethodDelete, "/api/sessions/"+sessionID, token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, body = s.do(t, http.MethodGet, "/api/sessions/"+sessionID, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Chat session not found.", body["error"])

	status, _ = s.do(t, http.MethodGet, "/api/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestChatAsGuest(t *testing.T) {
	s := newTestServer(t, 1)

	status, body := s.do(t, http.MethodPost, "/api/chat", "", map[string]any{"input": "a cat", "mode": "image"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body["error"], "Feature Locked")

	status, body = s.do(t, http.MethodPost, "/api/chat", "", map[string]any{"input": "hello"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["saved"])

	status, body = s.do(t, http.MethodPost, "/api/chat", "", map[string]any{"input": "again"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Please log in to continue chatting.", body["error"])

	status, body = s.do(t, http.MethodGet, "/api/limit", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["guest"])
	assert.Equal(t, float64(0), body["remaining"])

	status, _ = s.do(t, http.MethodPost, "/api/chat", "", map[string]any{"input": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestChatAIFailure(t *testing.T) {
	s := newTestServer(t, 10)
	token := s.register(t, "farel@example.com")
	s.flows.err = errors.New("model overloaded")

	status, body := s.do(t, http.MethodPost, "/api/chat", token, map[string]any{"input": "hello"})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "The AI model is currently busy. Please try again in a few moments.", body["error"])

	status, body = s.do(t, http.MethodGet, "/api/limit", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(100), body["remaining"])
}

func TestUpload(t *testing.T) {
	s := newTestServer(t, 10)
	token := s.register(t, "farel@example.com")

	status, _ := s.do(t, http.MethodPost, "/api/upload", "", map[string]string{"image": pngURI})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodPost, "/api/upload", token, map[string]string{"image": "data:text/plain;base64,aGk="})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid image data", body["error"])

	status, body = s.do(t, http.MethodPost, "/api/upload", token, map[string]string{"image": pngURI})
	require.Equal(t, http.StatusCreated, status)
	url := body["url"].(string)
	require.True(t, strings.HasPrefix(url, "/uploads/"))

	resp, err := s.Client().Get(s.URL + url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAudio(t *testing.T) {
	s := newTestServer(t, 10)

	status, body := s.do(t, http.MethodGet, "/api/audio?query=lofi", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "lofi", body["title"])

	status, _ = s.do(t, http.MethodGet, "/api/audio", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
