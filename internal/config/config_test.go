package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("USER_CHAT_LIMIT", "")
	t.Setenv("GUEST_CHAT_LIMIT", "")
	t.Setenv("IMGBB_API_KEY", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("NATS_URL", "")

	cfg := Load()

	assert.Equal(t, "file", cfg.StoreDriver)
	assert.Equal(t, 100, cfg.UserChatLimit)
	assert.Equal(t, 10, cfg.GuestChatLimit)
	assert.Empty(t, cfg.ImgBBAPIKey)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.NATSURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("USER_CHAT_LIMIT", "25")
	t.Setenv("JWT_EXPIRATION", "1h")
	t.Setenv("IMGBB_API_KEY", " k1, ,k2 ,k3")
	t.Setenv("EXPOSE_RESET_TOKEN", "true")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("IMAGE_PROVIDER", "")

	cfg := Load()

	assert.Equal(t, 25, cfg.UserChatLimit)
	assert.Equal(t, time.Hour, cfg.JWTExpiration)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.ImgBBAPIKey)
	assert.True(t, cfg.ExposeResetToken)
	assert.Equal(t, "openai", cfg.ImageProviderName())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("GUEST_CHAT_LIMIT", "lots")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")
	t.Setenv("TRACING_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 10, cfg.GuestChatLimit)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.TracingEnabled)
}
