// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	Env                string

	// Storage settings
	StoreDriver string
	DataDir     string
	DatabaseURL string

	// Image hosting
	UploadsDir  string
	ImageHost   string
	ImgBBAPIKey []string
	ImgBBURL    string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret        string
	JWTExpiration    time.Duration
	ExposeResetToken bool

	// LLM settings
	LLMProvider     string
	GeminiAPIKey    string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	ChatModel       string
	ImageModel      string
	ImageProvider   string
	LLMTimeout      time.Duration

	// Chat limits
	UserChatLimit  int
	GuestChatLimit int
	GuestIdleTTL   time.Duration

	// Audio lookup
	YTPlayAPIURL string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// CORS
	AllowedOrigins []string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		Env:                getEnv("ENV", "production"),

		// Storage
		StoreDriver: getEnv("STORE_DRIVER", "file"),
		DataDir:     getEnv("DATA_DIR", "data"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Images
		UploadsDir:  getEnv("UPLOADS_DIR", "public/uploads"),
		ImageHost:   getEnv("IMAGE_HOST", "local"),
		ImgBBAPIKey: getListEnv("IMGBB_API_KEY"),
		ImgBBURL:    getEnv("IMGBB_URL", "https://api.imgbb.com/1/upload"),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret:        getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration:    getDurationEnv("JWT_EXPIRATION", 7*24*time.Hour),
		ExposeResetToken: getBoolEnv("EXPOSE_RESET_TOKEN", false),

		// LLM
		LLMProvider:     getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		ChatModel:       getEnv("CHAT_MODEL", ""),
		ImageModel:      getEnv("IMAGE_MODEL", ""),
		ImageProvider:   getEnv("IMAGE_PROVIDER", ""),
		LLMTimeout:      getDurationEnv("LLM_TIMEOUT", 60*time.Second),

		// Limits
		UserChatLimit:  getIntEnv("USER_CHAT_LIMIT", 100),
		GuestChatLimit: getIntEnv("GUEST_CHAT_LIMIT", 10),
		GuestIdleTTL:   getDurationEnv("GUEST_IDLE_TTL", 48*time.Hour),

		// Audio
		YTPlayAPIURL: getEnv("YTPLAY_API_URL", "https://api.diioffc.web.id/api/search/ytplay"),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// CORS
		AllowedOrigins: getListEnvDefault("ALLOWED_ORIGINS", []string{"*"}),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// ImageProviderName returns the provider used for image generation, which
// defaults to the chat provider.
func (c *Config) ImageProviderName() string {
	if c.ImageProvider != "" {
		return c.ImageProvider
	}
	return c.LLMProvider
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated variable, dropping blank entries.
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getListEnvDefault(key string, defaultValue []string) []string {
	if list := getListEnv(key); len(list) > 0 {
		return list
	}
	return defaultValue
}
