package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farelProject/v-technology/internal/auth"
	"github.com/farelProject/v-technology/internal/middleware"
	"github.com/farelProject/v-technology/internal/upload"
	"github.com/farelProject/v-technology/pkg/logger"
)

// RouterConfig holds what the router needs to mount every endpoint.
type RouterConfig struct {
	Health   *HealthHandler
	Auth     *AuthHandler
	Sessions *SessionHandler
	Chat     *ChatHandler

	Tokens         *auth.TokenManager
	UploadsDir     string
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
	Logger         *logger.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	if cfg.UploadsDir != "" {
		fs := http.StripPrefix(upload.PublicPrefix, http.FileServer(http.Dir(cfg.UploadsDir)))
		r.Handle(upload.PublicPrefix+"*", fs)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateWindow))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/forgot-password", cfg.Auth.ForgotPassword)
			r.Post("/reset-password", cfg.Auth.ResetPassword)
			r.Get("/reset-password/{token}", cfg.Auth.CheckResetToken)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.Tokens))
				r.Get("/me", cfg.Auth.Me)
				r.Delete("/me", cfg.Auth.DeleteMe)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.Tokens))
			r.Use(middleware.UserRateLimit(cfg.RateLimit, cfg.RateWindow))

			r.Get("/limit", cfg.Chat.Limit)
			r.Post("/chat", cfg.Chat.Send)
			r.Post("/upload", cfg.Chat.Upload)
			r.Get("/audio", cfg.Chat.Audio)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Tokens))
			r.Get("/", cfg.Sessions.List)
			r.Get("/{id}", cfg.Sessions.Get)
			r.Delete("/{id}", cfg.Sessions.Delete)
		})
	})

	return r
}
