// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/auth"
	"github.com/farelProject/v-technology/internal/config"
	"github.com/farelProject/v-technology/internal/flow"
	"github.com/farelProject/v-technology/internal/handler"
	"github.com/farelProject/v-technology/internal/llm"
	natsclient "github.com/farelProject/v-technology/internal/nats"
	"github.com/farelProject/v-technology/internal/quota"
	"github.com/farelProject/v-technology/internal/service"
	"github.com/farelProject/v-technology/internal/store"
	"github.com/farelProject/v-technology/internal/upload"
	"github.com/farelProject/v-technology/pkg/logger"
	"github.com/farelProject/v-technology/pkg/tracing"
)

const serviceName = "v-technology"

func main() {
	cfg := config.Load()

	var (
		log *logger.Logger
		err error
	)
	if cfg.Env == "development" {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server", zap.String("env", cfg.Env))

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	st, err := store.New(store.Options{
		Driver:      store.Driver(cfg.StoreDriver),
		DataDir:     cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		log.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.Close()

	// Events are optional; without NATS they are dropped.
	var (
		events     service.EventPublisher = service.NopPublisher{}
		natsClient *natsclient.Client
	)
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(ctx, natsclient.NewConfig(cfg, natsclient.APIClientName), log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient, log)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		events = streamManager
	} else {
		log.Info("NATS_URL not set, events disabled")
	}

	keys := llm.Keys{
		Gemini:    cfg.GeminiAPIKey,
		Anthropic: cfg.AnthropicAPIKey,
		OpenAI:    cfg.OpenAIAPIKey,
	}
	llmClient, err := llm.NewClient(ctx, llm.Provider(cfg.LLMProvider), keys, cfg.ChatModel)
	if err != nil {
		log.Fatal("failed to create LLM client", zap.String("provider", cfg.LLMProvider), zap.Error(err))
	}
	imageGen, err := llm.NewImageGenerator(ctx, llm.Provider(cfg.ImageProviderName()), keys, cfg.ImageModel)
	if err != nil {
		log.Warn("image generation disabled, placeholder images will be served", zap.Error(err))
		imageGen = nil
	}

	flows := flow.New(llmClient, imageGen, flow.Config{
		YTPlayURL: cfg.YTPlayAPIURL,
		Timeout:   cfg.LLMTimeout,
	}, log)

	local, err := upload.NewLocalUploader(cfg.UploadsDir)
	if err != nil {
		log.Fatal("failed to prepare uploads directory", zap.Error(err))
	}
	var uploader upload.Uploader = local
	if cfg.ImageHost == "imgbb" {
		uploader = upload.NewImgBBUploader(cfg.ImgBBURL, cfg.ImgBBAPIKey, nil, log)
	}
	log.Info("image hosting configured", zap.String("host", uploader.Name()))

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration)
	guests := quota.NewGuestTracker(cfg.GuestChatLimit, cfg.GuestIdleTTL)

	authSvc := service.NewAuthService(st, tokens, local, events, cfg.UserChatLimit, log)
	sessionSvc := service.NewSessionService(st, local, events, log)
	chatSvc := service.NewChatService(st, sessionSvc, flows, uploader, guests, events, log)
	audioSvc := service.NewAudioService(flows, log)

	router := handler.NewRouter(handler.RouterConfig{
		Health:         handler.NewHealthHandler(st, natsClient),
		Auth:           handler.NewAuthHandler(authSvc, cfg.ExposeResetToken, log),
		Sessions:       handler.NewSessionHandler(sessionSvc, log),
		Chat:           handler.NewChatHandler(chatSvc, audioSvc, uploader, log),
		Tokens:         tokens,
		UploadsDir:     local.Dir(),
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimitRequests,
		RateWindow:     cfg.RateLimitWindow,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      otelhttp.NewHandler(router, serviceName),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	pruneCtx, stopPrune := context.WithCancel(ctx)
	defer stopPrune()
	go pruneGuests(pruneCtx, guests, log)

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// pruneGuests drops idle guest quotas every hour.
func pruneGuests(ctx context.Context, guests *quota.GuestTracker, log *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := guests.Prune(); n > 0 {
				log.Debug("pruned idle guests", zap.Int("removed", n), zap.Int("active", guests.Len()))
			}
		}
	}
}
