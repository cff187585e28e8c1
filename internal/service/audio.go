package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/pkg/logger"
)

// AudioFinder looks up a playable track for a query.
type AudioFinder interface {
	YoutubeAudio(ctx context.Context, query string) model.AudioResult
}

// AudioService finds YouTube audio for the player.
type AudioService struct {
	finder AudioFinder
	logger *logger.Logger
}

// NewAudioService creates a new audio service.
func NewAudioService(finder AudioFinder, log *logger.Logger) *AudioService {
	return &AudioService{finder: finder, logger: log.Named("audio")}
}

// Find returns the track for query.
func (s *AudioService) Find(ctx context.Context, query string) (model.AudioResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.AudioResult{}, invalid("query", "query is required")
	}
	result := s.finder.YoutubeAudio(ctx, query)
	if !result.Success {
		s.logger.Info("no audio found", zap.String("query", query), zap.String("reason", result.Message))
	}
	return result, nil
}
