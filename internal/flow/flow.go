// Package flow implements the AI operations behind the chat modes.
package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/llm"
	"github.com/farelProject/v-technology/pkg/logger"
	"github.com/farelProject/v-technology/pkg/metrics"
)

const (
	// PlaceholderImageURL is served when image generation fails.
	PlaceholderImageURL = "https://placehold.co/512x512/ccc/444.png?text=Image+not+available"

	chatFallback   = "I'm sorry, I encountered an error while processing your request. Please try again."
	searchFallback = "I'm sorry, I encountered an error while processing the search results. Please try again."
)

// ErrInvalidOutput is returned when the model's answer is not the expected JSON.
var ErrInvalidOutput = errors.New("model output did not match schema")

// Config tunes the flows.
type Config struct {
	PlaceholderURL string
	YTPlayURL      string
	HTTPClient     *http.Client
	Timeout        time.Duration
}

// Flows runs the chat, search, image and audio operations.
type Flows struct {
	client      llm.Client
	images      llm.ImageGenerator
	http        *http.Client
	placeholder string
	ytplayURL   string
	timeout     time.Duration
	logger      *logger.Logger
}

// New creates the flows. images may be nil, in which case image requests
// always receive the placeholder.
func New(client llm.Client, images llm.ImageGenerator, cfg Config, log *logger.Logger) *Flows {
	if cfg.PlaceholderURL == "" {
		cfg.PlaceholderURL = PlaceholderImageURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Flows{
		client:      client,
		images:      images,
		http:        cfg.HTTPClient,
		placeholder: cfg.PlaceholderURL,
		ytplayURL:   cfg.YTPlayURL,
		timeout:     cfg.Timeout,
		logger:      log.Named("flow"),
	}
}

// Input is a user query with an optional image as a data URI. SearchTerms
// is what the search flow looks up; when empty it falls back to Query.
type Input struct {
	Query       string
	SearchTerms string
	File        string
}

func (f *Flows) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout > 0 {
		return context.WithTimeout(ctx, f.timeout)
	}
	return context.WithCancel(ctx)
}

// complete runs one JSON completion and decodes it into out.
func (f *Flows) complete(ctx context.Context, name, system string, in Input, out any) error {
	msg := llm.ChatMessage{Role: "user", Content: in.Query}
	if in.File != "" {
		att, err := llm.ParseDataURI(in.File)
		if err != nil {
			return fmt.Errorf("invalid file: %w", err)
		}
		msg.Attachments = []llm.Attachment{att}
	}

	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := f.client.Complete(ctx, &llm.CompletionRequest{
		System:   system,
		Messages: []llm.ChatMessage{msg},
		JSON:     true,
	})
	if err != nil {
		metrics.RecordLLMCall(f.client.Name(), name, "error", time.Since(start).Seconds(), "", 0, 0)
		return err
	}
	metrics.RecordLLMCall(f.client.Name(), name, "ok", time.Since(start).Seconds(), resp.Model, resp.TokensIn, resp.TokensOut)

	if err := decodeJSON(resp.Content, out); err != nil {
		f.logger.Warn("model did not return valid JSON, using fallback",
			zap.String("flow", name),
			zap.String("model", resp.Model),
			zap.Error(err),
		)
		return ErrInvalidOutput
	}
	return nil
}

// decodeJSON extracts the JSON object from text, tolerating code fences
// and chatter around it.
func decodeJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return errors.New("no JSON object found")
	}
	return json.Unmarshal([]byte(text[start:end+1]), out)
}
