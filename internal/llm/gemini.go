package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultGeminiImageModel = "gemini-2.0-flash-preview-image-generation"
)

// GeminiClient is the Google Gemini LLM client.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return "gemini"
}

// Models returns available models.
func (c *GeminiClient) Models() []string {
	return []string{
		"gemini-2.0-flash",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	}
}

// Close releases the underlying connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Complete sends a completion request. Earlier turns become chat history and
// the last turn is sent.
func (c *GeminiClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	if len(req.Messages) == 0 {
		return nil, errors.New("no messages to send")
	}

	name := req.Model
	if name == "" {
		name = c.model
	}

	model := c.client.GenerativeModel(name)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	session := model.StartChat()
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		session.History = append(session.History, &genai.Content{
			Role:  geminiRole(msg.Role),
			Parts: geminiParts(msg),
		})
	}

	last := req.Messages[len(req.Messages)-1]
	resp, err := session.SendMessage(ctx, geminiParts(last)...)
	if err != nil {
		return nil, err
	}

	out := &CompletionResponse{Model: name}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var text strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text.WriteString(string(txt))
			}
		}
		out.Content = text.String()
		out.StopReason = resp.Candidates[0].FinishReason.String()
	}
	out.LatencyMs = time.Since(start).Milliseconds()

	return out, nil
}

func geminiRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}

func geminiParts(msg ChatMessage) []genai.Part {
	parts := make([]genai.Part, 0, len(msg.Attachments)+1)
	for _, att := range msg.Attachments {
		parts = append(parts, genai.Blob{MIMEType: att.MIMEType, Data: att.Data})
	}
	return append(parts, genai.Text(msg.Content))
}

// GeminiImageGenerator asks an image capable Gemini model for inline image data.
type GeminiImageGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiImageGenerator creates a Gemini image generator.
func NewGeminiImageGenerator(ctx context.Context, apiKey, model string) (*GeminiImageGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiImageModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiImageGenerator{client: client, model: model}, nil
}

// Name returns the provider name.
func (g *GeminiImageGenerator) Name() string {
	return "gemini"
}

// GenerateImage returns the first inline image of the response as a data URI.
func (g *GeminiImageGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && strings.HasPrefix(blob.MIMEType, "image/") {
				return "data:" + blob.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data), nil
			}
		}
	}
	return "", ErrNoImage
}
