// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Attachment is an inline image sent along with a prompt.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Base64 returns the attachment data base64 encoded.
func (a Attachment) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// DataURI renders the attachment as a data: URI.
func (a Attachment) DataURI() string {
	return "data:" + a.MIMEType + ";base64," + a.Base64()
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for a single JSON object as output.
	JSON bool
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"-"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// ImageGenerator produces an image for a prompt, returned as a data URI.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ErrNoImage is returned when a provider answered without image data.
var ErrNoImage = errors.New("provider returned no image")

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Keys holds the API keys for every provider.
type Keys struct {
	Gemini    string
	Anthropic string
	OpenAI    string
}

// NewClient creates a new LLM client based on provider.
func NewClient(ctx context.Context, provider Provider, keys Keys, model string) (Client, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, keys.Gemini, model)
	case ProviderAnthropic:
		return NewAnthropicClient(keys.Anthropic, model)
	case ProviderOpenAI:
		return NewOpenAIClient(keys.OpenAI, model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// NewImageGenerator creates an image generator based on provider. Anthropic
// has no image output, so it is rejected.
func NewImageGenerator(ctx context.Context, provider Provider, keys Keys, model string) (ImageGenerator, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiImageGenerator(ctx, keys.Gemini, model)
	case ProviderOpenAI:
		return NewOpenAIImageGenerator(keys.OpenAI, model)
	default:
		return nil, fmt.Errorf("provider %s cannot generate images", provider)
	}
}

var dataURIPattern = regexp.MustCompile(`^data:([\w.+-]+/[\w.+-]+);base64,(.+)$`)

// ParseDataURI decodes a base64 data: URI into an attachment.
func ParseDataURI(uri string) (Attachment, error) {
	m := dataURIPattern.FindStringSubmatch(strings.TrimSpace(uri))
	if m == nil {
		return Attachment{}, errors.New("invalid data URI")
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return Attachment{}, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return Attachment{MIMEType: m[1], Data: data}, nil
}
