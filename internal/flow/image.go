package flow

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/farelProject/v-technology/pkg/metrics"
)

// ImageOutput is the result of image generation.
type ImageOutput struct {
	ImageURL string `json:"imageUrl"`
	// Placeholder is set when generation failed and the stand-in image was returned.
	Placeholder bool `json:"-"`
}

// GenerateImage creates an image for prompt. It never fails: when the
// provider errors or returns no image, the placeholder image is returned
// as a data URI, or as its plain URL when even that cannot be fetched.
func (f *Flows) GenerateImage(ctx context.Context, prompt string) *ImageOutput {
	if f.images != nil {
		genCtx, cancel := f.withTimeout(ctx)
		start := time.Now()
		uri, err := f.images.GenerateImage(genCtx, prompt)
		cancel()
		if err == nil {
			metrics.RecordLLMCall(f.images.Name(), "image", "ok", time.Since(start).Seconds(), "", 0, 0)
			return &ImageOutput{ImageURL: uri}
		}
		metrics.RecordLLMCall(f.images.Name(), "image", "error", time.Since(start).Seconds(), "", 0, 0)
		f.logger.Error("image generation failed", zap.Error(err))
	}

	uri, err := f.fetchPlaceholder(ctx)
	if err != nil {
		f.logger.Warn("placeholder fetch failed", zap.Error(err))
		return &ImageOutput{ImageURL: f.placeholder, Placeholder: true}
	}
	return &ImageOutput{ImageURL: uri, Placeholder: true}
}

func (f *Flows) fetchPlaceholder(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.placeholder, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("placeholder returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(body), nil
}
