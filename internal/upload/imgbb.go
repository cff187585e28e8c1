package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/farelProject/v-technology/pkg/logger"
	"github.com/farelProject/v-technology/pkg/metrics"
)

// DefaultImgBBURL is the ImgBB upload endpoint.
const DefaultImgBBURL = "https://api.imgbb.com/1/upload"

// ImgBBUploader uploads to ImgBB, rotating through API keys.
type ImgBBUploader struct {
	endpoint string
	keys     []string
	http     *http.Client
	logger   *logger.Logger

	mu   sync.Mutex
	next int
}

// NewImgBBUploader creates an uploader. Empty keys are discarded.
func NewImgBBUploader(endpoint string, keys []string, client *http.Client, log *logger.Logger) *ImgBBUploader {
	if endpoint == "" {
		endpoint = DefaultImgBBURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	var clean []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	return &ImgBBUploader{
		endpoint: endpoint,
		keys:     clean,
		http:     client,
		logger:   log.Named("imgbb"),
	}
}

func (u *ImgBBUploader) Name() string {
	return "imgbb"
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload tries each key once, starting after the last key that worked.
func (u *ImgBBUploader) Upload(ctx context.Context, dataURI string) (string, error) {
	if len(u.keys) == 0 {
		return "", ErrNotConfigured
	}

	img, err := ParseImage(dataURI)
	if err != nil {
		metrics.RecordUpload(u.Name(), "invalid")
		return "", err
	}

	u.mu.Lock()
	start := u.next
	u.mu.Unlock()

	for i := 0; i < len(u.keys); i++ {
		keyIndex := (start + i) % len(u.keys)
		key := u.keys[keyIndex]

		hosted, err := u.attempt(ctx, img.Base64, key)
		if err == nil {
			u.mu.Lock()
			u.next = (keyIndex + 1) % len(u.keys)
			u.mu.Unlock()
			metrics.RecordUpload(u.Name(), "ok")
			return hosted, nil
		}
		u.logger.Warn("imgbb upload failed",
			zap.String("key_suffix", keySuffix(key)),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	metrics.RecordUpload(u.Name(), "error")
	return "", ErrAllProvidersFailed
}

func (u *ImgBBUploader) attempt(ctx context.Context, b64, key string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("image", b64); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint+"?key="+url.QueryEscape(key), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result imgbbResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ImgBB API Error (HTTP %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || !result.Success || result.Data.URL == "" {
		if result.Error.Message != "" {
			return "", fmt.Errorf("%s", result.Error.Message)
		}
		return "", fmt.Errorf("ImgBB API Error (HTTP %d)", resp.StatusCode)
	}
	return result.Data.URL, nil
}

// Delete is a no-op; hosted images stay on ImgBB.
func (u *ImgBBUploader) Delete(ctx context.Context, url string) error {
	return ErrUnsupportedLocation
}

func keySuffix(key string) string {
	if len(key) <= 4 {
		return "..." + key
	}
	return "..." + key[len(key)-4:]
}
