package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelProject/v-technology/pkg/logger"
)

const pngURI = "data:image/png;base64,aGVsbG8="

func TestParseImage(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		err  error
	}{
		{"valid png", pngURI, nil},
		{"valid jpeg", "data:image/jpeg;base64,aGVsbG8=", nil},
		{"not an image", "data:text/plain;base64,aGVsbG8=", ErrInvalidImageData},
		{"empty", "", ErrInvalidImageData},
		{"svg+xml is not a word extension", "data:image/svg+xml;base64,aGVsbG8=", ErrInvalidImageFormat},
		{"missing base64 marker", "data:image/png,aGVsbG8=", ErrInvalidImageFormat},
		{"bad payload", "data:image/png;base64,%%%", ErrInvalidImageFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ParseImage(tt.uri)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), img.Data)
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Invalid image data", Message(ErrInvalidImageData))
	assert.Equal(t, "All image hosting providers failed. Please try again later.", Message(ErrAllProvidersFailed))
	assert.True(t, IsInvalid(ErrInvalidImageFormat))
	assert.False(t, IsInvalid(ErrNotConfigured))
}

func TestLocalUploader(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir)
	require.NoError(t, err)
	ctx := context.Background()

	url, err := u.Upload(ctx, pngURI)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = u.Upload(ctx, "data:text/plain;base64,aGVsbG8=")
	assert.ErrorIs(t, err, ErrInvalidImageData)

	require.NoError(t, u.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, u.Delete(ctx, url), "deleting twice is fine")
	assert.ErrorIs(t, u.Delete(ctx, "https://i.ibb.co/x.png"), ErrUnsupportedLocation)
	assert.ErrorIs(t, u.Delete(ctx, "/uploads/../secret"), ErrUnsupportedLocation)
}

type fakeImgBB struct {
	mu       sync.Mutex
	goodKeys map[string]bool
	calls    []string
}

func (f *fakeImgBB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.FormValue("image") != "aGVsbG8=" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": map[string]string{"message": "bad image"}})
		return
	}
	if !f.goodKeys[key] {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": map[string]string{"message": "Invalid API v1 key."}})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]string{"url": "https://i.ibb.co/" + key + ".png"}})
}

func (f *fakeImgBB) takeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := f.calls
	f.calls = nil
	return calls
}

func TestImgBBRotation(t *testing.T) {
	fake := &fakeImgBB{goodKeys: map[string]bool{"k2": true, "k3": true}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	u := NewImgBBUploader(srv.URL, []string{"k1", " ", "k2", "k3"}, srv.Client(), logger.NewNop())
	ctx := context.Background()

	url, err := u.Upload(ctx, pngURI)
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/k2.png", url)
	assert.Equal(t, []string{"k1", "k2"}, fake.takeCalls())

	url, err = u.Upload(ctx, pngURI)
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/k3.png", url)
	assert.Equal(t, []string{"k3"}, fake.takeCalls())

	url, err = u.Upload(ctx, pngURI)
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/k2.png", url)
	assert.Equal(t, []string{"k1", "k2"}, fake.takeCalls())
}

func TestImgBBAllFail(t *testing.T) {
	fake := &fakeImgBB{goodKeys: map[string]bool{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	u := NewImgBBUploader(srv.URL, []string{"a", "b"}, srv.Client(), logger.NewNop())
	_, err := u.Upload(context.Background(), pngURI)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.Equal(t, []string{"a", "b"}, fake.takeCalls())
}

func TestImgBBNotConfigured(t *testing.T) {
	u := NewImgBBUploader("", []string{"", "  "}, nil, logger.NewNop())
	_, err := u.Upload(context.Background(), pngURI)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
