package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/farelProject/v-technology/pkg/metrics"
)

// PublicPrefix is the URL path local images are served under.
const PublicPrefix = "/uploads/"

// LocalUploader writes images into a directory served at /uploads/.
type LocalUploader struct {
	dir string
}

// NewLocalUploader ensures dir exists.
func NewLocalUploader(dir string) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}
	return &LocalUploader{dir: dir}, nil
}

func (u *LocalUploader) Name() string {
	return "local"
}

// Dir returns the directory images are written to.
func (u *LocalUploader) Dir() string {
	return u.dir
}

// Upload stores the image as <uuid>.<ext>.
func (u *LocalUploader) Upload(ctx context.Context, dataURI string) (string, error) {
	img, err := ParseImage(dataURI)
	if err != nil {
		metrics.RecordUpload(u.Name(), "invalid")
		return "", err
	}

	filename := uuid.NewString() + "." + img.Extension
	if err := os.WriteFile(filepath.Join(u.dir, filename), img.Data, 0o644); err != nil {
		metrics.RecordUpload(u.Name(), "error")
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	metrics.RecordUpload(u.Name(), "ok")
	return PublicPrefix + filename, nil
}

// Delete removes a /uploads/<file> image. Missing files are not an error.
func (u *LocalUploader) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, PublicPrefix) {
		return ErrUnsupportedLocation
	}
	name := path.Base(url)
	if name == "." || name == "/" || name != strings.TrimPrefix(url, PublicPrefix) {
		return ErrUnsupportedLocation
	}

	err := os.Remove(filepath.Join(u.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
