// Package upload hosts user and generated images.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidImageData    = errors.New("invalid image data")
	ErrInvalidImageFormat  = errors.New("invalid image format")
	ErrNotConfigured       = errors.New("image hosting is not configured")
	ErrAllProvidersFailed  = errors.New("all image hosting providers failed")
	ErrUnsupportedLocation = errors.New("image is not hosted here")
)

// Message returns the text shown to users for an upload error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidImageData):
		return "Invalid image data"
	case errors.Is(err, ErrInvalidImageFormat):
		return "Invalid image format"
	case errors.Is(err, ErrNotConfigured):
		return "Image hosting is not configured."
	case errors.Is(err, ErrAllProvidersFailed):
		return "All image hosting providers failed. Please try again later."
	default:
		return "Failed to upload image."
	}
}

// IsInvalid reports whether err was caused by a malformed image.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidImageData) || errors.Is(err, ErrInvalidImageFormat)
}

// Uploader stores a base64 image data URI and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, dataURI string) (string, error)
	// Delete removes an image this uploader hosts. Foreign URLs are ignored.
	Delete(ctx context.Context, url string) error
	Name() string
}

var imagePattern = regexp.MustCompile(`^data:(image/(\w+));base64,(.+)$`)

// Image is a decoded image data URI.
type Image struct {
	MIMEType  string
	Extension string
	Base64    string
	Data      []byte
}

// ParseImage validates a data:image/<ext>;base64,<data> URI.
func ParseImage(dataURI string) (*Image, error) {
	if !strings.HasPrefix(dataURI, "data:image") {
		return nil, ErrInvalidImageData
	}
	m := imagePattern.FindStringSubmatch(dataURI)
	if m == nil {
		return nil, ErrInvalidImageFormat
	}
	data, err := base64.StdEncoding.DecodeString(m[3])
	if err != nil {
		return nil, ErrInvalidImageFormat
	}
	return &Image{MIMEType: m[1], Extension: m[2], Base64: m[3], Data: data}, nil
}
