package media

import (
	"bytes"
	"errors"
	"fmt"
	"go-blog-app/internal/config"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// imageDir is the sub-directory post images are stored in.
const imageDir = "posts_images"

var (
	// ErrUnsupportedType is returned for uploads that are not JPEG, PNG or GIF images.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrTooLarge is returned for uploads over the configured size limit.
	ErrTooLarge = errors.New("image too large")
)

var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
}

// Storage keeps uploaded images on the local filesystem.
type Storage struct {
	dir      string
	maxBytes int64
}

// New creates the media directory if needed.
func New(cfg config.MediaConfig) (*Storage, error) {
	if err := os.MkdirAll(filepath.Join(cfg.Dir, imageDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	maxMB := cfg.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 5
	}
	return &Storage{dir: cfg.Dir, maxBytes: maxMB << 20}, nil
}

// Dir returns the root directory served under /media/.
func (s *Storage) Dir() string {
	return s.dir
}

// Save validates and stores an image. It returns the stored name relative
// to Dir.
func (s *Storage) Save(r io.Reader) (string, error) {
	// Read one byte past the limit to detect oversized uploads.
	buf, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(buf)) > s.maxBytes {
		return "", ErrTooLarge
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return "", ErrUnsupportedType
	}
	ext, ok := extensions[format]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := filepath.ToSlash(filepath.Join(imageDir, uuid.NewString()+ext))
	if err := os.WriteFile(filepath.Join(s.dir, filepath.FromSlash(name)), buf, 0o644); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return name, nil
}

// Remove deletes a stored image. Missing files are ignored.
func (s *Storage) Remove(name string) error {
	if name == "" {
		return nil
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("invalid media name %q", name)
	}
	if err := os.Remove(filepath.Join(s.dir, clean)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}
