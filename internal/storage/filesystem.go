package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedImage is returned for content types the store does not accept.
var ErrUnsupportedImage = errors.New("storage: unsupported image type")

// imageExtensions maps the accepted upload content types to on-disk extensions.
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/webp": ".webp",
}

// FileStore persists donation images onto the local filesystem. It is intended
// for development and test environments where an object storage service is not
// available.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// SaveImage stores a donation photo under the owner's directory and returns
// the storage key to embed as image_url. The key is generated here so callers
// cannot place files outside the donations tree.
func (s *FileStore) SaveImage(ctx context.Context, ownerID, contentType string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, contentType)
	}
	owner, err := sanitizeSegment(ownerID)
	if err != nil {
		return "", err
	}
	key := "donations/" + owner + "/" + uuid.NewString() + ext
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return key, nil
}

// sanitizeSegment validates a single path segment so an owner id lifted from a
// token cannot escape the storage root.
func sanitizeSegment(segment string) (string, error) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "", errors.New("storage: owner id is required")
	}
	if strings.ContainsAny(segment, "/\\") || segment == "." || segment == ".." {
		return "", fmt.Errorf("storage: invalid owner id %q", segment)
	}
	return segment, nil
}
