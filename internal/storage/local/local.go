// Package local stores blobs on the local filesystem under a root
// directory. Files are served back by the HTTP layer under /files/.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/utafrali/rxstore/pkg/errors"

	"github.com/utafrali/rxstore/internal/storage"
)

// Storage implements storage.Storage on a directory.
type Storage struct {
	root    string
	baseURL string
}

// New creates the root directory if needed and returns a disk-backed store.
func New(root, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", root, err)
	}
	return &Storage{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory files are written to.
func (s *Storage) Root() string { return s.root }

// path resolves key under root and refuses keys that would escape it.
func (s *Storage) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", apperrors.InvalidInput("storage key is empty")
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Upload writes to a temporary file and renames it into place, so readers
// never observe a partial object.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	dst, err := s.path(input.Key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create dir for %s: %w", input.Key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, input.Data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write %s: %w", input.Key, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", input.Key, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return nil, fmt.Errorf("move %s into place: %w", input.Key, err)
	}

	return &storage.UploadResult{Key: input.Key, URL: s.url(input.Key)}, nil
}

// Delete removes the file. A missing file is not an error.
func (s *Storage) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// GetURL returns the public URL of an existing file.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperrors.NotFound("file", key)
		}
		return "", fmt.Errorf("stat %s: %w", key, err)
	}
	return s.url(key), nil
}

func (s *Storage) url(key string) string {
	return fmt.Sprintf("%s/files/%s", s.baseURL, key)
}
