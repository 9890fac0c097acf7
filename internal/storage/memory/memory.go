package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	apperrors "github.com/utafrali/rxstore/pkg/errors"

	"github.com/utafrali/rxstore/internal/storage"
)

type object struct {
	contentType string
	data        []byte
}

// Storage implements storage.Storage using an in-memory map. It backs tests
// and local runs without a writable disk.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		objects: make(map[string]object),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload reads the whole payload and keeps it under the key.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}

	s.mu.Lock()
	s.objects[input.Key] = object{contentType: input.ContentType, data: data}
	s.mu.Unlock()

	return &storage.UploadResult{Key: input.Key, URL: s.url(input.Key)}, nil
}

// Delete removes the object, if present.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// GetURL returns the URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.objects[key]; !ok {
		return "", apperrors.NotFound("file", key)
	}
	return s.url(key), nil
}

// Open returns a reader over a stored object and its content type.
func (s *Storage) Open(key string) (io.Reader, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return bytes.NewReader(obj.data), obj.contentType, true
}

// Keys lists stored keys in no particular order.
func (s *Storage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

// ServeHTTP serves an object by its key, taken from the path relative to
// where the handler is mounted.
func (s *Storage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rd, contentType, ok := s.Open(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.Copy(w, rd)
}

func (s *Storage) url(key string) string {
	return fmt.Sprintf("%s/files/%s", s.baseURL, key)
}
