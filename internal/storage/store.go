package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a document does not exist in the store.
var ErrNotFound = errors.New("document not found")

// Object is a stored document.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
	Metadata    map[string]string
}

// DocumentStore keeps uploaded invoice files by key.
type DocumentStore interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// ObjectKey builds the storage path for a document.
// Path format: YYYY/MM/{id}{ext}
func ObjectKey(id string, contentType string, at time.Time) string {
	return fmt.Sprintf("%d/%02d/%s%s", at.Year(), at.Month(), id, GetFileExtension(contentType))
}

// GetFileExtension extracts file extension from content type
func GetFileExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	case "text/plain", "text/plain; charset=utf-8":
		return ".txt"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "application/vnd.oasis.opendocument.text":
		return ".odt"
	default:
		return ".bin"
	}
}

// MemoryStore is an in-process DocumentStore, used when MinIO is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (s *MemoryStore) Put(_ context.Context, obj Object) error {
	if obj.Key == "" {
		return errors.New("empty key")
	}
	obj.Data = append([]byte(nil), obj.Data...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.Key] = obj
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return &obj, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
