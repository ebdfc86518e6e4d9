// Package assets stores uploaded project files and published page snapshots in
// object storage, one bucket per project.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go-site-builder/internal/model"
)

var (
	// ErrDisabled is returned when object storage is not configured.
	ErrDisabled = errors.New("object storage not configured")
	ErrNotFound = errors.New("object not found")
)

// ObjectStore is the subset of object storage the builder needs.
type ObjectStore interface {
	// Put uploads an object and returns its public URL.
	Put(ctx context.Context, projectID, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, projectID, key string) error
	URL(projectID, key string) string
}

// BucketForProject returns the bucket name for a project.
// S3 rules: lowercase, digits, hyphens; 3-63 chars.
func BucketForProject(projectID string) string {
	return "site-" + strings.ToLower(projectID)
}

// KindFor classifies an upload by its MIME type.
func KindFor(contentType string) model.AssetKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return model.AssetImage
	case strings.HasPrefix(contentType, "video/"):
		return model.AssetVideo
	case strings.HasPrefix(contentType, "font/"),
		contentType == "application/font-woff",
		contentType == "application/x-font-ttf":
		return model.AssetFont
	default:
		return model.AssetOther
	}
}

// MemoryStore keeps objects in memory. It backs tests and the server when no
// object storage is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *MemoryStore) path(projectID, key string) string {
	return BucketForProject(projectID) + "/" + key
}

func (m *MemoryStore) Put(ctx context.Context, projectID, key string, r io.Reader, _ int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read object body: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[m.path(projectID, key)] = data
	m.types[m.path(projectID, key)] = contentType
	return m.URL(projectID, key), nil
}

func (m *MemoryStore) Delete(ctx context.Context, projectID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, m.path(projectID, key))
	delete(m.types, m.path(projectID, key))
	return nil
}

func (m *MemoryStore) URL(projectID, key string) string {
	return m.baseURL + "/" + m.path(projectID, key)
}

// Get returns a stored object's bytes and content type.
func (m *MemoryStore) Get(projectID, key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[m.path(projectID, key)]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return bytes.Clone(data), m.types[m.path(projectID, key)], nil
}

// Keys lists the keys stored for a project, sorted.
func (m *MemoryStore) Keys(projectID string) []string {
	prefix := BucketForProject(projectID) + "/"
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for p := range m.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, strings.TrimPrefix(p, prefix))
		}
	}
	sort.Strings(out)
	return out
}
