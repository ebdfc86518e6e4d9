package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"go-site-builder/pkg/fsutils"
)

// JSONStore implements the DocumentStore interface using JSON files.
// It stores each document as an individual file: <BasePath>/<collection>/<id>.json.
type JSONStore struct {
	// BasePath is the directory holding one sub-directory per collection.
	BasePath string
	logger   *slog.Logger
	mu       sync.Mutex // serializes read-modify-write in UpdateDocument
}

// NewJSONStore creates a new JSONStore instance.
// It ensures the base storage directory exists.
func NewJSONStore(basePath string, logger *slog.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := fsutils.CreateDir(basePath); err != nil {
		return nil, fmt.Errorf("failed to create storage directory '%s': %w", basePath, err)
	}
	return &JSONStore{BasePath: basePath, logger: logger}, nil
}

// GetBasePath returns the base path of the JSON store.
func (js *JSONStore) GetBasePath() string {
	return js.BasePath
}

func (js *JSONStore) docPath(collection, id string) (string, error) {
	if err := checkKey(collection, id); err != nil {
		return "", err
	}
	// Ids and collection names become path segments; refuse anything that could
	// escape the collection directory.
	if strings.ContainsAny(collection+id, `/\`) || strings.Contains(collection+id, "..") {
		return "", fmt.Errorf("%w: %q/%q is not a valid document key", ErrInvalidArgument, collection, id)
	}
	return filepath.Join(js.BasePath, collection, id+".json"), nil
}

func (js *JSONStore) write(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", path, err)
	}
	if err := fsutils.CreateDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create collection directory %s: %w", filepath.Dir(path), err)
	}
	if err := fsutils.WriteToFile(path, data); err != nil {
		return fmt.Errorf("failed to write document file %s: %w", path, err)
	}
	return nil
}

func (js *JSONStore) read(path string) (Document, error) {
	data, err := fsutils.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read document file %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document data from %s: %w", path, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// CreateDocument persists data to a new JSON file under a fresh id.
func (js *JSONStore) CreateDocument(ctx context.Context, collection string, data Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	path, err := js.docPath(collection, id)
	if err != nil {
		return "", err
	}
	doc, err := normalize(data)
	if err != nil {
		return "", err
	}
	delete(doc, "id")
	if err := js.write(path, doc); err != nil {
		return "", err
	}
	js.logger.Debug("Created document", "collection", collection, "id", id)
	return id, nil
}

// UpdateDocument merges partial into the document file.
func (js *JSONStore) UpdateDocument(ctx context.Context, collection, id string, partial Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := js.docPath(collection, id)
	if err != nil {
		return err
	}
	patch, err := normalize(partial)
	if err != nil {
		return err
	}

	js.mu.Lock()
	defer js.mu.Unlock()
	cur, err := js.read(path)
	if err != nil {
		return err
	}
	if err := js.write(path, merge(cur, patch)); err != nil {
		return err
	}
	js.logger.Debug("Updated document", "collection", collection, "id", id, "fields", len(patch))
	return nil
}

// DeleteDocument removes the document's JSON file.
func (js *JSONStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := js.docPath(collection, id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		// Make it non-fatal if the file doesn't exist (idempotent delete)
		if errors.Is(err, os.ErrNotExist) {
			js.logger.Debug("Document already deleted or never existed", "collection", collection, "id", id)
			return nil
		}
		return fmt.Errorf("failed to delete document file %s: %w", path, err)
	}
	js.logger.Debug("Deleted document", "collection", collection, "id", id)
	return nil
}

// GetDocument loads a document from its JSON file.
func (js *JSONStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := js.docPath(collection, id)
	if err != nil {
		return nil, err
	}
	doc, err := js.read(path)
	if err != nil {
		return nil, err
	}
	return withID(doc, id), nil
}

// QueryDocuments scans the collection directory and loads each *.json file.
// Results are ordered by id.
func (js *JSONStore) QueryDocuments(ctx context.Context, collection, field string, value any) ([]Document, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection cannot be empty", ErrInvalidArgument)
	}
	dir := filepath.Join(js.BasePath, collection)
	entries, err := fsutils.ScanDir(dir)
	if err != nil {
		// A collection nobody wrote to yet is simply empty.
		if errors.Is(err, os.ErrNotExist) {
			return []Document{}, nil
		}
		return nil, fmt.Errorf("failed to read collection directory %s: %w", dir, err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Strings(ids)

	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := js.read(filepath.Join(dir, id+".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to load document %s during query: %w", id, err)
		}
		if matches(doc, field, value) {
			out = append(out, withID(doc, id))
		}
	}
	js.logger.Debug("Queried documents", "collection", collection, "field", field, "matches", len(out))
	return out, nil
}
