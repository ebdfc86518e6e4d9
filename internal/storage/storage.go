package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrInvalidArgument is returned for empty collection names or document ids.
var ErrInvalidArgument = errors.New("invalid argument")

// Document is a schemaless record. Reads always carry the document id under "id".
type Document map[string]any

// DocumentStore defines the operations needed for persisting builder documents.
// This allows swapping implementations (memory, JSON files, SQL) without touching
// the engine.
type DocumentStore interface {
	// CreateDocument stores data under a fresh id and returns it.
	CreateDocument(ctx context.Context, collection string, data Document) (string, error)

	// UpdateDocument merges the top-level keys of partial into an existing document.
	UpdateDocument(ctx context.Context, collection, id string, partial Document) error

	// DeleteDocument removes a document. Deleting a missing document is not an error.
	DeleteDocument(ctx context.Context, collection, id string) error

	// GetDocument retrieves a document by id. Missing documents yield ErrNotFound.
	GetDocument(ctx context.Context, collection, id string) (Document, error)

	// QueryDocuments returns the documents whose top-level field equals value.
	QueryDocuments(ctx context.Context, collection, field string, value any) ([]Document, error)
}

// normalize round-trips v through JSON so every adapter stores the same shapes
// (numbers as float64, nested objects as map[string]any) whatever the caller passed.
func normalize(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// normalizeValue does the same for a single query operand.
func normalizeValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func matches(doc Document, field string, value any) bool {
	got, ok := doc[field]
	if !ok {
		return false
	}
	return reflect.DeepEqual(got, normalizeValue(value))
}

func checkKey(collection, id string) error {
	if collection == "" {
		return fmt.Errorf("%w: collection cannot be empty", ErrInvalidArgument)
	}
	if id == "" {
		return fmt.Errorf("%w: document ID cannot be empty", ErrInvalidArgument)
	}
	return nil
}

func withID(doc Document, id string) Document {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["id"] = id
	return out
}

// merge applies the top-level keys of partial onto base. The "id" key is
// never overwritten.
func merge(base, partial Document) Document {
	out := make(Document, len(base)+len(partial))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range partial {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}
