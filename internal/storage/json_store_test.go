package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewJSONStore(t *testing.T) {
	tempDir := t.TempDir() // Creates a temporary directory for the test
	dataPath := filepath.Join(tempDir, ".test_data")

	store, err := NewJSONStore(dataPath, nil)
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}

	if store == nil {
		t.Fatal("NewJSONStore() returned nil store")
	}

	// Check if the base directory was created
	if _, err := os.Stat(dataPath); os.IsNotExist(err) {
		t.Errorf("NewJSONStore() did not create the base directory: %s", dataPath)
	}

	if store.GetBasePath() != dataPath {
		t.Errorf("GetBasePath() returned %q, want %q", store.GetBasePath(), dataPath)
	}
}

func TestJSONStore_FileLayout(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), ".test_data")
	store, err := NewJSONStore(dataPath, nil)
	if err != nil {
		t.Fatalf("NewJSONStore() failed: %v", err)
	}

	id, err := store.CreateDocument(context.Background(), "projects", Document{"name": "Site"})
	if err != nil {
		t.Fatalf("CreateDocument() failed: %v", err)
	}

	expectedFilePath := filepath.Join(dataPath, "projects", id+".json")
	raw, err := os.ReadFile(expectedFilePath)
	if err != nil {
		t.Fatalf("CreateDocument() did not create the expected file %s: %v", expectedFilePath, err)
	}
	var onDisk map[string]any
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("document file is not JSON: %v", err)
	}
	if _, hasID := onDisk["id"]; hasID {
		t.Errorf("document body should not carry its id: %v", onDisk)
	}
	if onDisk["name"] != "Site" {
		t.Errorf("name on disk = %v, want Site", onDisk["name"])
	}
}

func TestJSONStore_DeleteRemovesFile(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), ".test_data")
	store, _ := NewJSONStore(dataPath, nil)
	ctx := context.Background()

	id, _ := store.CreateDocument(ctx, "projects", Document{"name": "Site"})
	expectedFilePath := filepath.Join(dataPath, "projects", id+".json")

	if err := store.DeleteDocument(ctx, "projects", id); err != nil {
		t.Fatalf("DeleteDocument() failed: %v", err)
	}
	if _, err := os.Stat(expectedFilePath); err == nil {
		t.Fatalf("DeleteDocument() did not remove the file: %s", expectedFilePath)
	} else if !os.IsNotExist(err) {
		t.Fatalf("Error checking for deleted file %s: %v", expectedFilePath, err)
	}
}

func TestJSONStore_RejectsPathTraversal(t *testing.T) {
	store, _ := NewJSONStore(t.TempDir(), nil)
	ctx := context.Background()

	for _, id := range []string{"../escape", "a/b", `a\b`} {
		if _, err := store.GetDocument(ctx, "projects", id); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("GetDocument(%q) = %v, want ErrInvalidArgument", id, err)
		}
	}
}

func TestJSONStore_CorruptFile(t *testing.T) {
	dataPath := t.TempDir()
	store, _ := NewJSONStore(dataPath, nil)

	dir := filepath.Join(dataPath, "projects")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.GetDocument(context.Background(), "projects", "bad"); err == nil {
		t.Errorf("GetDocument(corrupt) succeeded, want error")
	}
	if _, err := store.QueryDocuments(context.Background(), "projects", "userId", "u1"); err == nil {
		t.Errorf("QueryDocuments over a corrupt file succeeded, want error")
	}
}
