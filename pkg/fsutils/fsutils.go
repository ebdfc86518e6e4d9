// Package fsutils holds small file-system helpers shared by the JSON document
// store and the site exporter.
package fsutils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// CreateDir creates a directory (and parents) if it doesn't exist.
func CreateDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteToFile writes content to a file, overwriting if it exists. The data is
// written to a temporary sibling first and renamed into place, so readers never
// observe a half-written file.
func WriteToFile(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %q: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file for %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %q: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %q: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move temp file into %q: %w", path, err)
	}
	return nil
}

// ReadFile reads the content of a file. Errors wrap os.ErrNotExist when the
// file is missing.
func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ScanDir lists files and directories directly under the given path.
func ScanDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

// nonFilenameRegex matches any run of characters that is NOT a lowercase letter,
// number, hyphen, underscore or period.
var nonFilenameRegex = regexp.MustCompile(`[^a-z0-9_.-]+`)
var collapseHyphenRegex = regexp.MustCompile(`-+`)

// SanitizeFilename converts a page name or route into a safe file name: lower
// case, disallowed runs replaced by a single hyphen, leading/trailing hyphens
// and dots trimmed. A non-empty input with no usable characters yields "_".
func SanitizeFilename(name string) string {
	if name == "" {
		return ""
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	sanitized := nonFilenameRegex.ReplaceAllString(lower, "-")
	collapsed := collapseHyphenRegex.ReplaceAllString(sanitized, "-")
	trimmed := strings.Trim(collapsed, "-.")
	if trimmed == "" {
		return "_"
	}
	return trimmed
}
