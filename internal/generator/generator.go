package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"go-site-builder/internal/model"
	"go-site-builder/internal/tree"
	"go-site-builder/pkg/fsutils"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrEmptyName is returned when a project is scaffolded without a name.
var ErrEmptyName = errors.New("project name cannot be empty")

// Config holds the configuration for project exports.
type Config struct {
	BaseDir string // Directory export folders are created in (e.g., "export")
	Indent  string // JSON indentation, empty for compact output
}

// DefaultConfig provides the standard export configuration.
func DefaultConfig(baseDir string) Config {
	return Config{BaseDir: baseDir, Indent: "  "}
}

// --- Slug Generation ---
var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`) // For slugs, allow only lowercase alphanum and hyphen
var multiHyphen = regexp.MustCompile(`-+`)             // To collapse multiple hyphens

// generateSlug creates a URL-friendly slug from a name.
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	slug = multiHyphen.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "site"
	}
	return slug
}

// HomePage returns the page every blank project starts with.
func HomePage(id string) *model.Page {
	return &model.Page{
		ID:         id,
		Name:       "Home",
		Path:       "/",
		Components: []*model.Component{},
		Styles:     model.Styles{},
	}
}

// NewProject scaffolds an unsaved project owned by userID. When tmpl is non-nil
// its pages are copied with fresh page and component ids, otherwise the project
// gets a single empty Home page. The returned project has no id yet.
func NewProject(name, description, userID string, tmpl *model.Template, newID func() string, now int64) (*model.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	p := &model.Project{
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      userID,
		Assets:      []model.Asset{},
	}

	if tmpl == nil || len(tmpl.Pages) == 0 {
		p.Pages = []*model.Page{HomePage(newID())}
		return p, nil
	}

	p.Template = tmpl.ID
	p.Pages = make([]*model.Page, 0, len(tmpl.Pages))
	for _, src := range tmpl.Pages {
		page := &model.Page{
			ID:         newID(),
			Name:       src.Name,
			Path:       src.Path,
			Styles:     src.Styles.Clone(),
			Components: make([]*model.Component, 0, len(src.Components)),
		}
		for _, c := range src.Components {
			page.Components = append(page.Components, tree.Stamp(c, newID))
		}
		p.Pages = append(p.Pages, page)
	}
	return p, nil
}

// PageFilename maps a page route to the file its snapshot is written to.
// "/" becomes "index.json", "/blog/:id" becomes "blog-id.json".
func PageFilename(page *model.Page) string {
	name := fsutils.SanitizeFilename(page.Path)
	if name == "" || name == "_" {
		if page.Path == "/" || page.Path == "" {
			name = "index"
		} else {
			name = generateSlug(page.Name)
		}
	}
	return name + ".json"
}

// ExportDir returns the directory ExportProject writes p into.
func ExportDir(cfg Config, p *model.Project) string {
	return filepath.Join(cfg.BaseDir, generateSlug(p.Name))
}

// ExportProject writes a static snapshot of p below cfg.BaseDir:
//
//	<slug>/site.json          project metadata and page index
//	<slug>/pages/<route>.json one component tree per page
//
// It returns the directory written.
func ExportProject(cfg Config, p *model.Project) (string, error) {
	if p == nil {
		return "", fmt.Errorf("cannot export a nil project")
	}
	dir := ExportDir(cfg, p)
	pagesDir := filepath.Join(dir, "pages")
	if err := fsutils.CreateDir(pagesDir); err != nil {
		return "", fmt.Errorf("failed to create export directory %s: %w", pagesDir, err)
	}

	type pageEntry struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Path string `json:"path"`
		File string `json:"file"`
	}
	site := struct {
		ID           string        `json:"id"`
		Name         string        `json:"name"`
		Description  string        `json:"description,omitempty"`
		PublishedURL string        `json:"publishedUrl,omitempty"`
		UpdatedAt    int64         `json:"updatedAt"`
		Pages        []pageEntry   `json:"pages"`
		Assets       []model.Asset `json:"assets"`
	}{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		PublishedURL: p.PublishedURL,
		UpdatedAt:    p.UpdatedAt,
		Assets:       p.Assets,
	}

	used := make(map[string]int)
	for _, page := range p.Pages {
		file := PageFilename(page)
		if n := used[file]; n > 0 {
			file = fmt.Sprintf("%s-%d.json", strings.TrimSuffix(file, ".json"), n+1)
		}
		used[PageFilename(page)]++

		data, err := encode(cfg, page)
		if err != nil {
			return "", fmt.Errorf("failed to encode page %s: %w", page.ID, err)
		}
		if err := fsutils.WriteToFile(filepath.Join(pagesDir, file), data); err != nil {
			return "", fmt.Errorf("failed to write page %s: %w", page.ID, err)
		}
		site.Pages = append(site.Pages, pageEntry{ID: page.ID, Name: page.Name, Path: page.Path, File: filepath.ToSlash(filepath.Join("pages", file))})
	}

	data, err := encode(cfg, site)
	if err != nil {
		return "", fmt.Errorf("failed to encode site index: %w", err)
	}
	if err := fsutils.WriteToFile(filepath.Join(dir, "site.json"), data); err != nil {
		return "", fmt.Errorf("failed to write site index: %w", err)
	}
	return dir, nil
}

func encode(cfg Config, v any) ([]byte, error) {
	if cfg.Indent == "" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", cfg.Indent)
}
