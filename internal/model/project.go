package model

import "time"

// AssetKind classifies an uploaded asset.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetVideo AssetKind = "video"
	AssetFont  AssetKind = "font"
	AssetOther AssetKind = "other"
)

// Page is one routed page of a project with its own component tree.
type Page struct {
	ID         string       `json:"id" yaml:"id"`
	Name       string       `json:"name" yaml:"name"`             // Display name (e.g., "Home")
	Path       string       `json:"path" yaml:"path"`             // Route path (e.g., "/", "/about")
	Components []*Component `json:"components" yaml:"components"` // Root-level components in order
	Styles     Styles       `json:"styles" yaml:"styles"`         // Page-level styles
}

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	return &Page{
		ID:         p.ID,
		Name:       p.Name,
		Path:       p.Path,
		Components: CloneComponents(p.Components),
		Styles:     p.Styles.Clone(),
	}
}

// Asset is a file uploaded into a project. Assets are never shared across projects.
type Asset struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Kind      AssetKind `json:"type" yaml:"type"`
	URL       string    `json:"url" yaml:"url"`
	Key       string    `json:"key,omitempty" yaml:"key,omitempty"`   // Object key when stored in object storage
	Size      int64     `json:"size,omitempty" yaml:"size,omitempty"` // Bytes, 0 when unknown
	CreatedAt int64     `json:"createdAt" yaml:"createdAt"`           // Unix milliseconds
}

// Project is the persisted document edited by the builder.
// A project always owns at least one page.
type Project struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Description  string  `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt    int64   `json:"createdAt" yaml:"createdAt"` // Unix milliseconds
	UpdatedAt    int64   `json:"updatedAt" yaml:"updatedAt"` // Unix milliseconds
	UserID       string  `json:"userId" yaml:"userId"`       // Owner
	Pages        []*Page `json:"pages" yaml:"pages"`
	Assets       []Asset `json:"assets" yaml:"assets"`
	Published    bool    `json:"published" yaml:"published"`
	PublishedURL string  `json:"publishedUrl,omitempty" yaml:"publishedUrl,omitempty"`
	Template     string  `json:"template,omitempty" yaml:"template,omitempty"` // Starter template the project was created from
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Pages = ClonePages(p.Pages)
	out.Assets = append([]Asset(nil), p.Assets...)
	return &out
}

// Page returns the page with the given id, or nil.
func (p *Project) Page(pageID string) *Page {
	for _, page := range p.Pages {
		if page.ID == pageID {
			return page
		}
	}
	return nil
}

// ClonePages deep-copies a page list.
func ClonePages(pages []*Page) []*Page {
	out := make([]*Page, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Clone())
	}
	return out
}

// NowMillis returns the current time as unix milliseconds, the timestamp unit of
// persisted documents.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// User is the authenticated user as seen by the engine.
type User struct {
	ID          string `json:"id" yaml:"id"`
	Email       string `json:"email" yaml:"email"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty" yaml:"photoURL,omitempty"`
}
