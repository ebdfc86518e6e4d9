// Package catalog provides the component palette (built-in and custom blueprints)
// and the starter site templates new projects are created from.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"go-site-builder/internal/model"
	"go-site-builder/internal/schema"
	"go-site-builder/internal/tree"
)

//go:embed data/*.yaml
var dataFS embed.FS

var (
	ErrNotFound         = errors.New("library item not found")
	ErrBuiltin          = errors.New("built-in library items are read-only")
	ErrInvalidItem      = errors.New("invalid library item")
	ErrForbidden        = errors.New("library item belongs to another user")
	ErrTemplateNotFound = errors.New("template not found")
)

// Catalog is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	builtin   []*model.LibraryItem
	custom    []*model.LibraryItem
	templates []*model.Template
	schemas   *schema.Registry
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithSchemas sets the registry custom blueprints are validated against.
func WithSchemas(r *schema.Registry) Option { return func(c *Catalog) { c.schemas = r } }

// New loads the embedded blueprints and starter templates.
func New(opts ...Option) (*Catalog, error) {
	items, err := loadItems("data/blueprints.yaml")
	if err != nil {
		return nil, err
	}
	templates, err := loadTemplates("data/templates.yaml")
	if err != nil {
		return nil, err
	}
	c := &Catalog{builtin: items, templates: templates}
	for _, opt := range opts {
		opt(c)
	}
	if c.schemas == nil {
		c.schemas = schema.Default()
	}
	return c, nil
}

// MustNew is New for program start-up; the embedded data is fixed at build time.
func MustNew(opts ...Option) *Catalog {
	c, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func loadItems(name string) ([]*model.LibraryItem, error) {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	var items []*model.LibraryItem
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	for _, it := range items {
		if it.Component == nil || it.Component.Type == "" {
			return nil, fmt.Errorf("%w: %s has no component", ErrInvalidItem, it.ID)
		}
		normalize(it.Component)
	}
	return items, nil
}

func loadTemplates(name string) ([]*model.Template, error) {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	var templates []*model.Template
	if err := yaml.Unmarshal(raw, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	for _, t := range templates {
		for _, p := range t.Pages {
			if p.Components == nil {
				p.Components = []*model.Component{}
			}
			if p.Styles == nil {
				p.Styles = model.Styles{}
			}
			for _, c := range p.Components {
				normalize(c)
			}
		}
	}
	return templates, nil
}

// normalize replaces nil bags so documents serialize as {} and [] instead of null.
func normalize(c *model.Component) {
	if c.Props == nil {
		c.Props = model.Props{}
	}
	if c.Styles == nil {
		c.Styles = model.Styles{}
	}
	if c.Children == nil {
		c.Children = []*model.Component{}
	}
	for _, child := range c.Children {
		normalize(child)
	}
}

func (c *Catalog) find(id string) (*model.LibraryItem, bool) {
	for _, it := range c.builtin {
		if it.ID == id {
			return it, true
		}
	}
	for _, it := range c.custom {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

func copyItem(it *model.LibraryItem) *model.LibraryItem {
	out := *it
	out.Component = it.Component.Clone()
	return &out
}

// Get returns a copy of the item with the given id.
func (c *Catalog) Get(id string) (*model.LibraryItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyItem(it), nil
}

// All returns built-in items followed by custom items.
func (c *Catalog) All() []*model.LibraryItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.LibraryItem, 0, len(c.builtin)+len(c.custom))
	for _, it := range c.builtin {
		out = append(out, copyItem(it))
	}
	for _, it := range c.custom {
		out = append(out, copyItem(it))
	}
	return out
}

// ByCategory returns the items of one category, built-ins first.
func (c *Catalog) ByCategory(category string) []*model.LibraryItem {
	var out []*model.LibraryItem
	for _, it := range c.All() {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}

// Categories lists category names in order of first appearance.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range c.All() {
		if !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	return out
}

// checkComponent rejects blueprints with nil nodes or missing types, then
// validates props against the registry.
func (c *Catalog) checkComponent(root *model.Component) error {
	var walk func(n *model.Component, depth int) error
	walk = func(n *model.Component, depth int) error {
		if n == nil {
			if depth == 0 {
				return fmt.Errorf("%w: component is required", ErrInvalidItem)
			}
			return fmt.Errorf("%w: empty child component", ErrInvalidItem)
		}
		if n.Type == "" {
			return fmt.Errorf("%w: component type is required", ErrInvalidItem)
		}
		for _, child := range n.Children {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return err
	}
	if err := c.schemas.ValidateTree(root); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}
	return nil
}

// Add registers a custom item owned by ownerID under a fresh id and returns it.
func (c *Catalog) Add(ownerID string, item model.LibraryItem) (string, error) {
	if err := c.checkComponent(item.Component); err != nil {
		return "", err
	}
	item.ID = uuid.NewString()
	item.Custom = true
	item.OwnerID = ownerID
	item.Component = item.Component.Clone()
	normalize(item.Component)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.custom = append(c.custom, &item)
	return item.ID, nil
}

// editable returns the custom item with the given id if ownerID may change it.
func (c *Catalog) editable(ownerID, id string) (*model.LibraryItem, error) {
	it, ok := c.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !it.Custom {
		return nil, fmt.Errorf("%w: %s", ErrBuiltin, id)
	}
	if it.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, id)
	}
	return it, nil
}

// Update merges the non-zero fields of patch into a custom item of ownerID.
func (c *Catalog) Update(ownerID, id string, patch model.LibraryItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.editable(ownerID, id)
	if err != nil {
		return err
	}
	updated := copyItem(it)
	if patch.Name != "" {
		updated.Name = patch.Name
	}
	if patch.Category != "" {
		updated.Category = patch.Category
	}
	if patch.Thumbnail != "" {
		updated.Thumbnail = patch.Thumbnail
	}
	if patch.Component != nil {
		if err := c.checkComponent(patch.Component); err != nil {
			return err
		}
		updated.Component = patch.Component.Clone()
		normalize(updated.Component)
	}
	for i, cur := range c.custom {
		if cur.ID == id {
			c.custom[i] = updated
		}
	}
	return nil
}

// Delete removes a custom item of ownerID.
func (c *Catalog) Delete(ownerID, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.editable(ownerID, id); err != nil {
		return err
	}
	for i, cur := range c.custom {
		if cur.ID == id {
			c.custom = append(c.custom[:i:i], c.custom[i+1:]...)
			break
		}
	}
	return nil
}

// Instantiate stamps the blueprint of itemID: a deep copy whose nodes all carry
// ids from newID. A nil newID uses random UUIDs.
func (c *Catalog) Instantiate(itemID string, newID func() string) (*model.Component, error) {
	if newID == nil {
		newID = uuid.NewString
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.find(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}
	return tree.Stamp(it.Component, newID), nil
}
