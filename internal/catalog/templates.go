package catalog

import (
	"fmt"

	"go-site-builder/internal/model"
)

func copyTemplate(t *model.Template) *model.Template {
	out := *t
	out.Pages = model.ClonePages(t.Pages)
	return &out
}

// Template returns a copy of the starter template with the given id.
func (c *Catalog) Template(id string) (*model.Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.templates {
		if t.ID == id {
			return copyTemplate(t), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
}

// Templates returns copies of all starter templates.
func (c *Catalog) Templates() []*model.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Template, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, copyTemplate(t))
	}
	return out
}

func (c *Catalog) TemplatesByCategory(category string) []*model.Template {
	var out []*model.Template
	for _, t := range c.Templates() {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}
