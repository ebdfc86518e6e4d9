package projectmanager

import (
	"context"
	"errors"
	"time"

	"go-site-builder/internal/events"
	"go-site-builder/internal/model"
	"go-site-builder/internal/tree"
)

// ErrEmptyPageName is returned when a page is given a blank name.
var ErrEmptyPageName = errors.New("page name cannot be empty")

// PagePatch is a partial page update. Nil fields are left unchanged; Styles are
// merged and an empty value removes the key.
type PagePatch struct {
	Name   *string      `json:"name,omitempty"`
	Path   *string      `json:"path,omitempty"`
	Styles model.Styles `json:"styles,omitempty"`
}

// AddPage appends an empty page to the loaded project and returns its id.
func (m *Manager) AddPage(ctx context.Context, projectID, name, path string) (id string, err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("add_page", start, err) }(time.Now())
	if name == "" {
		return "", ErrEmptyPageName
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	page := &model.Page{
		ID:         m.newID(),
		Name:       name,
		Path:       path,
		Components: []*model.Component{},
		Styles:     model.Styles{},
	}
	u, err := m.editPages(ctx, projectID, func(pages []*model.Page) ([]*model.Page, error) {
		return append(pages, page), nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Info("Added page", "projectID", projectID, "pageID", page.ID, "path", path)
	m.emit(ctx, events.Event{Kind: events.PageAdded, ProjectID: projectID, PageID: page.ID, UserID: u.ID})
	return page.ID, nil
}

// UpdatePage applies patch to a page's metadata. The component tree is untouched.
func (m *Manager) UpdatePage(ctx context.Context, projectID, pageID string, patch PagePatch) (err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("update_page", start, err) }(time.Now())
	if patch.Name != nil && *patch.Name == "" {
		return ErrEmptyPageName
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.editPages(ctx, projectID, func(pages []*model.Page) ([]*model.Page, error) {
		i, err := pageIndex(pages, pageID)
		if err != nil {
			return nil, err
		}
		p := pages[i]
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Path != nil {
			p.Path = *patch.Path
		}
		if p.Styles == nil {
			p.Styles = model.Styles{}
		}
		for k, v := range patch.Styles {
			if v == "" {
				delete(p.Styles, k)
				continue
			}
			p.Styles[k] = v
		}
		return pages, nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("Updated page", "projectID", projectID, "pageID", pageID)
	m.emit(ctx, events.Event{Kind: events.PageUpdated, ProjectID: projectID, PageID: pageID, UserID: u.ID})
	return nil
}

// DeletePage removes a page and its components. The last page of a project can
// never be deleted.
func (m *Manager) DeletePage(ctx context.Context, projectID, pageID string) (err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("delete_page", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	u, err := m.editPages(ctx, projectID, func(pages []*model.Page) ([]*model.Page, error) {
		if len(pages) <= 1 {
			return nil, ErrLastPage
		}
		i, err := pageIndex(pages, pageID)
		if err != nil {
			return nil, err
		}
		removed = tree.IDs(pages[i].Components)
		return append(pages[:i], pages[i+1:]...), nil
	})
	if err != nil {
		return err
	}

	m.clearSelection(removed)
	m.logger.Info("Deleted page", "projectID", projectID, "pageID", pageID)
	m.emit(ctx, events.Event{Kind: events.PageDeleted, ProjectID: projectID, PageID: pageID, UserID: u.ID})
	return nil
}
