package projectmanager

import (
	"context"
	"fmt"
	"time"

	"go-site-builder/internal/events"
	"go-site-builder/internal/model"
	"go-site-builder/internal/schema"
	"go-site-builder/internal/tree"
)

// NewComponent is the caller-supplied part of a component: everything but ids.
// Children are created along with the node.
type NewComponent struct {
	Type     model.ComponentType `json:"type"`
	Name     string              `json:"name"`
	Props    model.Props         `json:"props"`
	Styles   model.Styles        `json:"styles"`
	Children []NewComponent      `json:"children,omitempty"`
}

// build turns the description into a component tree without ids.
func (nc NewComponent) build() *model.Component {
	c := &model.Component{
		Type:     nc.Type,
		Name:     nc.Name,
		Props:    nc.Props.Clone(),
		Styles:   nc.Styles.Clone(),
		Children: make([]*model.Component, 0, len(nc.Children)),
	}
	if c.Name == "" {
		c.Name = string(nc.Type)
	}
	for _, child := range nc.Children {
		c.Children = append(c.Children, child.build())
	}
	return c
}

// FromComponent describes an existing component (ids dropped) so it can be added.
func FromComponent(c *model.Component) NewComponent {
	nc := NewComponent{Type: c.Type, Name: c.Name, Props: c.Props.Clone(), Styles: c.Styles.Clone()}
	for _, child := range c.Children {
		nc.Children = append(nc.Children, FromComponent(child))
	}
	return nc
}

// AddComponent inserts a new component under parentID (empty for the page root)
// at index (tree.Append, or any index past the end, appends). The node and its
// children receive fresh ids; the new node's id is returned.
func (m *Manager) AddComponent(ctx context.Context, projectID, pageID string, data NewComponent, parentID string, index int) (id string, err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("add_component", start, err) }(time.Now())
	if data.Type == "" {
		return "", schema.ErrEmptyType
	}
	node := data.build()
	if err := m.schemas.ValidateTree(node); err != nil {
		return "", err
	}
	return m.insert(ctx, projectID, pageID, tree.Stamp(node, m.newID), parentID, index)
}

// PlaceLibraryItem stamps the library blueprint itemID into a page, like
// AddComponent. Blueprint ids never reach the page, and the stamped tree is
// validated like an added one.
func (m *Manager) PlaceLibraryItem(ctx context.Context, projectID, pageID, itemID, parentID string, index int) (id string, err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("place_library_item", start, err) }(time.Now())
	node, err := m.catalog.Instantiate(itemID, m.newID)
	if err != nil {
		return "", err
	}
	if err := m.schemas.ValidateTree(node); err != nil {
		return "", err
	}
	return m.insert(ctx, projectID, pageID, node, parentID, index)
}

func (m *Manager) insert(ctx context.Context, projectID, pageID string, node *model.Component, parentID string, index int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.editPages(ctx, projectID, func(pages []*model.Page) ([]*model.Page, error) {
		i, err := pageIndex(pages, pageID)
		if err != nil {
			return nil, err
		}
		roots, err := tree.Insert(pages[i].Components, parentID, node, index)
		if err != nil {
			return nil, err
		}
		pages[i].Components = roots
		return pages, nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Info("Added component", "projectID", projectID, "pageID", pageID, "componentID", node.ID, "type", node.Type, "parentID", parentID)
	m.emit(ctx, events.Event{Kind: events.ComponentAdded, ProjectID: projectID, PageID: pageID, ComponentID: node.ID, UserID: u.ID})
	return node.ID, nil
}

// UpdateComponent merges patch into the component's name, props and styles.
// The merged props must satisfy the component type's schema.
func (m *Manager) UpdateComponent(ctx context.Context, projectID, pageID, componentID string, patch tree.Patch) (err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("update_component", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.editPages(ctx, projectID, func(pages []*model.Page) ([]*model.Page, error) {
		i, err := pageIndex(pages, pageID)
		if err != nil {
			return nil, err
		}
		current, ok := tree.Find(pages[i].Components, componentID)
		if !ok {
			return nil, fmt.Errorf("update %q: %w", componentID, tree.ErrNotFound)
		}
		if len(patch.Props) > 0 {
			if err := m.schemas.ValidatePatch(current, patch.Props); err != nil {
				return nil, err
			}
		}
		roots, err := tree.Update(pages[i].Components, componentID, patch)
		if err != nil {
			return nil, err
		}
		pages[i].Components = roots
		return pages, nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("Updated component", "projectID", projectID, "pageID", pageID, "componentID", componentID)
	m.emit(ctx, events.Event{Kind: events.ComponentUpdated, ProjectID: projectID, PageID: pageID, ComponentID: componentID, UserID: u.ID})
	return nil
}

// DeleteComponent removes a component with its whole subtree. A selection on any
// removed node is cleared.
func (m *Manager) DeleteComponent(ctx context.Context, projectID, pageID, componentID string) (err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("delete_component", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	u, err := m.editPages(ctx, projectID, func(pages []*model.Page) ([]*model.Page, error) {
		i, err := pageIndex(pages, pageID)
		if err != nil {
			return nil, err
		}
		roots, node, err := tree.Detach(pages[i].Components, componentID)
		if err != nil {
			return nil, err
		}
		removed = tree.IDs([]*model.Component{node})
		pages[i].Components = roots
		return pages, nil
	})
	if err != nil {
		return err
	}

	m.clearSelection(removed)
	m.logger.Info("Deleted component", "projectID", projectID, "pageID", pageID, "componentID", componentID, "removed", len(removed))
	m.emit(ctx, events.Event{Kind: events.ComponentDeleted, ProjectID: projectID, PageID: pageID, ComponentID: componentID, UserID: u.ID})
	return nil
}

// MoveComponent re-parents a component (with its subtree) under newParentID, or
// to the page root when newParentID is empty. newIndex addresses the target
// sibling list after the component has been taken out of its old position.
// Moving a component under itself or under one of its descendants is rejected.
func (m *Manager) MoveComponent(ctx context.Context, projectID, pageID, componentID, newParentID string, newIndex int) (err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("move_component", start, err) }(time.Now())
	if newParentID != "" && newParentID == componentID {
		return fmt.Errorf("move %q: %w", componentID, ErrSelfParent)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.editPages(ctx, projectID, func(pages []*model.Page) ([]*model.Page, error) {
		i, err := pageIndex(pages, pageID)
		if err != nil {
			return nil, err
		}
		roots := pages[i].Components
		if _, ok := tree.Find(roots, componentID); !ok {
			return nil, fmt.Errorf("move %q: %w", componentID, tree.ErrNotFound)
		}
		if newParentID != "" && tree.IsDescendant(roots, componentID, newParentID) {
			return nil, fmt.Errorf("move %q under %q: %w", componentID, newParentID, ErrCycle)
		}
		rest, node, err := tree.Detach(roots, componentID)
		if err != nil {
			return nil, err
		}
		moved, err := tree.Insert(rest, newParentID, node, newIndex)
		if err != nil {
			return nil, err
		}
		pages[i].Components = moved
		return pages, nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("Moved component", "projectID", projectID, "pageID", pageID, "componentID", componentID, "newParentID", newParentID, "index", newIndex)
	m.emit(ctx, events.Event{Kind: events.ComponentMoved, ProjectID: projectID, PageID: pageID, ComponentID: componentID, UserID: u.ID})
	return nil
}
