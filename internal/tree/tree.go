// Package tree implements the pure component-tree primitives used by the editing
// engine. Functions never mutate their input: every edit copies the path from the
// root to the touched node and shares all other subtrees with the input.
package tree

import (
	"errors"
	"fmt"

	"go-site-builder/internal/model"
)

// Append may be passed as an insert index to place a node after its last sibling.
const Append = -1

var (
	// ErrNotFound indicates that no node in the tree carries the requested id.
	ErrNotFound = errors.New("component not found")

	// ErrParentNotFound indicates that an insert target does not resolve to a node.
	ErrParentNotFound = errors.New("parent component not found")

	// ErrNilNode indicates that a nil node was passed for insertion.
	ErrNilNode = errors.New("component is nil")
)

// Patch describes a partial component update. Props and Styles are merged key by
// key into the existing bags; a nil prop value or an empty style value removes the
// key. A nil Name leaves the display name unchanged.
type Patch struct {
	Name   *string      `json:"name,omitempty"`
	Props  model.Props  `json:"props,omitempty"`
	Styles model.Styles `json:"styles,omitempty"`
}

// IsEmpty reports whether applying the patch would change nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && len(p.Props) == 0 && len(p.Styles) == 0
}

// Find returns the first node with the given id in depth-first pre-order,
// visiting siblings in array order.
func Find(roots []*model.Component, id string) (*model.Component, bool) {
	for _, c := range roots {
		if c.ID == id {
			return c, true
		}
		if found, ok := Find(c.Children, id); ok {
			return found, true
		}
	}
	return nil, false
}

// Update returns a tree where the node matching id has the patch merged into it.
// If id is absent the input is returned together with ErrNotFound.
func Update(roots []*model.Component, id string, patch Patch) ([]*model.Component, error) {
	out, ok := update(roots, id, patch)
	if !ok {
		return roots, fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	return out, nil
}

func update(list []*model.Component, id string, patch Patch) ([]*model.Component, bool) {
	for i, c := range list {
		if c.ID == id {
			next := copyNode(c)
			applyPatch(next, patch)
			return replaceAt(list, i, next), true
		}
		if children, ok := update(c.Children, id, patch); ok {
			next := copyNode(c)
			next.Children = children
			return replaceAt(list, i, next), true
		}
	}
	return list, false
}

func applyPatch(c *model.Component, patch Patch) {
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	for k, v := range patch.Props {
		if v == nil {
			delete(c.Props, k)
			continue
		}
		c.Props[k] = v
	}
	for k, v := range patch.Styles {
		if v == "" {
			delete(c.Styles, k)
			continue
		}
		c.Styles[k] = v
	}
}

// Remove returns a tree without the first node matching id. The node's
// descendants are removed with it; its siblings keep their order.
func Remove(roots []*model.Component, id string) ([]*model.Component, error) {
	out, _, err := Detach(roots, id)
	if err != nil {
		return roots, fmt.Errorf("remove %q: %w", id, ErrNotFound)
	}
	return out, nil
}

// Detach is like Remove but also returns the detached subtree.
func Detach(roots []*model.Component, id string) ([]*model.Component, *model.Component, error) {
	out, node, ok := detach(roots, id)
	if !ok {
		return roots, nil, fmt.Errorf("detach %q: %w", id, ErrNotFound)
	}
	return out, node, nil
}

func detach(list []*model.Component, id string) ([]*model.Component, *model.Component, bool) {
	for i, c := range list {
		if c.ID == id {
			return removeAt(list, i), c, true
		}
		if children, found, ok := detach(c.Children, id); ok {
			next := copyNode(c)
			next.Children = children
			return replaceAt(list, i, next), found, true
		}
	}
	return list, nil, false
}

// Insert places node under parentID at index. An empty parentID targets the root
// list. A negative index appends; an index past the end is clamped to it. The
// inserted node's ParentID is set to parentID.
func Insert(roots []*model.Component, parentID string, node *model.Component, index int) ([]*model.Component, error) {
	if node == nil {
		return roots, ErrNilNode
	}
	placed := copyNode(node)
	placed.ParentID = parentID

	if parentID == "" {
		return insertAt(roots, index, placed), nil
	}
	out, ok := insertUnder(roots, parentID, placed, index)
	if !ok {
		return roots, fmt.Errorf("insert under %q: %w", parentID, ErrParentNotFound)
	}
	return out, nil
}

func insertUnder(list []*model.Component, parentID string, node *model.Component, index int) ([]*model.Component, bool) {
	for i, c := range list {
		if c.ID == parentID {
			next := copyNode(c)
			next.Children = insertAt(c.Children, index, node)
			return replaceAt(list, i, next), true
		}
		if children, ok := insertUnder(c.Children, parentID, node, index); ok {
			next := copyNode(c)
			next.Children = children
			return replaceAt(list, i, next), true
		}
	}
	return list, false
}

// copyNode copies a node with fresh prop and style bags. The children slice is
// shared; callers replace it rather than writing into it.
func copyNode(c *model.Component) *model.Component {
	next := *c
	next.Props = make(model.Props, len(c.Props))
	for k, v := range c.Props {
		next.Props[k] = v
	}
	next.Styles = make(model.Styles, len(c.Styles))
	for k, v := range c.Styles {
		next.Styles[k] = v
	}
	if next.Children == nil {
		next.Children = []*model.Component{}
	}
	return &next
}

func replaceAt(list []*model.Component, i int, c *model.Component) []*model.Component {
	out := make([]*model.Component, len(list))
	copy(out, list)
	out[i] = c
	return out
}

func removeAt(list []*model.Component, i int) []*model.Component {
	out := make([]*model.Component, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func insertAt(list []*model.Component, index int, c *model.Component) []*model.Component {
	if index < 0 || index > len(list) {
		index = len(list)
	}
	out := make([]*model.Component, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, c)
	return append(out, list[index:]...)
}
