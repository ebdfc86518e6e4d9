package tree

import (
	"errors"
	"fmt"

	"go-site-builder/internal/model"
)

var (
	// ErrDuplicateID indicates that an id occurs more than once in a tree.
	ErrDuplicateID = errors.New("duplicate component id")

	// ErrParentMismatch indicates a ParentID that disagrees with the actual nesting.
	ErrParentMismatch = errors.New("component parent id does not match its position")

	// ErrAliased indicates a node reachable from two places in the tree.
	ErrAliased = errors.New("component reachable from more than one parent")
)

// Walk visits every node in depth-first pre-order. Returning false from fn skips
// the node's children.
func Walk(roots []*model.Component, fn func(c *model.Component, depth int) bool) {
	walk(roots, 0, fn)
}

func walk(list []*model.Component, depth int, fn func(c *model.Component, depth int) bool) {
	for _, c := range list {
		if fn(c, depth) {
			walk(c.Children, depth+1, fn)
		}
	}
}

// Count returns the number of nodes in the tree.
func Count(roots []*model.Component) int {
	n := 0
	Walk(roots, func(*model.Component, int) bool {
		n++
		return true
	})
	return n
}

// IDs returns every node id in pre-order.
func IDs(roots []*model.Component) []string {
	ids := make([]string, 0)
	Walk(roots, func(c *model.Component, _ int) bool {
		ids = append(ids, c.ID)
		return true
	})
	return ids
}

// IsDescendant reports whether id lies strictly below ancestorID.
func IsDescendant(roots []*model.Component, ancestorID, id string) bool {
	ancestor, ok := Find(roots, ancestorID)
	if !ok {
		return false
	}
	_, ok = Find(ancestor.Children, id)
	return ok
}

// Path returns the ids of the ancestors of id, outermost first. The second result
// is false when id is not in the tree.
func Path(roots []*model.Component, id string) ([]string, bool) {
	var chain []string
	var search func(list []*model.Component) bool
	search = func(list []*model.Component) bool {
		for _, c := range list {
			if c.ID == id {
				return true
			}
			chain = append(chain, c.ID)
			if search(c.Children) {
				return true
			}
			chain = chain[:len(chain)-1]
		}
		return false
	}
	if !search(roots) {
		return nil, false
	}
	if chain == nil {
		chain = []string{}
	}
	return chain, true
}

// Validate checks the structural invariants of a page tree: unique ids, strict
// tree ownership and ParentID consistency.
func Validate(roots []*model.Component) error {
	seenIDs := make(map[string]struct{})
	seenNodes := make(map[*model.Component]struct{})
	var check func(list []*model.Component, parentID string) error
	check = func(list []*model.Component, parentID string) error {
		for _, c := range list {
			if _, dup := seenNodes[c]; dup {
				return fmt.Errorf("%w: %q", ErrAliased, c.ID)
			}
			seenNodes[c] = struct{}{}
			if _, dup := seenIDs[c.ID]; dup {
				return fmt.Errorf("%w: %q", ErrDuplicateID, c.ID)
			}
			seenIDs[c.ID] = struct{}{}
			if c.ParentID != parentID {
				return fmt.Errorf("%w: %q has parent %q, nested under %q", ErrParentMismatch, c.ID, c.ParentID, parentID)
			}
			if err := check(c.Children, c.ID); err != nil {
				return err
			}
		}
		return nil
	}
	return check(roots, "")
}

// Stamp returns a deep copy of node in which the node and every descendant carry
// an id produced by newID. Children are re-linked to their new parent ids; the
// copy's own ParentID is cleared.
func Stamp(node *model.Component, newID func() string) *model.Component {
	if node == nil {
		return nil
	}
	out := node.Clone()
	restamp(out, "", newID)
	return out
}

func restamp(c *model.Component, parentID string, newID func() string) {
	c.ID = newID()
	c.ParentID = parentID
	for _, child := range c.Children {
		restamp(child, c.ID, newID)
	}
}
