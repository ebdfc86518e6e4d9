package model

// ComponentType is the type tag of a component node (e.g. "text", "container").
type ComponentType string

// Built-in component types. The vocabulary is open: stores and the engine accept
// any non-empty type, only these have schemas and library blueprints.
const (
	TypeText      ComponentType = "text"
	TypeHeading   ComponentType = "heading"
	TypeButton    ComponentType = "button"
	TypeImage     ComponentType = "image"
	TypeContainer ComponentType = "container"
	TypeRow       ComponentType = "row"
	TypeColumn    ComponentType = "column"
	TypeCard      ComponentType = "card"
	TypeNavbar    ComponentType = "navbar"
	TypeFooter    ComponentType = "footer"
	TypeForm      ComponentType = "form"
	TypeInput     ComponentType = "input"
	TypeTextarea  ComponentType = "textarea"
)

// BuiltinTypes lists the fixed vocabulary in palette order.
var BuiltinTypes = []ComponentType{
	TypeText, TypeHeading, TypeButton, TypeImage,
	TypeContainer, TypeRow, TypeColumn,
	TypeCard, TypeNavbar, TypeFooter,
	TypeForm, TypeInput, TypeTextarea,
}

// Props holds type-dependent component properties. Values are strings, numbers,
// booleans, nested maps or lists of those.
type Props map[string]any

// Styles holds style-property names mapped to their string values.
type Styles map[string]string

// Component is one node of a page's visual component tree.
type Component struct {
	ID       string        `json:"id" yaml:"id"`                                 // Immutable once created
	Type     ComponentType `json:"type" yaml:"type"`                             // Type tag, see BuiltinTypes
	Name     string        `json:"name" yaml:"name"`                             // Display name
	Props    Props         `json:"props" yaml:"props"`                           // Type-dependent properties
	Styles   Styles        `json:"styles" yaml:"styles"`                         // Style bag
	Children []*Component  `json:"children" yaml:"children"`                     // Ordered children, empty for leaves
	ParentID string        `json:"parentId,omitempty" yaml:"parentId,omitempty"` // Denormalized; the nesting is authoritative
}

// Clone returns a deep copy of the component and its whole subtree.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	out := &Component{
		ID:       c.ID,
		Type:     c.Type,
		Name:     c.Name,
		Props:    c.Props.Clone(),
		Styles:   c.Styles.Clone(),
		ParentID: c.ParentID,
		Children: make([]*Component, 0, len(c.Children)),
	}
	for _, child := range c.Children {
		out.Children = append(out.Children, child.Clone())
	}
	return out
}

// Clone returns a deep copy of the property bag, including nested maps and lists.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// Clone returns a copy of the style bag.
func (s Styles) Clone() Styles {
	out := make(Styles, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Props:
		return t.Clone()
	case []any:
		l := make([]any, len(t))
		for i, inner := range t {
			l[i] = cloneValue(inner)
		}
		return l
	case []map[string]any:
		l := make([]map[string]any, len(t))
		for i, inner := range t {
			l[i] = cloneValue(inner).(map[string]any)
		}
		return l
	default:
		return v
	}
}

// CloneComponents deep-copies a list of root components.
func CloneComponents(list []*Component) []*Component {
	out := make([]*Component, 0, len(list))
	for _, c := range list {
		out = append(out, c.Clone())
	}
	return out
}
