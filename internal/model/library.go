package model

// LibraryItem is a palette blueprint. Its Component is a stamp: placing it copies
// the node and assigns fresh ids, the blueprint ids never reach a live page.
type LibraryItem struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Category  string     `json:"category" yaml:"category"`
	Component *Component `json:"component" yaml:"component"`
	Thumbnail string     `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Custom    bool       `json:"custom" yaml:"-"` // User-defined, as opposed to built-in
	OwnerID   string     `json:"ownerId,omitempty" yaml:"-"`
}

// Template is a starter site a new project can be created from.
type Template struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Thumbnail   string  `json:"thumbnail" yaml:"thumbnail"`
	Category    string  `json:"category" yaml:"category"`
	Pages       []*Page `json:"pages" yaml:"pages"`
}
