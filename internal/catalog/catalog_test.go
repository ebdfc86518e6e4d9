package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"go-site-builder/internal/model"
	"go-site-builder/internal/schema"
	"go-site-builder/internal/tree"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func TestBuiltinBlueprints(t *testing.T) {
	c := newCatalog(t)
	all := c.All()
	if len(all) != len(model.BuiltinTypes) {
		t.Fatalf("All() returned %d items, want %d", len(all), len(model.BuiltinTypes))
	}
	reg := schema.Default()
	for i, typ := range model.BuiltinTypes {
		it := all[i]
		if it.Component.Type != typ {
			t.Errorf("item %d type = %q, want %q", i, it.Component.Type, typ)
		}
		if it.Custom {
			t.Errorf("item %q marked custom", it.ID)
		}
		if err := reg.ValidateTree(it.Component); err != nil {
			t.Errorf("blueprint %q fails its own schema: %v", it.ID, err)
		}
	}

	textarea, err := c.Get("textarea")
	if err != nil {
		t.Fatalf("Get(textarea) failed: %v", err)
	}
	if textarea.Component.Styles["border"] != "1px solid #d1d5db" {
		t.Errorf("textarea border = %q", textarea.Component.Styles["border"])
	}
	if rows, ok := textarea.Component.Props["rows"].(int); !ok || rows != 4 {
		t.Errorf("textarea rows = %#v, want int 4", textarea.Component.Props["rows"])
	}
}

func TestCategories(t *testing.T) {
	c := newCatalog(t)
	want := []string{"Basic", "Layout", "Components", "Forms"}
	if got := c.Categories(); !reflect.DeepEqual(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
	if got := len(c.ByCategory("Forms")); got != 3 {
		t.Errorf("ByCategory(Forms) returned %d items, want 3", got)
	}
}

func TestInstantiateStampsFreshIDs(t *testing.T) {
	c := newCatalog(t)
	blueprint, _ := c.Get("navbar")

	n := 0
	seq := func() string { n++; return fmt.Sprintf("n%d", n) }
	a, err := c.Instantiate("navbar", seq)
	if err != nil {
		t.Fatalf("Instantiate() failed: %v", err)
	}
	b, _ := c.Instantiate("navbar", seq)

	if a.ID == b.ID || a.ID == blueprint.Component.ID {
		t.Errorf("ids not fresh: a=%q b=%q blueprint=%q", a.ID, b.ID, blueprint.Component.ID)
	}
	if a.Type != blueprint.Component.Type ||
		!reflect.DeepEqual(a.Props, blueprint.Component.Props) ||
		!reflect.DeepEqual(a.Styles, blueprint.Component.Styles) {
		t.Errorf("stamped copy differs from blueprint: %+v", a)
	}

	// Mutating an instance must not leak into the catalog.
	a.Props["links"] = nil
	again, _ := c.Get("navbar")
	if again.Component.Props["links"] == nil {
		t.Errorf("instance shares props with the blueprint")
	}

	if _, err := c.Instantiate("missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Instantiate(missing) = %v, want ErrNotFound", err)
	}
}

func TestInstantiateNestedCustomItem(t *testing.T) {
	c := newCatalog(t)
	id, err := c.Add("u1", model.LibraryItem{
		Name:     "Hero",
		Category: "Sections",
		Component: &model.Component{
			ID:   "hero",
			Type: model.TypeContainer,
			Name: "Hero",
			Children: []*model.Component{
				{ID: "title", Type: model.TypeHeading, ParentID: "hero"},
				{ID: "cta", Type: model.TypeButton, ParentID: "hero"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	stamped, err := c.Instantiate(id, nil)
	if err != nil {
		t.Fatalf("Instantiate() failed: %v", err)
	}
	roots := []*model.Component{stamped}
	if err := tree.Validate(roots); err != nil {
		t.Fatalf("stamped tree invalid: %v", err)
	}
	for _, old := range []string{"hero", "title", "cta"} {
		if _, found := tree.Find(roots, old); found {
			t.Errorf("blueprint id %q survived stamping", old)
		}
	}
	if got := tree.Count(roots); got != 3 {
		t.Errorf("stamped node count = %d, want 3", got)
	}
}

func TestCustomItemLifecycle(t *testing.T) {
	c := newCatalog(t)

	if _, err := c.Add("u1", model.LibraryItem{Name: "Empty"}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("Add(no component) = %v, want ErrInvalidItem", err)
	}

	id, err := c.Add("u1", model.LibraryItem{
		Name:      "Badge",
		Category:  "Custom",
		Component: &model.Component{Type: "badge", Name: "Badge"},
	})
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if got := c.ByCategory("Custom"); len(got) != 1 || !got[0].Custom || got[0].OwnerID != "u1" {
		t.Fatalf("ByCategory(Custom) = %+v", got)
	}

	if err := c.Update("u1", id, model.LibraryItem{Name: "Pill"}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	got, _ := c.Get(id)
	if got.Name != "Pill" || got.Category != "Custom" {
		t.Errorf("after Update: name=%q category=%q", got.Name, got.Category)
	}

	if err := c.Update("u2", id, model.LibraryItem{Name: "Stolen"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Update(other owner) = %v, want ErrForbidden", err)
	}
	if err := c.Delete("u2", id); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete(other owner) = %v, want ErrForbidden", err)
	}
	if err := c.Update("u1", "text", model.LibraryItem{Name: "X"}); !errors.Is(err, ErrBuiltin) {
		t.Errorf("Update(builtin) = %v, want ErrBuiltin", err)
	}
	if err := c.Delete("u1", "text"); !errors.Is(err, ErrBuiltin) {
		t.Errorf("Delete(builtin) = %v, want ErrBuiltin", err)
	}

	if err := c.Delete("u1", id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := c.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(deleted) = %v, want ErrNotFound", err)
	}
	if err := c.Delete("u1", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(deleted) = %v, want ErrNotFound", err)
	}
}

func TestCustomItemRejectsInvalidComponents(t *testing.T) {
	c := newCatalog(t)

	var holed model.LibraryItem
	if err := json.Unmarshal([]byte(`{"name":"Hole","component":{"type":"container","children":[null]}}`), &holed); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		item model.LibraryItem
		want error
	}{
		{"nil child", holed, ErrInvalidItem},
		{"untyped child", model.LibraryItem{Component: &model.Component{
			Type: model.TypeContainer, Children: []*model.Component{{Name: "x"}},
		}}, ErrInvalidItem},
		{"invalid props", model.LibraryItem{Component: &model.Component{
			Type: model.TypeHeading, Props: model.Props{"level": "h9"},
		}}, schema.ErrInvalidProps},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Add("u1", tt.item); !errors.Is(err, tt.want) {
				t.Errorf("Add() = %v, want %v", err, tt.want)
			}
		})
	}

	id, err := c.Add("u1", model.LibraryItem{Name: "Box", Component: &model.Component{Type: model.TypeContainer}})
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range tests {
		if err := c.Update("u1", id, tt.item); !errors.Is(err, tt.want) {
			t.Errorf("Update(%s) = %v, want %v", tt.name, err, tt.want)
		}
	}
	if got, _ := c.Get(id); len(got.Component.Children) != 0 {
		t.Errorf("rejected update changed the item: %+v", got.Component)
	}
	if len(c.ByCategory("")) != 1 {
		t.Errorf("rejected items were stored")
	}
}

func TestTemplates(t *testing.T) {
	c := newCatalog(t)

	var ids []string
	for _, tpl := range c.Templates() {
		ids = append(ids, tpl.ID)
	}
	want := []string{"landing-page", "portfolio", "blog", "ecommerce"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("Templates() ids = %v, want %v", ids, want)
	}

	blog, err := c.Template("blog")
	if err != nil {
		t.Fatalf("Template(blog) failed: %v", err)
	}
	if len(blog.Pages) != 3 || blog.Pages[2].Path != "/blog/:id" {
		t.Errorf("blog pages = %+v", blog.Pages)
	}
	if blog.Pages[0].Components == nil || blog.Pages[0].Styles == nil {
		t.Errorf("template page bags not normalized")
	}

	blog.Pages[0].Name = "Changed"
	again, _ := c.Template("blog")
	if again.Pages[0].Name != "Home" {
		t.Errorf("Template() returned shared pages")
	}

	if got := c.TemplatesByCategory("Business"); len(got) != 1 || got[0].ID != "ecommerce" {
		t.Errorf("TemplatesByCategory(Business) = %+v", got)
	}
	if _, err := c.Template("nope"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Template(nope) = %v, want ErrTemplateNotFound", err)
	}
}
