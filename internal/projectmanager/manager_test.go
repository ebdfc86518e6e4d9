package projectmanager

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go-site-builder/internal/assets"
	"go-site-builder/internal/auth"
	"go-site-builder/internal/catalog"
	"go-site-builder/internal/editor"
	"go-site-builder/internal/events"
	"go-site-builder/internal/model"
	"go-site-builder/internal/schema"
	"go-site-builder/internal/storage"
	"go-site-builder/internal/tree"
)

// flakyStore wraps a MemoryStore and fails updates on demand.
type flakyStore struct {
	*storage.MemoryStore
	mu         sync.Mutex
	failUpdate bool
	updates    int
}

var errStoreDown = errors.New("store unavailable")

func (s *flakyStore) UpdateDocument(ctx context.Context, collection, id string, partial storage.Document) error {
	s.mu.Lock()
	fail := s.failUpdate
	s.updates++
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.MemoryStore.UpdateDocument(ctx, collection, id, partial)
}

func (s *flakyStore) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdate = v
}

type fixture struct {
	m       *Manager
	store   *flakyStore
	session *editor.Session
	bus     *events.MemoryBus
	project *model.Project
	pageID  string
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("n%d", n)
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:   &flakyStore{MemoryStore: storage.NewMemoryStore()},
		session: editor.NewSession(0),
		bus:     events.NewMemoryBus(),
	}
	users := auth.Static{User: &model.User{ID: "u1", Email: "u1@example.com"}}
	base := []Option{WithSelection(f.session), WithBus(f.bus), WithIDGenerator(sequentialIDs())}
	f.m = NewManager(f.store, users, append(base, opts...)...)

	p, err := f.m.CreateProject(context.Background(), "Site", "", "")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	f.project = p
	f.pageID = p.Pages[0].ID
	return f
}

func (f *fixture) roots(t *testing.T) []*model.Component {
	t.Helper()
	page, err := f.m.Page(f.pageID)
	if err != nil {
		t.Fatalf("Page() failed: %v", err)
	}
	return page.Components
}

func (f *fixture) add(t *testing.T, typ model.ComponentType, parentID string) string {
	t.Helper()
	id, err := f.m.AddComponent(context.Background(), f.project.ID, f.pageID, NewComponent{Type: typ}, parentID, tree.Append)
	if err != nil {
		t.Fatalf("AddComponent(%s under %q) failed: %v", typ, parentID, err)
	}
	return id
}

// storedRoots reads the page tree back from the store.
func (f *fixture) storedRoots(t *testing.T) []*model.Component {
	t.Helper()
	doc, err := f.store.GetDocument(context.Background(), storage.ProjectsCollection, f.project.ID)
	if err != nil {
		t.Fatal(err)
	}
	p, err := storage.DecodeProject(doc)
	if err != nil {
		t.Fatal(err)
	}
	return p.Page(f.pageID).Components
}

// shape renders a tree as "id(child,child)" for exact comparisons.
func shape(list []*model.Component) string {
	parts := make([]string, 0, len(list))
	for _, c := range list {
		s := c.ID
		if len(c.Children) > 0 {
			s += "(" + shape(c.Children) + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ",")
}

func TestScenario_AddNestMoveToRoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c1 := f.add(t, model.TypeContainer, "")
	c2 := f.add(t, model.TypeText, c1)
	if got := shape(f.roots(t)); got != c1+"("+c2+")" {
		t.Fatalf("after adds shape = %s", got)
	}

	if err := f.m.MoveComponent(ctx, f.project.ID, f.pageID, c2, "", tree.Append); err != nil {
		t.Fatalf("MoveComponent failed: %v", err)
	}
	roots := f.roots(t)
	if len(roots) != 2 || roots[0].ID != c1 || roots[1].ID != c2 {
		t.Fatalf("root list = %s, want %s,%s", shape(roots), c1, c2)
	}
	if len(roots[0].Children) != 0 {
		t.Errorf("c1 children = %d, want 0", len(roots[0].Children))
	}
	if roots[1].ParentID != "" {
		t.Errorf("c2 ParentID = %q, want empty", roots[1].ParentID)
	}
	if err := tree.Validate(roots); err != nil {
		t.Errorf("tree invalid: %v", err)
	}
	if got := shape(f.storedRoots(t)); got != c1+","+c2 {
		t.Errorf("stored shape = %s", got)
	}
}

func TestAddComponent_UniqueIDsAndChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data := NewComponent{Type: model.TypeCard, Children: []NewComponent{
		{Type: model.TypeHeading, Props: model.Props{"text": "Title", "level": "h3"}},
		{Type: model.TypeText, Props: model.Props{"text": "Body"}},
	}}
	for i := 0; i < 3; i++ {
		if _, err := f.m.AddComponent(ctx, f.project.ID, f.pageID, data, "", 0); err != nil {
			t.Fatalf("AddComponent failed: %v", err)
		}
	}
	roots := f.roots(t)
	if tree.Count(roots) != 9 {
		t.Errorf("Count = %d, want 9", tree.Count(roots))
	}
	if err := tree.Validate(roots); err != nil {
		t.Errorf("ids or parents inconsistent: %v", err)
	}
	if roots[0].Name != "card" {
		t.Errorf("default name = %q, want type name", roots[0].Name)
	}
}

func TestAddComponent_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.m.AddComponent(ctx, f.project.ID, f.pageID, NewComponent{}, "", 0); !errors.Is(err, schema.ErrEmptyType) {
		t.Errorf("empty type err = %v", err)
	}
	bad := NewComponent{Type: model.TypeHeading, Props: model.Props{"level": 9}}
	if _, err := f.m.AddComponent(ctx, f.project.ID, f.pageID, bad, "", 0); !errors.Is(err, schema.ErrInvalidProps) {
		t.Errorf("bad props err = %v, want ErrInvalidProps", err)
	}
	if _, err := f.m.AddComponent(ctx, f.project.ID, "nope", NewComponent{Type: model.TypeText}, "", 0); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("missing page err = %v", err)
	}
	if _, err := f.m.AddComponent(ctx, f.project.ID, f.pageID, NewComponent{Type: model.TypeText}, "ghost", 0); !errors.Is(err, tree.ErrParentNotFound) {
		t.Errorf("missing parent err = %v", err)
	}
	custom := NewComponent{Type: "carousel", Props: model.Props{"anything": true}}
	if _, err := f.m.AddComponent(ctx, f.project.ID, f.pageID, custom, "", 0); err != nil {
		t.Errorf("unknown type rejected: %v", err)
	}
	if n := len(f.roots(t)); n != 1 {
		t.Errorf("roots = %d, want only the custom component", n)
	}
}

func TestPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	signedOut := NewManager(f.store, auth.Static{})
	if _, err := signedOut.AddComponent(ctx, f.project.ID, f.pageID, NewComponent{Type: model.TypeText}, "", 0); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("signed out err = %v", err)
	}
	if _, err := signedOut.ListProjects(ctx); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("signed out list err = %v", err)
	}

	if _, err := f.m.AddPage(ctx, "other-project", "About", "/about"); !errors.Is(err, ErrProjectNotLoaded) {
		t.Errorf("wrong project err = %v", err)
	}

	other := NewManager(f.store, auth.Static{User: &model.User{ID: "u2"}})
	if _, err := other.OpenProject(ctx, f.project.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign open err = %v", err)
	}
	if _, err := other.OpenProject(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("missing open err = %v", err)
	}
}

func TestUpdateComponent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.m.AddComponent(ctx, f.project.ID, f.pageID, NewComponent{
		Type:   model.TypeButton,
		Props:  model.Props{"text": "Go", "variant": "primary"},
		Styles: model.Styles{"color": "red"},
	}, "", 0)
	if err != nil {
		t.Fatal(err)
	}

	name := "CTA"
	patch := tree.Patch{Name: &name, Props: model.Props{"text": "Buy"}, Styles: model.Styles{"padding": "4px"}}
	if err := f.m.UpdateComponent(ctx, f.project.ID, f.pageID, id, patch); err != nil {
		t.Fatalf("UpdateComponent failed: %v", err)
	}
	c, _ := tree.Find(f.roots(t), id)
	want := model.Props{"text": "Buy", "variant": "primary"}
	if c.Name != "CTA" || !reflect.DeepEqual(c.Props, want) || c.Styles["color"] != "red" || c.Styles["padding"] != "4px" {
		t.Errorf("merged component = %+v", c)
	}

	bad := tree.Patch{Props: model.Props{"text": 42}}
	if err := f.m.UpdateComponent(ctx, f.project.ID, f.pageID, id, bad); !errors.Is(err, schema.ErrInvalidProps) {
		t.Errorf("invalid patch err = %v", err)
	}
	if err := f.m.UpdateComponent(ctx, f.project.ID, f.pageID, "ghost", patch); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("missing component err = %v", err)
	}
}

func TestDeleteComponent_RemovesSubtreeAndClearsSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keep := f.add(t, model.TypeText, "")
	box := f.add(t, model.TypeContainer, "")
	row := f.add(t, model.TypeRow, box)
	leaf := f.add(t, model.TypeText, row)
	before := tree.Count(f.roots(t))

	f.session.Select(leaf)
	f.session.Hover(row)
	if err := f.m.DeleteComponent(ctx, f.project.ID, f.pageID, box); err != nil {
		t.Fatalf("DeleteComponent failed: %v", err)
	}
	roots := f.roots(t)
	if got := tree.Count(roots); got != before-3 {
		t.Errorf("Count = %d, want %d", got, before-3)
	}
	if shape(roots) != keep {
		t.Errorf("shape = %s, want only %s", shape(roots), keep)
	}
	st := f.session.State()
	if st.Selected != "" || st.Hovered != "" {
		t.Errorf("selection not cleared: %+v", st)
	}

	f.session.Select(keep)
	if err := f.m.DeleteComponent(ctx, f.project.ID, f.pageID, "ghost"); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("missing delete err = %v", err)
	}
	if f.session.Selected() != keep {
		t.Errorf("unrelated selection changed to %q", f.session.Selected())
	}
}

func TestMoveComponent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.add(t, model.TypeContainer, "")
	b := f.add(t, model.TypeContainer, "")
	a1 := f.add(t, model.TypeText, a)
	a2 := f.add(t, model.TypeText, a)

	tests := []struct {
		name     string
		id       string
		parent   string
		index    int
		wantErr  error
		wantTree string
	}{
		{"self parent", a, a, 0, ErrSelfParent, ""},
		{"into descendant", a, a1, 0, ErrCycle, ""},
		{"missing component", "ghost", "", 0, tree.ErrNotFound, ""},
		{"missing parent", a1, "ghost", 0, tree.ErrParentNotFound, ""},
		{"reorder siblings", a2, a, 0, nil, fmt.Sprintf("%s(%s,%s),%s", a, a2, a1, b)},
		{"into other parent", a1, b, tree.Append, nil, fmt.Sprintf("%s(%s),%s(%s)", a, a2, b, a1)},
		{"subtree to root front", b, "", 0, nil, fmt.Sprintf("%s(%s),%s(%s)", b, a1, a, a2)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			before := f.roots(t)
			err := f.m.MoveComponent(ctx, f.project.ID, f.pageID, tt.id, tt.parent, tt.index)
			after := f.roots(t)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if !reflect.DeepEqual(before, after) {
					t.Errorf("tree changed on rejected move: %s -> %s", shape(before), shape(after))
				}
				return
			}
			if err != nil {
				t.Fatalf("MoveComponent failed: %v", err)
			}
			if got := shape(after); got != tt.wantTree {
				t.Errorf("shape = %s, want %s", got, tt.wantTree)
			}
			if tree.Count(after) != tree.Count(before) {
				t.Errorf("node count changed: %d -> %d", tree.Count(before), tree.Count(after))
			}
			if err := tree.Validate(after); err != nil {
				t.Errorf("tree invalid: %v", err)
			}
		})
	}
}

func TestPersistFailureLeavesMemoryUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1 := f.add(t, model.TypeContainer, "")
	c2 := f.add(t, model.TypeText, c1)
	before := f.m.Current()

	f.store.setFail(true)
	if _, err := f.m.AddComponent(ctx, f.project.ID, f.pageID, NewComponent{Type: model.TypeText}, "", 0); !errors.Is(err, errStoreDown) {
		t.Errorf("add err = %v", err)
	}
	if err := f.m.MoveComponent(ctx, f.project.ID, f.pageID, c2, "", 0); !errors.Is(err, errStoreDown) {
		t.Errorf("move err = %v", err)
	}
	f.session.Select(c1)
	if err := f.m.DeleteComponent(ctx, f.project.ID, f.pageID, c1); !errors.Is(err, errStoreDown) {
		t.Errorf("delete err = %v", err)
	}
	if _, err := f.m.AddPage(ctx, f.project.ID, "About", "/about"); !errors.Is(err, errStoreDown) {
		t.Errorf("add page err = %v", err)
	}
	if _, err := f.m.PublishProject(ctx, f.project.ID); !errors.Is(err, errStoreDown) {
		t.Errorf("publish err = %v", err)
	}

	if !reflect.DeepEqual(before, f.m.Current()) {
		t.Errorf("memory changed after failed persists")
	}
	if f.session.Selected() != c1 {
		t.Errorf("selection cleared although delete failed")
	}
	if f.m.Loading() {
		t.Errorf("loading flag stuck after failure")
	}
}

func TestPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.m.DeletePage(ctx, f.project.ID, f.pageID); !errors.Is(err, ErrLastPage) {
		t.Fatalf("delete last page err = %v, want ErrLastPage", err)
	}
	if n := len(f.m.Current().Pages); n != 1 {
		t.Fatalf("pages after rejected delete = %d", n)
	}

	about, err := f.m.AddPage(ctx, f.project.ID, "About", "/about")
	if err != nil {
		t.Fatalf("AddPage failed: %v", err)
	}
	if _, err := f.m.AddPage(ctx, f.project.ID, "", "/x"); !errors.Is(err, ErrEmptyPageName) {
		t.Errorf("blank page name err = %v", err)
	}

	name, path := "About us", "/about-us"
	if err := f.m.UpdatePage(ctx, f.project.ID, about, PagePatch{Name: &name, Path: &path, Styles: model.Styles{"background": "#fff"}}); err != nil {
		t.Fatalf("UpdatePage failed: %v", err)
	}
	page, _ := f.m.Page(about)
	if page.Name != name || page.Path != path || page.Styles["background"] != "#fff" {
		t.Errorf("updated page = %+v", page)
	}

	f.pageID = about
	child := f.add(t, model.TypeText, "")
	f.session.Select(child)
	if err := f.m.DeletePage(ctx, f.project.ID, about); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	if n := len(f.m.Current().Pages); n != 1 {
		t.Errorf("pages = %d, want 1", n)
	}
	if f.session.Selected() != "" {
		t.Errorf("selection on deleted page not cleared")
	}
	if err := f.m.UpdatePage(ctx, f.project.ID, about, PagePatch{Name: &name}); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("update deleted page err = %v", err)
	}
}

func TestPlaceLibraryItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.m.PlaceLibraryItem(ctx, f.project.ID, f.pageID, "button", "", tree.Append)
	if err != nil {
		t.Fatalf("PlaceLibraryItem failed: %v", err)
	}
	second, err := f.m.PlaceLibraryItem(ctx, f.project.ID, f.pageID, "button", "", tree.Append)
	if err != nil {
		t.Fatal(err)
	}
	if first == second || first == "button-blueprint" {
		t.Errorf("ids not fresh: %q, %q", first, second)
	}
	a, _ := tree.Find(f.roots(t), first)
	b, _ := tree.Find(f.roots(t), second)
	if a.Type != b.Type || !reflect.DeepEqual(a.Props, b.Props) || !reflect.DeepEqual(a.Styles, b.Styles) {
		t.Errorf("placed copies differ: %+v vs %+v", a, b)
	}
	if _, err := f.m.PlaceLibraryItem(ctx, f.project.ID, f.pageID, "missing", "", 0); err == nil {
		t.Errorf("placing unknown item succeeded")
	}
}

func TestPlaceLibraryItem_ValidatesProps(t *testing.T) {
	// A catalog without schemas accepts the item; placing it must still fail.
	lib := catalog.MustNew(catalog.WithSchemas(schema.NewRegistry()))
	itemID, err := lib.Add("u1", model.LibraryItem{
		Name:      "Big",
		Component: &model.Component{Type: model.TypeHeading, Props: model.Props{"text": "x", "level": "h9"}},
	})
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	f := newFixture(t, WithCatalog(lib))
	ctx := context.Background()

	if _, err := f.m.PlaceLibraryItem(ctx, f.project.ID, f.pageID, itemID, "", tree.Append); !errors.Is(err, schema.ErrInvalidProps) {
		t.Fatalf("PlaceLibraryItem(invalid) = %v, want ErrInvalidProps", err)
	}
	if n := len(f.roots(t)); n != 0 {
		t.Errorf("invalid item committed: %d roots", n)
	}
	if n := len(f.storedRoots(t)); n != 0 {
		t.Errorf("invalid item persisted: %d roots", n)
	}
}

func TestProjectLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blog, err := f.m.CreateProject(ctx, "Blog", "notes", "blog")
	if err != nil {
		t.Fatalf("CreateProject(blog) failed: %v", err)
	}
	if blog.Template != "blog" || len(blog.Pages) != 3 {
		t.Errorf("template project = %+v", blog)
	}
	if f.m.Current().ID != blog.ID {
		t.Errorf("created project not opened")
	}

	list, err := f.m.ListProjects(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListProjects = %d, %v", len(list), err)
	}

	if _, err := f.m.OpenProject(ctx, f.project.ID); err != nil {
		t.Fatalf("OpenProject failed: %v", err)
	}
	desc := "updated"
	if err := f.m.UpdateProject(ctx, f.project.ID, ProjectPatch{Description: &desc}); err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}
	if f.m.Current().Description != desc {
		t.Errorf("description not committed")
	}

	if err := f.m.DeleteProject(ctx, f.project.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if f.m.Current() != nil {
		t.Errorf("deleted project still loaded")
	}
	if _, err := f.m.CreateProject(ctx, "x", "", "nope"); err == nil {
		t.Errorf("unknown template accepted")
	}
}

func TestOpenProject_PersistsPageRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.MemoryStore.UpdateDocument(ctx, storage.ProjectsCollection, f.project.ID, storage.Document{"pages": []any{}}); err != nil {
		t.Fatal(err)
	}
	f.m.Close()

	f.store.setFail(true)
	if _, err := f.m.OpenProject(ctx, f.project.ID); !errors.Is(err, errStoreDown) {
		t.Fatalf("OpenProject with store down = %v, want errStoreDown", err)
	}
	if f.m.Current() != nil {
		t.Errorf("unrepaired project loaded")
	}
	f.store.setFail(false)

	p, err := f.m.OpenProject(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("OpenProject failed: %v", err)
	}
	if len(p.Pages) != 1 || p.Pages[0].Path != "/" {
		t.Fatalf("repaired pages = %+v", p.Pages)
	}
	home := p.Pages[0].ID

	f.m.Close()
	again, err := f.m.OpenProject(ctx, f.project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Pages) != 1 || again.Pages[0].ID != home {
		t.Errorf("second open pages = %+v, want stored home %q", again.Pages, home)
	}
}

func TestPublishUnpublish(t *testing.T) {
	objects := assets.NewMemoryStore("https://cdn.test")
	f := newFixture(t, WithDeployer(NewObjectDeployer(objects, nil)), WithPublishBaseURL("https://sites.test/"))
	ctx := context.Background()
	f.add(t, model.TypeText, "")

	url, err := f.m.PublishProject(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("PublishProject failed: %v", err)
	}
	if url != "https://sites.test/"+f.project.ID {
		t.Errorf("url = %q", url)
	}
	p := f.m.Current()
	if !p.Published || p.PublishedURL != url {
		t.Errorf("publish state = %v %q", p.Published, p.PublishedURL)
	}
	want := []string{"site/index.json", "site/site.json"}
	if keys := objects.Keys(f.project.ID); !reflect.DeepEqual(keys, want) {
		t.Errorf("deployed keys = %v, want %v", keys, want)
	}
	raw, _, err := objects.Get(f.project.ID, "site/index.json")
	if err != nil || !strings.Contains(string(raw), `"type":"text"`) {
		t.Errorf("home page snapshot = %s, %v", raw, err)
	}

	if err := f.m.UnpublishProject(ctx, f.project.ID); err != nil {
		t.Fatalf("UnpublishProject failed: %v", err)
	}
	p = f.m.Current()
	if p.Published || p.PublishedURL != "" {
		t.Errorf("unpublish state = %v %q", p.Published, p.PublishedURL)
	}
	if n := len(objects.Keys(f.project.ID)); n != 0 {
		t.Errorf("objects left after unpublish: %d", n)
	}
}

func TestPublishStateFailureRestoresDeployment(t *testing.T) {
	objects := assets.NewMemoryStore("https://cdn.test")
	f := newFixture(t, WithDeployer(NewObjectDeployer(objects, nil)))
	ctx := context.Background()
	f.add(t, model.TypeText, "")

	f.store.setFail(true)
	if _, err := f.m.PublishProject(ctx, f.project.ID); !errors.Is(err, errStoreDown) {
		t.Fatalf("PublishProject = %v, want errStoreDown", err)
	}
	if n := len(objects.Keys(f.project.ID)); n != 0 {
		t.Errorf("deployment left behind after failed publish: %d objects", n)
	}
	if f.m.Current().Published {
		t.Errorf("failed publish committed")
	}

	f.store.setFail(false)
	url, err := f.m.PublishProject(ctx, f.project.ID)
	if err != nil {
		t.Fatal(err)
	}
	deployed := objects.Keys(f.project.ID)

	f.store.setFail(true)
	if err := f.m.UnpublishProject(ctx, f.project.ID); !errors.Is(err, errStoreDown) {
		t.Fatalf("UnpublishProject = %v, want errStoreDown", err)
	}
	if keys := objects.Keys(f.project.ID); !reflect.DeepEqual(keys, deployed) {
		t.Errorf("deployment after failed unpublish = %v, want %v", keys, deployed)
	}
	if p := f.m.Current(); !p.Published || p.PublishedURL != url {
		t.Errorf("failed unpublish committed: %v %q", p.Published, p.PublishedURL)
	}
}

func TestAssets(t *testing.T) {
	objects := assets.NewMemoryStore("https://cdn.test")
	f := newFixture(t, WithObjectStore(objects))
	ctx := context.Background()

	a, err := f.m.UploadAsset(ctx, f.project.ID, "Logo.PNG", "image/png", strings.NewReader("png"), 3)
	if err != nil {
		t.Fatalf("UploadAsset failed: %v", err)
	}
	if a.Kind != model.AssetImage || a.Key == "" || a.CreatedAt == 0 {
		t.Errorf("asset = %+v", a)
	}
	if _, _, err := objects.Get(f.project.ID, a.Key); err != nil {
		t.Errorf("object not stored: %v", err)
	}

	linked, err := f.m.AddAsset(ctx, f.project.ID, NewAsset{Name: "font", Kind: model.AssetFont, URL: "https://fonts.test/a.woff"})
	if err != nil {
		t.Fatalf("AddAsset failed: %v", err)
	}
	if n := len(f.m.Current().Assets); n != 2 {
		t.Fatalf("assets = %d", n)
	}

	if err := f.m.DeleteAsset(ctx, f.project.ID, a.ID); err != nil {
		t.Fatalf("DeleteAsset failed: %v", err)
	}
	if _, _, err := objects.Get(f.project.ID, a.Key); !errors.Is(err, assets.ErrNotFound) {
		t.Errorf("object still stored: %v", err)
	}
	if err := f.m.DeleteAsset(ctx, f.project.ID, a.ID); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if got := f.m.Current().Assets; len(got) != 1 || got[0].ID != linked.ID {
		t.Errorf("remaining assets = %+v", got)
	}
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var kinds []events.Kind
	if err := f.bus.Subscribe(ctx, func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, e.Kind)
	}); err != nil {
		t.Fatal(err)
	}

	id := f.add(t, model.TypeText, "")
	f.store.setFail(true)
	_ = f.m.DeleteComponent(ctx, f.project.ID, f.pageID, id)
	f.store.setFail(false)
	if err := f.m.DeleteComponent(ctx, f.project.ID, f.pageID, id); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []events.Kind{events.ComponentAdded, events.ComponentDeleted}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("events = %v, want %v", kinds, want)
	}
}
