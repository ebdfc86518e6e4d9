// Package projectmanager is the document mutation engine. A Manager holds the
// project currently open in the editor and applies component, page, asset and
// publishing edits to it: each edit is computed on a copy, persisted as a whole
// and only then committed to memory.
package projectmanager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go-site-builder/internal/assets"
	"go-site-builder/internal/auth"
	"go-site-builder/internal/catalog"
	"go-site-builder/internal/events"
	"go-site-builder/internal/metrics"
	"go-site-builder/internal/model"
	"go-site-builder/internal/schema"
	"go-site-builder/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated  = errors.New("user not authenticated")
	ErrProjectNotLoaded = errors.New("project not loaded")
	ErrProjectNotFound  = errors.New("project not found")
	ErrForbidden        = errors.New("project belongs to another user")
	ErrPageNotFound     = errors.New("page not found")
	ErrAssetNotFound    = errors.New("asset not found")
	ErrLastPage         = errors.New("cannot delete the last page")
	// ErrSelfParent rejects moving a component under itself.
	ErrSelfParent = errors.New("component cannot be its own parent")
	// ErrCycle rejects moving a component under one of its descendants.
	ErrCycle = errors.New("component cannot be moved into its own subtree")
)

// DefaultPersistTimeout bounds a single store call when no timeout is configured.
const DefaultPersistTimeout = 10 * time.Second

// SelectionListener is told which component ids disappeared from the document so
// it can drop a selection that would otherwise dangle.
type SelectionListener interface {
	ClearIfSelected(ids ...string) bool
}

// Manager applies edits to the currently loaded project. All operations are
// serialized; the loading flag is set while a store call is in flight.
type Manager struct {
	mu      sync.Mutex
	current *model.Project
	loading atomic.Bool

	store          storage.DocumentStore
	users          auth.Provider
	logger         *slog.Logger
	catalog        *catalog.Catalog
	schemas        *schema.Registry
	bus            events.Bus
	metrics        *metrics.Metrics
	deployer       Deployer
	objects        assets.ObjectStore
	selection      SelectionListener
	publishBaseURL string
	persistTimeout time.Duration
	newID          func() string
	now            func() int64
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

func WithCatalog(c *catalog.Catalog) Option { return func(m *Manager) { m.catalog = c } }

func WithSchemas(r *schema.Registry) Option { return func(m *Manager) { m.schemas = r } }

// WithBus publishes a change event after every committed edit.
func WithBus(b events.Bus) Option { return func(m *Manager) { m.bus = b } }

func WithMetrics(mt *metrics.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

func WithDeployer(d Deployer) Option { return func(m *Manager) { m.deployer = d } }

// WithObjectStore enables UploadAsset and removes stored objects on DeleteAsset.
func WithObjectStore(o assets.ObjectStore) Option { return func(m *Manager) { m.objects = o } }

func WithSelection(l SelectionListener) Option { return func(m *Manager) { m.selection = l } }

// WithPublishBaseURL sets the prefix of published site URLs.
func WithPublishBaseURL(u string) Option { return func(m *Manager) { m.publishBaseURL = u } }

func WithPersistTimeout(d time.Duration) Option { return func(m *Manager) { m.persistTimeout = d } }

// WithIDGenerator replaces uuid generation for new pages, components and assets.
func WithIDGenerator(fn func() string) Option { return func(m *Manager) { m.newID = fn } }

// WithClock replaces the unix-millisecond clock used for timestamps.
func WithClock(fn func() int64) Option { return func(m *Manager) { m.now = fn } }

// NewManager creates a Manager with no project loaded.
func NewManager(store storage.DocumentStore, users auth.Provider, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		users:          users,
		deployer:       NopDeployer{},
		publishBaseURL: "https://sites.example.com",
		persistTimeout: DefaultPersistTimeout,
		newID:          uuid.NewString,
		now:            model.NowMillis,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.catalog == nil {
		m.catalog = catalog.MustNew()
	}
	if m.schemas == nil {
		m.schemas = schema.Default()
	}
	if m.persistTimeout <= 0 {
		m.persistTimeout = DefaultPersistTimeout
	}
	return m
}

// Loading reports whether a store call is in flight.
func (m *Manager) Loading() bool {
	return m.loading.Load()
}

// Current returns a copy of the loaded project, or nil.
func (m *Manager) Current() *model.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// Page returns a copy of a page of the loaded project.
func (m *Manager) Page(pageID string) (*model.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrProjectNotLoaded
	}
	page := m.current.Page(pageID)
	if page == nil {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	return page.Clone(), nil
}

// Close forgets the loaded project.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}

// user returns the authenticated user. Callers hold m.mu.
func (m *Manager) user(ctx context.Context) (*model.User, error) {
	if m.users == nil {
		return nil, ErrUnauthenticated
	}
	u, ok := m.users.CurrentUser(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// loaded checks the two preconditions shared by every project-scoped edit.
// Callers hold m.mu.
func (m *Manager) loaded(ctx context.Context, projectID string) (*model.User, error) {
	u, err := m.user(ctx)
	if err != nil {
		return nil, err
	}
	if m.current == nil || m.current.ID != projectID {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotLoaded, projectID)
	}
	return u, nil
}

// persist writes a partial project document under the persistence timeout.
func (m *Manager) persist(ctx context.Context, projectID string, patch storage.Document) error {
	ctx, cancel := context.WithTimeout(ctx, m.persistTimeout)
	defer cancel()
	m.loading.Store(true)
	defer m.loading.Store(false)
	return m.store.UpdateDocument(ctx, storage.ProjectsCollection, projectID, patch)
}

// editPages is the persist-then-commit cycle for page edits. fn receives a copy of
// the loaded pages and returns the replacement list; nothing is persisted or
// committed when it fails.
func (m *Manager) editPages(ctx context.Context, projectID string, fn func(pages []*model.Page) ([]*model.Page, error)) (*model.User, error) {
	u, err := m.loaded(ctx, projectID)
	if err != nil {
		return nil, err
	}
	pages, err := fn(model.ClonePages(m.current.Pages))
	if err != nil {
		return nil, err
	}
	now := m.now()
	if err := m.persist(ctx, projectID, storage.PagesPatch(pages, now)); err != nil {
		m.logger.Error("Failed to persist pages", "projectID", projectID, "error", err)
		return nil, fmt.Errorf("saving pages failed: %w", err)
	}
	m.current.Pages = pages
	m.current.UpdatedAt = now
	return u, nil
}

// pageIndex returns the position of pageID in pages.
func pageIndex(pages []*model.Page, pageID string) (int, error) {
	for i, p := range pages {
		if p.ID == pageID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
}

// emit publishes a change event. Bus failures are logged, never returned: the
// edit is already committed.
func (m *Manager) emit(ctx context.Context, e events.Event) {
	if m.bus == nil {
		return
	}
	if e.At == 0 {
		e.At = m.now()
	}
	if err := m.bus.Publish(ctx, e); err != nil {
		m.logger.Warn("Failed to publish change event", "kind", e.Kind, "projectID", e.ProjectID, "error", err)
	}
}

func (m *Manager) clearSelection(ids []string) {
	if m.selection == nil || len(ids) == 0 {
		return
	}
	if m.selection.ClearIfSelected(ids...) {
		m.logger.Debug("Cleared selection of removed component", "count", len(ids))
	}
}
