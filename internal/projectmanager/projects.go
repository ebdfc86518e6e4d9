package projectmanager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"go-site-builder/internal/assets"
	"go-site-builder/internal/events"
	"go-site-builder/internal/generator"
	"go-site-builder/internal/model"
	"go-site-builder/internal/storage"
	"go-site-builder/pkg/fsutils"
)

// ProjectPatch is a partial update of a project's metadata. Nil fields are left
// unchanged.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// NewAsset describes an asset whose file is already hosted somewhere.
type NewAsset struct {
	Name string          `json:"name"`
	Kind model.AssetKind `json:"type"`
	URL  string          `json:"url"`
	Size int64           `json:"size,omitempty"`
}

// ListProjects returns the current user's projects, most recently updated first.
func (m *Manager) ListProjects(ctx context.Context) (list []*model.Project, err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("list_projects", start, err) }(time.Now())
	u, err := m.user(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.persistTimeout)
	defer cancel()
	docs, err := m.store.QueryDocuments(ctx, storage.ProjectsCollection, "userId", u.ID)
	if err != nil {
		m.logger.Error("Failed to query projects", "userID", u.ID, "error", err)
		return nil, fmt.Errorf("listing projects failed: %w", err)
	}

	list = make([]*model.Project, 0, len(docs))
	for _, doc := range docs {
		p, err := storage.DecodeProject(doc)
		if err != nil {
			m.logger.Warn("Skipping unreadable project", "id", doc["id"], "error", err)
			continue
		}
		list = append(list, p)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].UpdatedAt > list[j].UpdatedAt })
	m.logger.Debug("Listed projects", "userID", u.ID, "count", len(list))
	return list, nil
}

// CreateProject saves a new project for the current user and opens it. With a
// templateID the project starts from that catalog template; otherwise it has a
// single empty Home page.
func (m *Manager) CreateProject(ctx context.Context, name, description, templateID string) (p *model.Project, err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("create_project", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.user(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Creating project", "name", name, "template", templateID, "userID", u.ID)

	var tmpl *model.Template
	if templateID != "" {
		if tmpl, err = m.catalog.Template(templateID); err != nil {
			return nil, err
		}
	}
	p, err = generator.NewProject(name, description, u.ID, tmpl, m.newID, m.now())
	if err != nil {
		return nil, err
	}

	doc, err := storage.ProjectDocument(p)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, m.persistTimeout)
	defer cancel()
	m.loading.Store(true)
	id, err := m.store.CreateDocument(cctx, storage.ProjectsCollection, doc)
	m.loading.Store(false)
	if err != nil {
		m.logger.Error("Error saving project", "name", name, "error", err)
		return nil, fmt.Errorf("saving project failed: %w", err)
	}
	p.ID = id
	m.current = p

	m.logger.Info("Successfully created project", "projectID", id, "pages", len(p.Pages))
	m.emit(ctx, events.Event{Kind: events.ProjectCreated, ProjectID: id, UserID: u.ID})
	return p.Clone(), nil
}

// fetch loads a project owned by u from the store.
func (m *Manager) fetch(ctx context.Context, u *model.User, projectID string) (*model.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, m.persistTimeout)
	defer cancel()
	m.loading.Store(true)
	doc, err := m.store.GetDocument(ctx, storage.ProjectsCollection, projectID)
	m.loading.Store(false)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	if err != nil {
		m.logger.Error("Failed to load project", "projectID", projectID, "error", err)
		return nil, fmt.Errorf("loading project failed: %w", err)
	}
	p, err := storage.DecodeProject(doc)
	if err != nil {
		return nil, err
	}
	if p.UserID != u.ID {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, projectID)
	}
	return p, nil
}

// OpenProject loads a project of the current user and makes it the one edits
// apply to.
func (m *Manager) OpenProject(ctx context.Context, projectID string) (p *model.Project, err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("open_project", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.user(ctx)
	if err != nil {
		return nil, err
	}
	if m.current != nil && m.current.ID == projectID {
		return m.current.Clone(), nil
	}
	p, err = m.fetch(ctx, u, projectID)
	if err != nil {
		return nil, err
	}
	if len(p.Pages) == 0 {
		// A stored project without pages is repaired rather than rejected.
		pages := []*model.Page{generator.HomePage(m.newID())}
		now := m.now()
		if err := m.persist(ctx, projectID, storage.PagesPatch(pages, now)); err != nil {
			m.logger.Error("Failed to persist page repair", "projectID", projectID, "error", err)
			return nil, fmt.Errorf("repairing project failed: %w", err)
		}
		p.Pages = pages
		p.UpdatedAt = now
		m.logger.Warn("Repaired project without pages", "projectID", projectID, "pageID", pages[0].ID)
	}
	m.current = p
	m.logger.Info("Opened project", "projectID", projectID, "pages", len(p.Pages))
	return p.Clone(), nil
}

// UpdateProject applies patch to the loaded project's metadata.
func (m *Manager) UpdateProject(ctx context.Context, projectID string, patch ProjectPatch) (err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("update_project", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.loaded(ctx, projectID)
	if err != nil {
		return err
	}
	if patch.Name != nil && *patch.Name == "" {
		return generator.ErrEmptyName
	}
	now := m.now()
	doc := storage.Document{"updatedAt": now}
	if patch.Name != nil {
		doc["name"] = *patch.Name
	}
	if patch.Description != nil {
		doc["description"] = *patch.Description
	}
	if err := m.persist(ctx, projectID, doc); err != nil {
		m.logger.Error("Failed to persist project", "projectID", projectID, "error", err)
		return fmt.Errorf("saving project failed: %w", err)
	}
	if patch.Name != nil {
		m.current.Name = *patch.Name
	}
	if patch.Description != nil {
		m.current.Description = *patch.Description
	}
	m.current.UpdatedAt = now

	m.logger.Info("Updated project", "projectID", projectID)
	m.emit(ctx, events.Event{Kind: events.ProjectUpdated, ProjectID: projectID, UserID: u.ID})
	return nil
}

// DeleteProject removes a project of the current user. A published project is
// undeployed first. Deleting the loaded project unloads it.
func (m *Manager) DeleteProject(ctx context.Context, projectID string) (err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("delete_project", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.user(ctx)
	if err != nil {
		return err
	}
	m.logger.Info("Deleting project", "projectID", projectID)
	p, err := m.fetch(ctx, u, projectID)
	if err != nil {
		return err
	}
	if p.Published {
		if err := m.deployer.Undeploy(ctx, p); err != nil {
			m.logger.Warn("Failed to undeploy deleted project", "projectID", projectID, "error", err)
		}
	}

	cctx, cancel := context.WithTimeout(ctx, m.persistTimeout)
	defer cancel()
	m.loading.Store(true)
	err = m.store.DeleteDocument(cctx, storage.ProjectsCollection, projectID)
	m.loading.Store(false)
	if err != nil {
		m.logger.Error("Error deleting project", "projectID", projectID, "error", err)
		return fmt.Errorf("deleting project failed: %w", err)
	}
	if m.current != nil && m.current.ID == projectID {
		m.current = nil
	}

	m.logger.Info("Successfully deleted project", "projectID", projectID)
	m.emit(ctx, events.Event{Kind: events.ProjectDeleted, ProjectID: projectID, UserID: u.ID})
	return nil
}

// AddAsset records an already hosted file in the loaded project.
func (m *Manager) AddAsset(ctx context.Context, projectID string, data NewAsset) (a model.Asset, err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("add_asset", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	a = model.Asset{ID: m.newID(), Name: data.Name, Kind: data.Kind, URL: data.URL, Size: data.Size}
	if err := m.appendAsset(ctx, projectID, &a); err != nil {
		return model.Asset{}, err
	}
	return a, nil
}

// UploadAsset stores r in object storage and records it in the loaded project.
// If recording fails the stored object is removed again.
func (m *Manager) UploadAsset(ctx context.Context, projectID, name, contentType string, r io.Reader, size int64) (a model.Asset, err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("upload_asset", start, err) }(time.Now())
	if m.objects == nil {
		return model.Asset{}, assets.ErrDisabled
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.loaded(ctx, projectID); err != nil {
		return model.Asset{}, err
	}
	id := m.newID()
	key := path.Join("assets", id+"-"+fsutils.SanitizeFilename(name))
	url, err := m.objects.Put(ctx, projectID, key, r, size, contentType)
	if err != nil {
		m.logger.Error("Failed to upload asset", "projectID", projectID, "name", name, "error", err)
		return model.Asset{}, fmt.Errorf("uploading asset failed: %w", err)
	}
	a = model.Asset{ID: id, Name: name, Kind: assets.KindFor(contentType), URL: url, Key: key, Size: size}
	if err := m.appendAsset(ctx, projectID, &a); err != nil {
		if derr := m.objects.Delete(ctx, projectID, key); derr != nil {
			m.logger.Warn("Failed to remove orphaned asset object", "projectID", projectID, "key", key, "error", derr)
		}
		return model.Asset{}, err
	}
	return a, nil
}

// appendAsset is the persist-then-commit cycle for a new asset. Callers hold m.mu.
func (m *Manager) appendAsset(ctx context.Context, projectID string, a *model.Asset) error {
	u, err := m.loaded(ctx, projectID)
	if err != nil {
		return err
	}
	now := m.now()
	a.CreatedAt = now
	list := append(append([]model.Asset{}, m.current.Assets...), *a)
	if err := m.persist(ctx, projectID, storage.Document{"assets": list, "updatedAt": now}); err != nil {
		m.logger.Error("Failed to persist assets", "projectID", projectID, "error", err)
		return fmt.Errorf("saving asset failed: %w", err)
	}
	m.current.Assets = list
	m.current.UpdatedAt = now

	m.logger.Info("Added asset", "projectID", projectID, "assetID", a.ID, "kind", a.Kind)
	m.emit(ctx, events.Event{Kind: events.AssetAdded, ProjectID: projectID, UserID: u.ID})
	return nil
}

// DeleteAsset removes an asset from the loaded project and, when it lives in
// object storage, deletes the object.
func (m *Manager) DeleteAsset(ctx context.Context, projectID, assetID string) (err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("delete_asset", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.loaded(ctx, projectID)
	if err != nil {
		return err
	}
	list := make([]model.Asset, 0, len(m.current.Assets))
	var removed *model.Asset
	for i, a := range m.current.Assets {
		if a.ID == assetID {
			removed = &m.current.Assets[i]
			continue
		}
		list = append(list, a)
	}
	if removed == nil {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	key := removed.Key

	now := m.now()
	if err := m.persist(ctx, projectID, storage.Document{"assets": list, "updatedAt": now}); err != nil {
		m.logger.Error("Failed to persist assets", "projectID", projectID, "error", err)
		return fmt.Errorf("deleting asset failed: %w", err)
	}
	m.current.Assets = list
	m.current.UpdatedAt = now

	if key != "" && m.objects != nil {
		if err := m.objects.Delete(ctx, projectID, key); err != nil {
			m.logger.Warn("Failed to delete asset object", "projectID", projectID, "key", key, "error", err)
		}
	}
	m.logger.Info("Deleted asset", "projectID", projectID, "assetID", assetID)
	m.emit(ctx, events.Event{Kind: events.AssetDeleted, ProjectID: projectID, UserID: u.ID})
	return nil
}
