package projectmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"go-site-builder/internal/assets"
	"go-site-builder/internal/events"
	"go-site-builder/internal/generator"
	"go-site-builder/internal/model"
	"go-site-builder/internal/storage"

	"golang.org/x/sync/errgroup"
)

// Deployer makes a published project reachable at its URL.
type Deployer interface {
	Deploy(ctx context.Context, p *model.Project, url string) error
	Undeploy(ctx context.Context, p *model.Project) error
}

// NopDeployer only flips the published flag; nothing is uploaded.
type NopDeployer struct{}

func (NopDeployer) Deploy(context.Context, *model.Project, string) error { return nil }
func (NopDeployer) Undeploy(context.Context, *model.Project) error       { return nil }

// ObjectDeployer uploads a JSON snapshot of every page, plus a site index, to
// object storage under "site/".
type ObjectDeployer struct {
	objects     assets.ObjectStore
	logger      *slog.Logger
	concurrency int
}

func NewObjectDeployer(objects assets.ObjectStore, logger *slog.Logger) *ObjectDeployer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ObjectDeployer{objects: objects, logger: logger, concurrency: 4}
}

// siteIndex lists the deployed pages. Page files come from generator.PageFilename
// and always end in ".json" with a route-derived stem, so "site" never collides.
const siteIndex = "site.json"

func siteKey(name string) string { return path.Join("site", name) }

func (d *ObjectDeployer) Deploy(ctx context.Context, p *model.Project, url string) error {
	type indexEntry struct {
		ID   string `json:"id"`
		Path string `json:"path"`
		File string `json:"file"`
	}
	index := struct {
		ProjectID string       `json:"projectId"`
		Name      string       `json:"name"`
		URL       string       `json:"url"`
		Pages     []indexEntry `json:"pages"`
	}{ProjectID: p.ID, Name: p.Name, URL: url}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for _, page := range p.Pages {
		page := page
		file := generator.PageFilename(page)
		index.Pages = append(index.Pages, indexEntry{ID: page.ID, Path: page.Path, File: file})
		g.Go(func() error {
			return d.put(gctx, p.ID, file, page)
		})
	}
	if err := g.Wait(); err != nil {
		d.logger.Error("Deploy failed", "projectID", p.ID, "error", err)
		return fmt.Errorf("deploying pages failed: %w", err)
	}
	if err := d.put(ctx, p.ID, siteIndex, index); err != nil {
		return fmt.Errorf("deploying site index failed: %w", err)
	}
	d.logger.Info("Deployed project", "projectID", p.ID, "pages", len(p.Pages), "url", url)
	return nil
}

func (d *ObjectDeployer) put(ctx context.Context, projectID, file string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", file, err)
	}
	_, err = d.objects.Put(ctx, projectID, siteKey(file), bytes.NewReader(data), int64(len(data)), "application/json")
	return err
}

func (d *ObjectDeployer) Undeploy(ctx context.Context, p *model.Project) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	files := []string{siteIndex}
	for _, page := range p.Pages {
		files = append(files, generator.PageFilename(page))
	}
	for _, file := range files {
		file := file
		g.Go(func() error {
			err := d.objects.Delete(gctx, p.ID, siteKey(file))
			if errors.Is(err, assets.ErrNotFound) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("undeploying project failed: %w", err)
	}
	d.logger.Info("Undeployed project", "projectID", p.ID)
	return nil
}

// PublishedURL is the canonical address of a published project.
func (m *Manager) PublishedURL(projectID string) string {
	return strings.TrimRight(m.publishBaseURL, "/") + "/" + projectID
}

// PublishProject deploys the loaded project and marks it published. It returns
// the published URL. Nothing is recorded when deployment fails, and the
// deployment is removed again when its state cannot be saved.
func (m *Manager) PublishProject(ctx context.Context, projectID string) (url string, err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("publish_project", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.loaded(ctx, projectID)
	if err != nil {
		return "", err
	}
	url = m.PublishedURL(projectID)
	m.logger.Info("Publishing project", "projectID", projectID, "url", url)

	snapshot := m.current.Clone()
	if err := m.deployer.Deploy(ctx, snapshot, url); err != nil {
		return "", err
	}
	now := m.now()
	if err := m.persist(ctx, projectID, storage.Document{"published": true, "publishedUrl": url, "updatedAt": now}); err != nil {
		m.logger.Error("Failed to persist publish state", "projectID", projectID, "error", err)
		if uerr := m.deployer.Undeploy(context.WithoutCancel(ctx), snapshot); uerr != nil {
			m.logger.Error("Failed to roll back deployment", "projectID", projectID, "error", uerr)
		}
		return "", fmt.Errorf("publishing project failed: %w", err)
	}
	m.current.Published = true
	m.current.PublishedURL = url
	m.current.UpdatedAt = now

	m.emit(ctx, events.Event{Kind: events.ProjectPublished, ProjectID: projectID, UserID: u.ID})
	return url, nil
}

// UnpublishProject removes the deployment of the loaded project and clears its
// published URL. The site is redeployed when the cleared state cannot be saved.
func (m *Manager) UnpublishProject(ctx context.Context, projectID string) (err error) {
	defer func(start time.Time) { m.metrics.ObserveOp("unpublish_project", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.loaded(ctx, projectID)
	if err != nil {
		return err
	}
	wasPublished := m.current.Published
	if wasPublished {
		if err := m.deployer.Undeploy(ctx, m.current.Clone()); err != nil {
			return err
		}
	}
	now := m.now()
	if err := m.persist(ctx, projectID, storage.Document{"published": false, "publishedUrl": nil, "updatedAt": now}); err != nil {
		m.logger.Error("Failed to persist publish state", "projectID", projectID, "error", err)
		if wasPublished {
			if derr := m.deployer.Deploy(context.WithoutCancel(ctx), m.current.Clone(), m.current.PublishedURL); derr != nil {
				m.logger.Error("Failed to restore deployment", "projectID", projectID, "error", derr)
			}
		}
		return fmt.Errorf("unpublishing project failed: %w", err)
	}
	m.current.Published = false
	m.current.PublishedURL = ""
	m.current.UpdatedAt = now

	m.logger.Info("Unpublished project", "projectID", projectID)
	m.emit(ctx, events.Event{Kind: events.ProjectUnpublished, ProjectID: projectID, UserID: u.ID})
	return nil
}
