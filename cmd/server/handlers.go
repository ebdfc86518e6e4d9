package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"go-site-builder/internal/assets"
	"go-site-builder/internal/events"
	"go-site-builder/internal/projectmanager"
	"go-site-builder/internal/tree"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 32 << 20

func (app *application) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Projects ---

func (app *application) projectListHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := app.workspace(r)
	if !ok {
		app.fail(w, r, projectmanager.ErrUnauthenticated)
		return
	}
	list, err := ws.Manager.ListProjects(r.Context())
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (app *application) projectCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		TemplateID  string `json:"templateId"`
	}
	if !app.decode(w, r, &req) {
		return
	}
	ws, ok := app.workspace(r)
	if !ok {
		app.fail(w, r, projectmanager.ErrUnauthenticated)
		return
	}
	p, err := ws.Manager.CreateProject(r.Context(), req.Name, req.Description, req.TemplateID)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	ws.Editor.Reset()
	writeJSON(w, http.StatusCreated, p)
}

func (app *application) projectGetHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := app.project(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.Manager.Current())
}

func (app *application) projectUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var patch projectmanager.ProjectPatch
	if !app.decode(w, r, &patch) {
		return
	}
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	if err := ws.Manager.UpdateProject(r.Context(), projectID, patch); err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Manager.Current())
}

// projectDeleteHandler does not open the project first; deleting an unopened
// project must not disturb the one being edited.
func (app *application) projectDeleteHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := app.workspace(r)
	if !ok {
		app.fail(w, r, projectmanager.ErrUnauthenticated)
		return
	}
	if err := ws.Manager.DeleteProject(r.Context(), chi.URLParam(r, "projectID")); err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) projectPublishHandler(w http.ResponseWriter, r *http.Request) {
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	url, err := ws.Manager.PublishProject(r.Context(), projectID)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publishedUrl": url})
}

func (app *application) projectUnpublishHandler(w http.ResponseWriter, r *http.Request) {
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	if err := ws.Manager.UnpublishProject(r.Context(), projectID); err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// projectEventsHandler streams committed changes of one project as server-sent
// events until the client goes away.
func (app *application) projectEventsHandler(w http.ResponseWriter, r *http.Request) {
	_, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	ch := make(chan []byte, 16)
	err := app.bus.Subscribe(ctx, func(e events.Event) {
		if e.ProjectID != projectID {
			return
		}
		raw, err := encodeEvent(e)
		if err != nil {
			return
		}
		select {
		case ch <- raw:
		default:
			app.logger.Warn("Dropping event for slow subscriber", "projectID", projectID, "kind", e.Kind)
		}
	})
	if err != nil {
		app.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-ch:
			if _, err := w.Write(raw); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// encodeEvent frames e as one server-sent event.
func encodeEvent(e events.Event) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", e.Kind, raw), nil
}

// --- Assets ---

func (app *application) assetUploadHandler(w http.ResponseWriter, r *http.Request) {
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	a, err := ws.Manager.UploadAsset(r.Context(), projectID, name, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (app *application) assetLinkHandler(w http.ResponseWriter, r *http.Request) {
	var req projectmanager.NewAsset
	if !app.decode(w, r, &req) {
		return
	}
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	a, err := ws.Manager.AddAsset(r.Context(), projectID, req)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (app *application) assetDeleteHandler(w http.ResponseWriter, r *http.Request) {
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	if err := ws.Manager.DeleteAsset(r.Context(), projectID, chi.URLParam(r, "assetID")); err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// memoryFileHandler serves objects held by the in-memory object store under
// /files/site-<projectID>/<key>.
func (app *application) memoryFileHandler(mem *assets.MemoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := strings.CutPrefix(chi.URLParam(r, "bucket"), "site-")
		if !ok {
			http.NotFound(w, r)
			return
		}
		data, contentType, err := mem.Get(projectID, chi.URLParam(r, "*"))
		if err != nil {
			if errors.Is(err, assets.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			app.fail(w, r, err)
			return
		}
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Write(data)
	}
}

// --- Pages ---

func (app *application) pageCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Path string `json:"path"`
	}
	if !app.decode(w, r, &req) {
		return
	}
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	id, err := ws.Manager.AddPage(r.Context(), projectID, req.Name, req.Path)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	page, err := ws.Manager.Page(id)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (app *application) pageGetHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := app.project(w, r)
	if !ok {
		return
	}
	page, err := ws.Manager.Page(chi.URLParam(r, "pageID"))
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// pagePreviewHandler renders the page as a standalone HTML document.
func (app *application) pagePreviewHandler(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := app.project(w, r)
	if !ok {
		return
	}
	page, err := ws.Manager.Page(chi.URLParam(r, "pageID"))
	if err != nil {
		app.fail(w, r, err)
		return
	}
	html, err := app.renderer.RenderPage(ws.Manager.Current(), page)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func (app *application) pageUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var patch projectmanager.PagePatch
	if !app.decode(w, r, &patch) {
		return
	}
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	pageID := chi.URLParam(r, "pageID")
	if err := ws.Manager.UpdatePage(r.Context(), projectID, pageID, patch); err != nil {
		app.fail(w, r, err)
		return
	}
	page, err := ws.Manager.Page(pageID)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (app *application) pageDeleteHandler(w http.ResponseWriter, r *http.Request) {
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	if err := ws.Manager.DeletePage(r.Context(), projectID, chi.URLParam(r, "pageID")); err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Components ---

// componentCreateRequest adds either an explicit component tree or a stamp of a
// library item. A missing index appends.
type componentCreateRequest struct {
	Component   *projectmanager.NewComponent `json:"component,omitempty"`
	LibraryItem string                       `json:"libraryItem,omitempty"`
	ParentID    string                       `json:"parentId,omitempty"`
	Index       *int                         `json:"index,omitempty"`
}

func (app *application) componentCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req componentCreateRequest
	if !app.decode(w, r, &req) {
		return
	}
	if (req.Component == nil) == (req.LibraryItem == "") {
		writeError(w, http.StatusBadRequest, "exactly one of component or libraryItem is required")
		return
	}
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	pageID := chi.URLParam(r, "pageID")

	var (
		id  string
		err error
	)
	if req.Component != nil {
		id, err = ws.Manager.AddComponent(r.Context(), projectID, pageID, *req.Component, req.ParentID, index(req.Index))
	} else {
		id, err = ws.Manager.PlaceLibraryItem(r.Context(), projectID, pageID, req.LibraryItem, req.ParentID, index(req.Index))
	}
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (app *application) componentUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var patch tree.Patch
	if !app.decode(w, r, &patch) {
		return
	}
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	err := ws.Manager.UpdateComponent(r.Context(), projectID, chi.URLParam(r, "pageID"), chi.URLParam(r, "componentID"), patch)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) componentDeleteHandler(w http.ResponseWriter, r *http.Request) {
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	err := ws.Manager.DeleteComponent(r.Context(), projectID, chi.URLParam(r, "pageID"), chi.URLParam(r, "componentID"))
	if err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) componentMoveHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID string `json:"parentId"`
		Index    *int   `json:"index"`
	}
	if !app.decode(w, r, &req) {
		return
	}
	ws, projectID, ok := app.project(w, r)
	if !ok {
		return
	}
	err := ws.Manager.MoveComponent(r.Context(), projectID, chi.URLParam(r, "pageID"), chi.URLParam(r, "componentID"), req.ParentID, index(req.Index))
	if err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lastSegment returns the final element of the request path.
func lastSegment(r *http.Request) string {
	return path.Base(strings.TrimRight(r.URL.Path, "/"))
}
