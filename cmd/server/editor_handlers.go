package main

import (
	"net/http"

	"go-site-builder/internal/assistant"
	"go-site-builder/internal/editor"
	"go-site-builder/internal/model"
	"go-site-builder/internal/projectmanager"

	"github.com/go-chi/chi/v5"
)

// --- Library ---

func (app *application) libraryListHandler(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		writeJSON(w, http.StatusOK, app.catalog.ByCategory(category))
		return
	}
	writeJSON(w, http.StatusOK, app.catalog.All())
}

func (app *application) libraryCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.catalog.Categories())
}

func (app *application) libraryCreateHandler(w http.ResponseWriter, r *http.Request) {
	var item model.LibraryItem
	if !app.decode(w, r, &item) {
		return
	}
	id, err := app.catalog.Add(userID(r), item)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	app.logger.Info("Added library item", "id", id, "name", item.Name)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (app *application) libraryUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var patch model.LibraryItem
	if !app.decode(w, r, &patch) {
		return
	}
	id := chi.URLParam(r, "itemID")
	if err := app.catalog.Update(userID(r), id, patch); err != nil {
		app.fail(w, r, err)
		return
	}
	item, err := app.catalog.Get(id)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (app *application) libraryDeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemID")
	if err := app.catalog.Delete(userID(r), id); err != nil {
		app.fail(w, r, err)
		return
	}
	app.logger.Info("Deleted library item", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// --- Templates ---

func (app *application) templateListHandler(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		writeJSON(w, http.StatusOK, app.catalog.TemplatesByCategory(category))
		return
	}
	writeJSON(w, http.StatusOK, app.catalog.Templates())
}

func (app *application) templateGetHandler(w http.ResponseWriter, r *http.Request) {
	t, err := app.catalog.Template(chi.URLParam(r, "templateID"))
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- Editor ---

// editorSession returns the caller's editor session, writing 401 when there is none.
func (app *application) editorSession(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	ws, ok := app.workspace(r)
	if !ok {
		app.fail(w, r, projectmanager.ErrUnauthenticated)
		return nil, false
	}
	return ws.Editor, true
}

type editorResponse struct {
	editor.State
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

func writeEditor(w http.ResponseWriter, s *editor.Session, st editor.State) {
	writeJSON(w, http.StatusOK, editorResponse{State: st, CanUndo: s.CanUndo(), CanRedo: s.CanRedo()})
}

func (app *application) editorStateHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := app.editorSession(w, r)
	if !ok {
		return
	}
	writeEditor(w, s, s.State())
}

func (app *application) editorSelectHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !app.decode(w, r, &req) {
		return
	}
	s, ok := app.editorSession(w, r)
	if !ok {
		return
	}
	writeEditor(w, s, s.Select(req.ID))
}

func (app *application) editorHoverHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !app.decode(w, r, &req) {
		return
	}
	s, ok := app.editorSession(w, r)
	if !ok {
		return
	}
	writeEditor(w, s, s.Hover(req.ID))
}

func (app *application) editorDragHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dragging bool `json:"dragging"`
	}
	if !app.decode(w, r, &req) {
		return
	}
	s, ok := app.editorSession(w, r)
	if !ok {
		return
	}
	writeEditor(w, s, s.SetDragging(req.Dragging))
}

func (app *application) editorZoomHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zoom float64 `json:"zoom"`
	}
	if !app.decode(w, r, &req) {
		return
	}
	s, ok := app.editorSession(w, r)
	if !ok {
		return
	}
	writeEditor(w, s, s.SetZoom(req.Zoom))
}

// editorToggleHandler flips the view flag named by the last path segment.
func (app *application) editorToggleHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := app.editorSession(w, r)
	if !ok {
		return
	}
	var st editor.State
	switch lastSegment(r) {
	case "grid":
		st = s.ToggleGrid()
	case "outlines":
		st = s.ToggleOutlines()
	case "preview":
		st = s.TogglePreviewMode()
	default:
		http.NotFound(w, r)
		return
	}
	writeEditor(w, s, st)
}

func (app *application) editorResponsiveHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !app.decode(w, r, &req) {
		return
	}
	s, ok := app.editorSession(w, r)
	if !ok {
		return
	}
	v, err := editor.ParseViewport(req.Mode)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	st, err := s.SetResponsive(v)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeEditor(w, s, st)
}

func (app *application) editorUndoHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := app.editorSession(w, r)
	if !ok {
		return
	}
	st, _ := s.Undo()
	writeEditor(w, s, st)
}

func (app *application) editorRedoHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := app.editorSession(w, r)
	if !ok {
		return
	}
	st, _ := s.Redo()
	writeEditor(w, s, st)
}

// --- Assistant ---

// assistantRequest asks for generated text. In content mode, a page id places
// the generated copy on that page as a text component.
type assistantRequest struct {
	Mode      string `json:"mode"`
	Prompt    string `json:"prompt"`
	ProjectID string `json:"projectId,omitempty"`
	PageID    string `json:"pageId,omitempty"`
	ParentID  string `json:"parentId,omitempty"`
	Index     *int   `json:"index,omitempty"`
}

type assistantResponse struct {
	Text        string `json:"text"`
	ComponentID string `json:"componentId,omitempty"`
}

func (app *application) assistantHandler(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if !app.decode(w, r, &req) {
		return
	}
	mode, err := assistant.ParseMode(req.Mode)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	if req.Prompt == "" {
		app.fail(w, r, assistant.ErrEmptyPrompt)
		return
	}

	resp, err := app.assistant.Generate(r.Context(), mode, req.Prompt)
	app.metrics.ObserveAssistant(string(mode), err)
	if err != nil {
		app.fail(w, r, err)
		return
	}

	out := assistantResponse{Text: resp.Text}
	if mode == assistant.ModeContent && req.ProjectID != "" && req.PageID != "" {
		ws, ok := app.workspace(r)
		if !ok {
			app.fail(w, r, projectmanager.ErrUnauthenticated)
			return
		}
		if _, err := ws.Open(r.Context(), req.ProjectID); err != nil {
			app.fail(w, r, err)
			return
		}
		node := projectmanager.FromComponent(assistant.ContentComponent(resp.Text))
		id, err := ws.Manager.AddComponent(r.Context(), req.ProjectID, req.PageID, node, req.ParentID, index(req.Index))
		if err != nil {
			app.fail(w, r, err)
			return
		}
		out.ComponentID = id
	}
	writeJSON(w, http.StatusOK, out)
}
