package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go-site-builder/internal/assets"
	"go-site-builder/internal/assistant"
	"go-site-builder/internal/auth"
	"go-site-builder/internal/catalog"
	"go-site-builder/internal/editor"
	"go-site-builder/internal/generator"
	"go-site-builder/internal/projectmanager"
	"go-site-builder/internal/schema"
	"go-site-builder/internal/storage"
	"go-site-builder/internal/tree"
	"go-site-builder/internal/workspace"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, projectmanager.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, projectmanager.ErrForbidden),
		errors.Is(err, catalog.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, projectmanager.ErrProjectNotFound),
		errors.Is(err, projectmanager.ErrPageNotFound),
		errors.Is(err, projectmanager.ErrAssetNotFound),
		errors.Is(err, tree.ErrNotFound),
		errors.Is(err, tree.ErrParentNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, catalog.ErrTemplateNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, assets.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, projectmanager.ErrLastPage),
		errors.Is(err, projectmanager.ErrSelfParent),
		errors.Is(err, projectmanager.ErrCycle),
		errors.Is(err, projectmanager.ErrProjectNotLoaded),
		errors.Is(err, catalog.ErrBuiltin):
		return http.StatusConflict
	case errors.Is(err, schema.ErrInvalidProps),
		errors.Is(err, schema.ErrEmptyType),
		errors.Is(err, projectmanager.ErrEmptyPageName),
		errors.Is(err, generator.ErrEmptyName),
		errors.Is(err, editor.ErrInvalidViewport),
		errors.Is(err, catalog.ErrInvalidItem),
		errors.Is(err, assistant.ErrInvalidMode),
		errors.Is(err, assistant.ErrEmptyPrompt),
		errors.Is(err, storage.ErrInvalidArgument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, assistant.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, assistant.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, assistant.ErrDisabled),
		errors.Is(err, assets.ErrDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail writes err with its mapped status. Server errors are logged and their
// details kept from the client.
func (app *application) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		app.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			writeError(w, status, "internal server error")
			return
		}
	}
	writeError(w, status, err.Error())
}

// decode reads a JSON request body into v. An empty body leaves v untouched.
func (app *application) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

// workspace returns the caller's workspace. The auth middleware guarantees a user.
func (app *application) workspace(r *http.Request) (*workspace.Workspace, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return app.workspaces.Get(u.ID), true
}

// userID is the authenticated caller's id, or "" without a user.
func userID(r *http.Request) string {
	if u, ok := auth.UserFromContext(r.Context()); ok {
		return u.ID
	}
	return ""
}

// project resolves the caller's workspace and makes {projectID} its loaded project.
func (app *application) project(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, string, bool) {
	ws, ok := app.workspace(r)
	if !ok {
		app.fail(w, r, projectmanager.ErrUnauthenticated)
		return nil, "", false
	}
	projectID := chi.URLParam(r, "projectID")
	if _, err := ws.Open(r.Context(), projectID); err != nil {
		app.fail(w, r, err)
		return nil, "", false
	}
	return ws, projectID, true
}

// index converts an optional JSON index to the engine's convention.
func index(i *int) int {
	if i == nil {
		return tree.Append
	}
	return *i
}
