// Package workspace keeps one editing workspace per user: the mutation engine
// with the user's open project plus the editor session (selection, view flags and
// their undo history) wired to it.
package workspace

import (
	"context"
	"sync"

	"go-site-builder/internal/editor"
	"go-site-builder/internal/model"
	"go-site-builder/internal/projectmanager"
)

// Workspace is one user's engine and editor session. The session is the engine's
// selection listener, so deleting a selected component clears the selection.
type Workspace struct {
	UserID  string
	Manager *projectmanager.Manager
	Editor  *editor.Session
}

// Open loads a project into the engine. Switching to a different project starts
// a fresh editor session.
func (w *Workspace) Open(ctx context.Context, projectID string) (*model.Project, error) {
	if cur := w.Manager.Current(); cur != nil && cur.ID == projectID {
		return cur, nil
	}
	p, err := w.Manager.OpenProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	w.Editor.Reset()
	return p, nil
}

// ManagerFactory builds the engine of a new workspace. sel must be passed on
// with projectmanager.WithSelection.
type ManagerFactory func(userID string, sel projectmanager.SelectionListener) *projectmanager.Manager

// Registry holds the workspaces of all active users.
type Registry struct {
	mu           sync.RWMutex
	workspaces   map[string]*Workspace
	newManager   ManagerFactory
	historyLimit int
}

func NewRegistry(historyLimit int, newManager ManagerFactory) *Registry {
	return &Registry{
		workspaces:   make(map[string]*Workspace),
		newManager:   newManager,
		historyLimit: historyLimit,
	}
}

// Get returns the user's workspace, creating it on first use.
func (r *Registry) Get(userID string) *Workspace {
	r.mu.RLock()
	w, ok := r.workspaces[userID]
	r.mu.RUnlock()
	if ok {
		return w
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.workspaces[userID]; ok {
		return w
	}
	session := editor.NewSession(r.historyLimit)
	w = &Workspace{
		UserID:  userID,
		Editor:  session,
		Manager: r.newManager(userID, session),
	}
	r.workspaces[userID] = w
	return w
}

// Lookup returns an existing workspace without creating one.
func (r *Registry) Lookup(userID string) (*Workspace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workspaces[userID]
	return w, ok
}

// Drop discards a user's workspace.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workspaces, userID)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}
