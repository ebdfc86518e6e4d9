// Package editor holds the editing-UI state of one user: selection, hover, view
// flags, and the undo/redo history over those flags.
package editor

import (
	"errors"
	"fmt"
	"sync"
)

// Zoom bounds.
const (
	MinZoom = 0.25
	MaxZoom = 2.0
)

// Viewport is the responsive preview mode. It affects presentation only.
type Viewport string

const (
	ViewportDesktop Viewport = "desktop"
	ViewportTablet  Viewport = "tablet"
	ViewportMobile  Viewport = "mobile"
)

// ErrInvalidViewport indicates an unknown responsive mode.
var ErrInvalidViewport = errors.New("invalid responsive mode")

// ParseViewport validates a responsive mode name.
func ParseViewport(s string) (Viewport, error) {
	switch v := Viewport(s); v {
	case ViewportDesktop, ViewportTablet, ViewportMobile:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidViewport, s)
}

// State is a snapshot of the editor UI. Selection ids are not validated against
// any document; a selection may dangle until a caller clears it.
type State struct {
	Selected     string   `json:"selectedComponentId,omitempty"`
	Hovered      string   `json:"hoveredComponentId,omitempty"`
	Dragging     bool     `json:"isDragging"`
	Zoom         float64  `json:"zoom"`
	ShowGrid     bool     `json:"showGrid"`
	ShowOutlines bool     `json:"showOutlines"`
	PreviewMode  bool     `json:"previewMode"`
	Responsive   Viewport `json:"responsiveMode"`
}

// DefaultState is the state of a fresh editor.
func DefaultState() State {
	return State{
		Zoom:         1,
		ShowGrid:     true,
		ShowOutlines: true,
		Responsive:   ViewportDesktop,
	}
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// Session couples the current State with its History. Changes that a user would
// expect to undo (selection, view flags) record the previous snapshot; transient
// hover and drag updates do not.
type Session struct {
	mu      sync.Mutex
	state   State
	history *History[State]
}

// NewSession returns a session in DefaultState with a history of at most
// historyLimit entries (0 = unbounded).
func NewSession(historyLimit int) *Session {
	return &Session{
		state:   DefaultState(),
		history: NewHistory[State](historyLimit),
	}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Selected returns the selected component id, or "".
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Selected
}

func (s *Session) apply(fn func(st *State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Record(s.state)
	fn(&s.state)
	return s.state
}

// Select sets (or with "" clears) the selected component.
func (s *Session) Select(id string) State {
	return s.apply(func(st *State) { st.Selected = id })
}

// Hover sets (or with "" clears) the hovered component.
func (s *Session) Hover(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Hovered = id
	return s.state
}

// SetDragging flags an in-progress drag gesture.
func (s *Session) SetDragging(dragging bool) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Dragging = dragging
	return s.state
}

// SetZoom sets the zoom factor, clamped to [MinZoom, MaxZoom].
func (s *Session) SetZoom(z float64) State {
	return s.apply(func(st *State) { st.Zoom = ClampZoom(z) })
}

// ToggleGrid flips grid visibility.
func (s *Session) ToggleGrid() State {
	return s.apply(func(st *State) { st.ShowGrid = !st.ShowGrid })
}

// ToggleOutlines flips component outline visibility.
func (s *Session) ToggleOutlines() State {
	return s.apply(func(st *State) { st.ShowOutlines = !st.ShowOutlines })
}

// TogglePreviewMode flips preview mode. Entering preview clears the selection.
func (s *Session) TogglePreviewMode() State {
	return s.apply(func(st *State) {
		st.PreviewMode = !st.PreviewMode
		if st.PreviewMode {
			st.Selected = ""
		}
	})
}

// SetResponsive switches the responsive preview mode.
func (s *Session) SetResponsive(v Viewport) (State, error) {
	if _, err := ParseViewport(string(v)); err != nil {
		return s.State(), err
	}
	return s.apply(func(st *State) { st.Responsive = v }), nil
}

// ClearIfSelected clears selection and hover when they point at one of ids.
// It reports whether the selection was cleared. The engine calls it after
// deleting components so no selection outlives its node.
func (s *Session) ClearIfSelected(ids ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := false
	for _, id := range ids {
		if id == "" {
			continue
		}
		if s.state.Selected == id {
			s.state.Selected = ""
			cleared = true
		}
		if s.state.Hovered == id {
			s.state.Hovered = ""
		}
	}
	return cleared
}

// Record stores the current state as an undo point without changing it.
func (s *Session) Record() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Record(s.state)
}

// Undo restores the previous snapshot. It reports false when nothing changed.
func (s *Session) Undo() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.history.Undo(s.state)
	s.state = prev
	return s.state, ok
}

// Redo restores the next snapshot. It reports false when nothing changed.
func (s *Session) Redo() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.history.Redo(s.state)
	s.state = next
	return s.state, ok
}

// CanUndo reports whether there is a snapshot to undo to.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether there is a snapshot to redo to.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Reset returns the session to DefaultState with empty history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = DefaultState()
	s.history.Reset()
}
