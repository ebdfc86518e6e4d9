package editor

// History is a linear undo/redo buffer of opaque snapshots.
//
// Record pushes onto the past and drops the whole future. Undo pops the most
// recent past snapshot and moves the caller's current state to the front of the
// future; Redo is the mirror image.
type History[T any] struct {
	past   []T
	future []T // stack: the last element is the front of the future
	limit  int
}

// NewHistory returns an empty buffer keeping at most limit past snapshots.
// A limit of 0 keeps everything.
func NewHistory[T any](limit int) *History[T] {
	if limit < 0 {
		limit = 0
	}
	return &History[T]{limit: limit}
}

// Record stores snapshot as the most recent past state and clears redo history.
func (h *History[T]) Record(snapshot T) {
	h.past = append(h.past, snapshot)
	if h.limit > 0 && len(h.past) > h.limit {
		drop := len(h.past) - h.limit
		h.past = append(h.past[:0:0], h.past[drop:]...)
	}
	h.future = nil
}

// Undo returns the state to restore and true, or current and false when there is
// nothing to undo.
func (h *History[T]) Undo(current T) (T, bool) {
	if len(h.past) == 0 {
		return current, false
	}
	last := len(h.past) - 1
	previous := h.past[last]
	h.past = h.past[:last]
	h.future = append(h.future, current)
	return previous, true
}

// Redo returns the state to restore and true, or current and false when there is
// nothing to redo.
func (h *History[T]) Redo(current T) (T, bool) {
	if len(h.future) == 0 {
		return current, false
	}
	last := len(h.future) - 1
	next := h.future[last]
	h.future = h.future[:last]
	h.past = append(h.past, current)
	return next, true
}

// CanUndo reports whether Undo would change state.
func (h *History[T]) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether Redo would change state.
func (h *History[T]) CanRedo() bool { return len(h.future) > 0 }

// Len returns the sizes of the past and future stacks.
func (h *History[T]) Len() (past, future int) { return len(h.past), len(h.future) }

// Reset drops all snapshots.
func (h *History[T]) Reset() {
	h.past = nil
	h.future = nil
}
