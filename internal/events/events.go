// Package events broadcasts committed document changes so other processes (a
// preview server, a second editor tab) can refresh.
package events

import (
	"context"
	"sync"
)

// Kind names what changed.
type Kind string

const (
	ComponentAdded     Kind = "component.added"
	ComponentUpdated   Kind = "component.updated"
	ComponentDeleted   Kind = "component.deleted"
	ComponentMoved     Kind = "component.moved"
	PageAdded          Kind = "page.added"
	PageUpdated        Kind = "page.updated"
	PageDeleted        Kind = "page.deleted"
	ProjectCreated     Kind = "project.created"
	ProjectUpdated     Kind = "project.updated"
	ProjectDeleted     Kind = "project.deleted"
	ProjectPublished   Kind = "project.published"
	ProjectUnpublished Kind = "project.unpublished"
	AssetAdded         Kind = "asset.added"
	AssetDeleted       Kind = "asset.deleted"
)

// Event is published after a change has been persisted and committed.
type Event struct {
	Kind        Kind   `json:"kind"`
	ProjectID   string `json:"projectId"`
	PageID      string `json:"pageId,omitempty"`
	ComponentID string `json:"componentId,omitempty"`
	UserID      string `json:"userId,omitempty"`
	At          int64  `json:"at"` // Unix milliseconds
}

type Bus interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe delivers events to fn until ctx is done.
	Subscribe(ctx context.Context, fn func(Event)) error
	Close() error
}

// MemoryBus delivers events synchronously to in-process subscribers.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]func(Event))}
}

func (b *MemoryBus) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, fn func(Event)) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[int]func(Event))
	return nil
}
