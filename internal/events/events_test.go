package events

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

func TestMemoryBus_Delivers(t *testing.T) {
	b := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []Event
	if err := b.Subscribe(ctx, func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	e := Event{Kind: ComponentAdded, ProjectID: "p1", PageID: "home", ComponentID: "c1"}
	if err := b.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != e {
		t.Errorf("subscriber got %+v, want [%+v]", got, e)
	}
}

func TestMemoryBus_UnsubscribesOnCancel(t *testing.T) {
	b := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())

	calls := make(chan Event, 4)
	b.Subscribe(ctx, func(e Event) { calls <- e })
	cancel()

	// Removal happens on a goroutine; wait for it.
	deadline := time.Now().Add(time.Second)
	for {
		b.mu.RLock()
		n := len(b.subs)
		b.mu.RUnlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not removed after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.Publish(context.Background(), Event{Kind: PageAdded})
	if len(calls) != 0 {
		t.Errorf("canceled subscriber still received events")
	}
}

func TestRedisBus_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := DialRedis(ctx, addr)
	if err != nil {
		t.Fatalf("DialRedis() failed: %v", err)
	}
	b := NewRedisBus(rdb, "site-builder:test", nil)
	defer b.Close()

	got := make(chan Event, 1)
	if err := b.Subscribe(ctx, func(e Event) { got <- e }); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	want := Event{Kind: ProjectPublished, ProjectID: "p1", At: 42}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	select {
	case e := <-got:
		if e != want {
			t.Errorf("received %+v, want %+v", e, want)
		}
	case <-ctx.Done():
		t.Fatalf("no event received")
	}
}
