package conversation

import (
	"context"
	"sync"
	"testing"
)

func TestTakeOnEmptyChatReturnsNothing(t *testing.T) {
	registry := NewRegistry()

	if _, ok := registry.Take(100); ok {
		t.Fatalf("expected no continuation for unregistered chat")
	}
}

func TestRegisterThenTakeConsumesOnce(t *testing.T) {
	registry := NewRegistry()

	called := 0
	registry.Register(100, func(ctx context.Context, text string) { called++ })

	fn, ok := registry.Take(100)
	if !ok {
		t.Fatalf("expected a continuation after register")
	}
	fn(context.Background(), "99")
	if called != 1 {
		t.Fatalf("expected continuation to run once, got %d", called)
	}

	if _, ok := registry.Take(100); ok {
		t.Fatalf("expected second take to return nothing")
	}
}

func TestRegisterOverwritesPendingEntry(t *testing.T) {
	registry := NewRegistry()

	var got string
	registry.Register(100, func(ctx context.Context, text string) { got = "first" })
	registry.Register(100, func(ctx context.Context, text string) { got = "second" })

	fn, ok := registry.Take(100)
	if !ok {
		t.Fatalf("expected a continuation after re-register")
	}
	fn(context.Background(), "value")

	if got != "second" {
		t.Fatalf("expected last registration to win, got %q", got)
	}
	if _, ok := registry.Take(100); ok {
		t.Fatalf("expected superseded entry to be gone")
	}
}

func TestChatsArePartitioned(t *testing.T) {
	registry := NewRegistry()

	registry.Register(1, func(ctx context.Context, text string) {})

	if _, ok := registry.Take(2); ok {
		t.Fatalf("expected chat 2 to have no continuation")
	}
	if _, ok := registry.Take(1); !ok {
		t.Fatalf("expected chat 1 continuation to survive chat 2 take")
	}
}

func TestConcurrentTakesConsumeExactlyOnce(t *testing.T) {
	registry := NewRegistry()
	registry.Register(7, func(ctx context.Context, text string) {})

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := registry.Take(7); ok {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if taken != 1 {
		t.Fatalf("expected exactly one successful take, got %d", taken)
	}
}

func TestChatLocksSerializePerChat(t *testing.T) {
	locks := NewChatLocks()

	const workers = 8
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(42)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("expected %d serialized increments, got %d", workers, counter)
	}
}
