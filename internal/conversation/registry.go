// Package conversation tracks, per chat, the handler that should receive the
// next free-text message instead of normal command dispatch.
package conversation

import (
	"context"
	"sync"
)

// Continuation consumes the next free-text message from a chat.
type Continuation func(ctx context.Context, text string)

// Registry is a single-slot-per-chat continuation table. Registering for a
// chat that already has an entry replaces it; there is no queueing.
type Registry struct {
	mu      sync.Mutex
	pending map[int64]Continuation
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[int64]Continuation)}
}

// Register stores the continuation for chatID, overwriting any existing one.
func (r *Registry) Register(chatID int64, fn Continuation) {
	if r == nil || fn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[chatID] = fn
}

// Take retrieves and clears the continuation for chatID in one step, so a
// registered continuation can be consumed exactly once.
func (r *Registry) Take(chatID int64) (Continuation, bool) {
	if r == nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.pending[chatID]
	if !ok {
		return nil, false
	}

	delete(r.pending, chatID)
	return fn, true
}
