package conversation

import "sync"

// ChatLocks hands out one mutex per chat so the take-then-act sequence for a
// chat never interleaves with another message from the same chat. Locks for
// different chats are independent.
type ChatLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewChatLocks constructs an empty lock table.
func NewChatLocks() *ChatLocks {
	return &ChatLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for chatID and returns the matching unlock.
func (c *ChatLocks) Lock(chatID int64) func() {
	c.mu.Lock()
	lock, ok := c.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[chatID] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
