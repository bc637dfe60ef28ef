package storage

import (
	"context"
	"sync"
	"time"
)

// KeyedLock is a process-local, poll-based mutex keyed by name. Waiters spin
// with a short sleep until no holder is recorded; there is no fairness.
type KeyedLock struct {
	mu      sync.Mutex
	holders map[string]struct{}
	poll    time.Duration
}

func NewKeyedLock(poll time.Duration) *KeyedLock {
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	return &KeyedLock{holders: make(map[string]struct{}), poll: poll}
}

// Acquire blocks until key is free or ctx is done.
func (l *KeyedLock) Acquire(ctx context.Context, key string) error {
	for {
		l.mu.Lock()
		if _, held := l.holders[key]; !held {
			l.holders[key] = struct{}{}
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *KeyedLock) Release(key string) {
	l.mu.Lock()
	delete(l.holders, key)
	l.mu.Unlock()
}

// held reports whether key currently has a holder.
func (l *KeyedLock) held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.holders[key]
	return held
}
