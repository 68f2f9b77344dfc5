package lock

import (
	"context"
	"sync"
)

// LocalLock is an in-process Manager. Each key is a one-slot semaphore, so
// waiters honour context cancellation instead of blocking forever.
type LocalLock struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch    chan struct{}
	refs  int
	token string
}

// NewLocalLock creates an empty lock table
func NewLocalLock() *LocalLock {
	return &LocalLock{slots: make(map[string]*slot)}
}

func (l *LocalLock) Acquire(ctx context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		token := newToken()
		l.mu.Lock()
		s.token = token
		l.mu.Unlock()
		return token, true, nil
	case <-ctx.Done():
		l.mu.Lock()
		l.unref(key, s)
		l.mu.Unlock()
		return "", false, ctx.Err()
	}
}

func (l *LocalLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok || token == "" || s.token != token {
		return ErrNotHeld
	}
	s.token = ""
	<-s.ch
	l.unref(key, s)
	return nil
}

// unref drops a reference; callers hold l.mu
func (l *LocalLock) unref(key string, s *slot) {
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Keys returns the number of keys currently tracked
func (l *LocalLock) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
