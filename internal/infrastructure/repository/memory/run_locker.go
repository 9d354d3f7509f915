package memory

import (
	"context"
	"sync"
)

// RunLocker is a process-local named lock for single-instance deployments.
type RunLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRunLocker() *RunLocker {
	return &RunLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *RunLocker) TryLock(_ context.Context, name string) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	lock, ok := l.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[name] = lock
	}
	l.mu.Unlock()

	if !lock.TryLock() {
		return nil, false, nil
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(lock.Unlock)
		return nil
	}, true, nil
}
