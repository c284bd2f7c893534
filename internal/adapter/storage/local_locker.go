package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/pos-invoice/internal/port"
)

// LocalLocker is a process-wide Locker for single-instance backends such as the
// spreadsheet file. The ttl is ignored; the lock is held until released.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration) (port.ReleaseFunc, error) {
	sem := l.semaphore(key)

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-sem })
		return nil
	}, nil
}

func (l *LocalLocker) semaphore(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[key] = sem
	}
	return sem
}
