package billing

import (
	"context"
	"sync"
)

// Locker serializes bill creation per household. The returned func releases
// the lock.
type Locker interface {
	LockHousehold(ctx context.Context, householdID string) (func(), error)
}

// LocalLocker is an in-process keyed mutex. Entries are dropped once no
// caller holds or waits on them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) LockHousehold(ctx context.Context, householdID string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[householdID]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[householdID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(householdID, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(householdID, kl)
		})
	}, nil
}

func (l *LocalLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
