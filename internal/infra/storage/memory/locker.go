package memory

import (
	"context"
	"sync"
	"time"

	"staysync/internal/app/policies"
)

// KeyedLocker is an in-process mutex per key. Waiters give up when their
// context ends or after Timeout.
type KeyedLocker struct {
	Timeout time.Duration

	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewKeyedLocker(timeout time.Duration) *KeyedLocker {
	return &KeyedLocker{Timeout: timeout, slots: make(map[string]chan struct{})}
}

func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	slot := l.slot(key)
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, policies.ErrLockTimeout
	}
	var once sync.Once
	return func() { once.Do(func() { <-slot }) }, nil
}

func (l *KeyedLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots == nil {
		l.slots = make(map[string]chan struct{})
	}
	s, ok := l.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[key] = s
	}
	return s
}

var _ policies.PropertyLocker = (*KeyedLocker)(nil)
