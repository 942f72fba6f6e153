package pipeline

import (
	"context"
	"sync"
)

// keyedLock serializes work per key. Acquisition honours ctx so a caller
// stuck behind a slow holder gives up when its deadline passes.
type keyedLock struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{sems: make(map[string]chan struct{})}
}

func (k *keyedLock) sem(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.sems[key]
	if !ok {
		s = make(chan struct{}, 1)
		k.sems[key] = s
	}
	return s
}

// lock blocks until key is free or ctx is done. The returned func releases it.
func (k *keyedLock) lock(ctx context.Context, key string) (func(), error) {
	s := k.sem(key)
	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
