package fetch

import (
	"context"
	"sync"
)

// View is one consumer's window onto a query. It is not shared between
// consumers; after Close any result that arrives is dropped.
type View[T any] struct {
	c       *Controller[T]
	key     QueryKey
	fetcher Fetcher[T]

	mu     sync.Mutex
	state  State[T]
	closed bool
}

func (c *Controller[T]) View(key QueryKey, fetcher Fetcher[T]) *View[T] {
	return &View[T]{c: c, key: key, fetcher: fetcher, state: State[T]{Status: StatusIdle}}
}

// Load drives the view to ready or error. A fresh cache hit skips loading.
func (v *View[T]) Load(ctx context.Context) State[T] {
	v.mu.Lock()
	if v.closed {
		st := v.state
		v.mu.Unlock()
		return st
	}
	if st, ok := v.c.lookupFresh(v.key); ok {
		v.state = st
		v.mu.Unlock()
		v.c.record("hit")
		return st
	}
	v.state = State[T]{Status: StatusLoading, Data: v.state.Data, UpdatedAt: v.state.UpdatedAt}
	v.mu.Unlock()

	st := v.c.load(ctx, v.key, v.fetcher)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return v.state
	}
	v.state = st
	return st
}

// Refetch bypasses the freshness window for this view's key, sharing any
// retrieval already running for it.
func (v *View[T]) Refetch(ctx context.Context) State[T] {
	v.mu.Lock()
	if v.closed {
		st := v.state
		v.mu.Unlock()
		return st
	}
	v.state = State[T]{Status: StatusLoading, Data: v.state.Data, UpdatedAt: v.state.UpdatedAt}
	v.mu.Unlock()

	st := v.c.refetch(ctx, v.key, v.fetcher)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return v.state
	}
	v.state = st
	return st
}

func (v *View[T]) State() State[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *View[T]) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}
