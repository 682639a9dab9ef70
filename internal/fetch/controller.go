// Package fetch wraps content retrieval in a cached, coalescing state
// machine. Each query key moves idle -> loading -> ready | error.
package fetch

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultFreshFor     = 5 * time.Minute
	DefaultFetchTimeout = 15 * time.Second
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// State is a snapshot of one query. Err is set in the error state, and on a
// stale ready state whose background refresh failed.
type State[T any] struct {
	Status    Status    `json:"status"`
	Data      T         `json:"-"`
	Err       error     `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
	Stale     bool      `json:"stale"`
}

// Fetcher performs one retrieval.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Recorder receives cache lookup outcomes (hit, miss, stale).
type Recorder interface {
	CacheLookup(cache, result string)
}

type Options struct {
	// Name labels metrics and logs.
	Name         string
	FreshFor     time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
	Logger       *zap.Logger
	Metrics      Recorder
}

type entry[T any] struct {
	state State[T]
	// flight is the singleflight key of the retrieval running for this
	// entry, "" when none is. At most one is set per entry.
	flight      string
	invalidated bool
	retryAfter  time.Time
}

type Controller[T any] struct {
	opts    Options
	log     *zap.Logger
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*entry[T]
	flights uint64
}

func NewController[T any](opts Options) *Controller[T] {
	if opts.FreshFor <= 0 {
		opts.FreshFor = DefaultFreshFor
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller[T]{
		opts:    opts,
		log:     log.With(zap.String("cache", opts.Name)),
		entries: make(map[string]*entry[T]),
	}
}

// Get returns the cached value for key, or runs fetcher once no matter how
// many callers ask concurrently. A caller whose ctx ends early gets ctx.Err()
// while the retrieval carries on and fills the cache.
func (c *Controller[T]) Get(ctx context.Context, key QueryKey, fetcher Fetcher[T]) (T, error) {
	return unwrap(c.load(ctx, key, fetcher))
}

// Refetch bypasses the freshness window for key. When a retrieval for key is
// already running, Refetch waits for that one instead of starting another.
func (c *Controller[T]) Refetch(ctx context.Context, key QueryKey, fetcher Fetcher[T]) (T, error) {
	return unwrap(c.refetch(ctx, key, fetcher))
}

func unwrap[T any](st State[T]) (T, error) {
	if st.Status == StatusError {
		var zero T
		return zero, st.Err
	}
	return st.Data, nil
}

// Invalidate forgets key. A retrieval already running for it finishes for
// the callers waiting on it but does not write its result back.
func (c *Controller[T]) Invalidate(key QueryKey) {
	k := key.String()
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[k]; ok {
		c.invalidateLocked(k, e)
	}
}

// InvalidateAll forgets every key, e.g. after the content store changed.
func (c *Controller[T]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		c.invalidateLocked(k, e)
	}
}

func (c *Controller[T]) invalidateLocked(k string, e *entry[T]) {
	if e.flight == "" {
		delete(c.entries, k)
		return
	}
	e.invalidated = true
	e.state = State[T]{Status: StatusLoading}
}

// State reports the shared entry for key. Absent keys are idle.
func (c *Controller[T]) State(key QueryKey) State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return State[T]{Status: StatusIdle}
	}
	return c.snapshot(e, c.opts.Now())
}

// Peek returns the last successful payload for key, fresh or stale, without
// triggering a retrieval.
func (c *Controller[T]) Peek(key QueryKey) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || e.state.Status != StatusReady {
		var zero T
		return zero, false
	}
	return e.state.Data, true
}

func (c *Controller[T]) snapshot(e *entry[T], now time.Time) State[T] {
	st := e.state
	st.Stale = st.Status == StatusReady && now.Sub(st.UpdatedAt) >= c.opts.FreshFor
	return st
}

func (c *Controller[T]) fresh(e *entry[T], now time.Time) bool {
	settled := e.state.Status == StatusReady || e.state.Status == StatusError
	return settled && now.Sub(e.state.UpdatedAt) < c.opts.FreshFor
}

// lookupFresh returns the entry for key only when it can be served as is.
func (c *Controller[T]) lookupFresh(key QueryKey) (State[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !c.fresh(e, c.opts.Now()) {
		return State[T]{}, false
	}
	return e.state, true
}

func (c *Controller[T]) load(ctx context.Context, key QueryKey, fetcher Fetcher[T]) State[T] {
	k := key.String()
	now := c.opts.Now()

	c.mu.Lock()
	e, ok := c.entries[k]
	switch {
	case ok && c.fresh(e, now):
		st := e.state
		c.mu.Unlock()
		c.record("hit")
		return st
	case ok && e.state.Status == StatusReady:
		st := c.snapshot(e, now)
		if e.flight == "" && !now.Before(e.retryAfter) {
			c.startLocked(ctx, k, e, fetcher)
		}
		c.mu.Unlock()
		c.record("stale")
		return st
	case !ok:
		e = &entry[T]{}
		c.entries[k] = e
	}
	ch := c.startLocked(ctx, k, e, fetcher)
	c.mu.Unlock()
	c.record("miss")
	return c.await(ctx, ch)
}

func (c *Controller[T]) refetch(ctx context.Context, key QueryKey, fetcher Fetcher[T]) State[T] {
	k := key.String()
	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok || e.flight == "" {
		e = &entry[T]{}
		c.entries[k] = e
	}
	ch := c.startLocked(ctx, k, e, fetcher)
	c.mu.Unlock()
	c.record("refetch")
	return c.await(ctx, ch)
}

// startLocked joins the retrieval running for e or starts one. The caller
// holds c.mu, so checking and registering the flight is atomic.
func (c *Controller[T]) startLocked(ctx context.Context, k string, e *entry[T], fetcher Fetcher[T]) <-chan singleflight.Result {
	if e.flight == "" {
		c.flights++
		e.flight = k + "#" + strconv.FormatUint(c.flights, 10)
		if e.state.Status != StatusReady {
			e.state = State[T]{Status: StatusLoading, UpdatedAt: e.state.UpdatedAt}
		}
	}
	flight := e.flight
	return c.group.DoChan(flight, func() (any, error) {
		return c.run(ctx, k, flight, fetcher)
	})
}

func (c *Controller[T]) await(ctx context.Context, ch <-chan singleflight.Result) State[T] {
	select {
	case <-ctx.Done():
		return State[T]{Status: StatusError, Err: ctx.Err(), UpdatedAt: c.opts.Now()}
	case res := <-ch:
		if res.Err != nil {
			return State[T]{Status: StatusError, Err: res.Err, UpdatedAt: c.opts.Now()}
		}
		data, _ := res.Val.(T)
		return State[T]{Status: StatusReady, Data: data, UpdatedAt: c.opts.Now()}
	}
}

// run performs the retrieval on a context detached from the caller and
// stores the outcome, success or failure, for the freshness window. A failed
// refresh of a ready entry keeps the old payload visible and backs off for
// another FreshFor.
func (c *Controller[T]) run(parent context.Context, k, flight string, fetcher Fetcher[T]) (T, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.opts.FetchTimeout)
	defer cancel()

	start := c.opts.Now()
	data, err := fetcher(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok || e.flight != flight {
		return data, err
	}
	e.flight = ""
	if e.invalidated {
		delete(c.entries, k)
		return data, err
	}
	now := c.opts.Now()
	if err != nil {
		if e.state.Status == StatusReady {
			c.log.Warn("background refresh failed, serving stale data", zap.String("key", k), zap.Error(err))
			e.state.Err = err
			e.retryAfter = now.Add(c.opts.FreshFor)
			return data, err
		}
		c.log.Debug("fetch failed", zap.String("key", k), zap.Error(err))
		e.state = State[T]{Status: StatusError, Err: err, UpdatedAt: now}
		return data, err
	}
	c.log.Debug("fetched", zap.String("key", k), zap.Duration("took", now.Sub(start)))
	e.state = State[T]{Status: StatusReady, Data: data, UpdatedAt: now}
	e.retryAfter = time.Time{}
	return data, nil
}

func (c *Controller[T]) record(result string) {
	if c.opts.Metrics != nil {
		c.opts.Metrics.CacheLookup(c.opts.Name, result)
	}
}
