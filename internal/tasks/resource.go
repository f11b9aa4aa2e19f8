package tasks

import (
	"context"
	"sync"
)

// State is the lifecycle of a fetched resource.
type State int

const (
	Idle State = iota
	Loading
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failed:
		return "error"
	default:
		return ""
	}
}

// Ticket identifies one load. Only the most recently issued ticket can settle.
type Ticket struct {
	seq uint64
	key string
}

// Key is the route key the load was started for.
func (t Ticket) Key() string { return t.key }

// Snapshot is a consistent copy of a resource.
type Snapshot[T any] struct {
	State State
	Key   string
	Data  T
	Err   error
}

// Resource tracks one screen's data through idle -> loading -> success | error.
//
// Every Begin supersedes earlier loads: a settlement for an older ticket, or any
// settlement after Detach, is dropped. Data from the previous success is kept while
// loading so a refresh does not blank the screen.
type Resource[T any] struct {
	mu       sync.Mutex
	state    State
	key      string
	data     T
	err      error
	seq      uint64
	detached bool
}

func NewResource[T any]() *Resource[T] {
	return &Resource[T]{}
}

// Begin enters loading for key and returns the ticket the result must settle with.
func (r *Resource[T]) Begin(key string) Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	if r.key != key {
		var zero T
		r.data = zero
	}
	r.key = key
	r.state = Loading
	r.err = nil
	return Ticket{seq: r.seq, key: key}
}

// Settle applies a load result and reports whether it was applied.
func (r *Resource[T]) Settle(t Ticket, data T, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.detached || t.seq != r.seq {
		return false
	}

	if err != nil {
		r.state = Failed
		r.err = err
		return true
	}
	r.state = Success
	r.data = data
	r.err = nil
	return true
}

// Load runs fetch under a new ticket and settles it.
func (r *Resource[T]) Load(ctx context.Context, key string, fetch func(context.Context, string) (T, error)) (bool, error) {
	t := r.Begin(key)
	data, err := fetch(ctx, key)
	return r.Settle(t, data, err), err
}

// Detach drops all pending and future settlements until the next Attach.
func (r *Resource[T]) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detached = true
}

// Attach re-enables settlements. Loads begun before Attach stay stale.
func (r *Resource[T]) Attach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detached = false
	r.seq++
}

func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot[T]{State: r.state, Key: r.key, Data: r.data, Err: r.err}
}

func (r *Resource[T]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
