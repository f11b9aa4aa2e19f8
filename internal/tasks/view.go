package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/shared"
)

// FetchFunc loads a screen's data for a route key.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// ViewOpts configures a [View].
type ViewOpts[T any] struct {
	Name  string
	Fetch FetchFunc[T]

	// Kinds are the bus events that trigger a re-fetch while mounted.
	Kinds []events.Kind

	// Match filters triggering events against the mounted key. Nil matches all.
	Match func(e events.Event, key string) bool

	// Dispatch schedules an event-triggered refresh. Nil runs it on the publisher's goroutine.
	Dispatch func(load func())

	// OnSettle is called after every applied settlement.
	OnSettle func(Snapshot[T])

	Logger *log.Logger
}

// View is a route-level screen: it fetches on mount, re-fetches on relevant bus
// events, and discards anything that settles after it is unmounted.
type View[T any] struct {
	name     string
	bus      *events.Bus
	res      *Resource[T]
	fetch    FetchFunc[T]
	kinds    []events.Kind
	match    func(events.Event, string) bool
	dispatch func(func())
	onSettle func(Snapshot[T])
	logger   *log.Logger

	mu      sync.Mutex
	ctx     context.Context
	key     string
	mounted bool
	unsubs  []func()

	// loads counts refreshes in progress. Events arriving meanwhile set pending and
	// are folded into one refresh after the last of them finishes.
	loads   int
	pending bool

	// loggedOut is set by a logged-out SessionChanged and reset by a logged-in one.
	loggedOut bool
}

// NewView creates a view. bus may be nil, in which case only explicit refreshes load.
func NewView[T any](bus *events.Bus, opts ViewOpts[T]) *View[T] {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(load func()) { load() }
	}
	return &View[T]{
		name:     opts.Name,
		bus:      bus,
		res:      NewResource[T](),
		fetch:    opts.Fetch,
		kinds:    opts.Kinds,
		match:    opts.Match,
		dispatch: opts.Dispatch,
		onSettle: opts.OnSettle,
		logger:   shared.WithLogger(opts.Logger, "view", opts.Name),
	}
}

// Mount binds the view to key, subscribes to its trigger events, and loads.
// Mounting an already mounted view switches it to key.
func (v *View[T]) Mount(ctx context.Context, key string) error {
	if v.fetch == nil {
		return fmt.Errorf("%w: view %s has no fetch function", shared.ErrInvalidArgument, v.name)
	}

	v.mu.Lock()
	if !v.mounted {
		v.res.Attach()
		if err := v.subscribeLocked(); err != nil {
			v.mu.Unlock()
			return err
		}
		v.mounted = true
	}
	v.ctx = ctx
	v.key = key
	v.mu.Unlock()

	return v.Refresh(ctx)
}

func (v *View[T]) subscribeLocked() error {
	if v.bus == nil {
		return nil
	}
	for _, kind := range v.kinds {
		unsub, err := v.bus.Subscribe(kind, v.handle)
		if err != nil {
			for _, u := range v.unsubs {
				u()
			}
			v.unsubs = nil
			return fmt.Errorf("failed to subscribe %s to %s: %w", v.name, kind, err)
		}
		v.unsubs = append(v.unsubs, unsub)
	}
	return nil
}

func (v *View[T]) handle(e events.Event) {
	v.mu.Lock()
	key, mounted := v.key, v.mounted
	if sc, ok := e.(events.SessionChanged); ok {
		// Repeated logouts change nothing a screen shows.
		repeat := !sc.Authenticated && v.loggedOut
		v.loggedOut = !sc.Authenticated
		if repeat {
			v.mu.Unlock()
			return
		}
	}
	if !mounted || (v.match != nil && !v.match(e, key)) {
		v.mu.Unlock()
		return
	}
	if v.loads > 0 {
		v.pending = true
		v.mu.Unlock()
		v.logger.Debug("event deferred until load finishes", "event", e.Kind(), "key", key)
		return
	}
	v.mu.Unlock()

	v.logger.Debug("event triggered refresh", "event", e.Kind(), "key", key)
	v.schedule()
}

func (v *View[T]) schedule() {
	v.dispatch(func() {
		v.mu.Lock()
		ctx, key := v.ctx, v.key
		v.mu.Unlock()
		if err := v.Refresh(ctx); err != nil {
			v.logger.Debug("refresh failed", "key", key, "error", err)
		}
	})
}

// Refresh re-fetches the mounted key. The returned error is the fetch error, even
// when the result was discarded.
func (v *View[T]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	key, mounted := v.key, v.mounted
	if mounted {
		v.loads++
	}
	v.mu.Unlock()

	if !mounted {
		return nil
	}
	defer v.finishLoad()

	applied, err := v.res.Load(ctx, key, v.fetch)
	if !applied {
		v.logger.Debug("discarded stale result", "key", key)
		return err
	}
	if v.onSettle != nil {
		v.onSettle(v.res.Snapshot())
	}
	return err
}

// finishLoad runs one refresh for events that arrived during the loads that just ended.
func (v *View[T]) finishLoad() {
	v.mu.Lock()
	v.loads--
	rerun := v.loads == 0 && v.pending && v.mounted
	if v.loads == 0 {
		v.pending = false
	}
	v.mu.Unlock()

	if rerun {
		v.schedule()
	}
}

// Unmount unsubscribes and discards in-flight loads.
func (v *View[T]) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, u := range v.unsubs {
		u()
	}
	v.unsubs = nil
	v.mounted = false
	v.res.Detach()
}

func (v *View[T]) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

func (v *View[T]) Key() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.key
}

func (v *View[T]) Snapshot() Snapshot[T] { return v.res.Snapshot() }

// Resource exposes the underlying state for callers that drive loads themselves.
func (v *View[T]) Resource() *Resource[T] { return v.res }

// CollectionMatch re-fetches on changes to c. With scoped set, the event's id must
// also match the mounted key.
func CollectionMatch(c events.Collection, scoped bool) func(events.Event, string) bool {
	return func(e events.Event, key string) bool {
		switch ev := e.(type) {
		case events.CollectionChanged:
			if scoped {
				return ev.Affects(c, key)
			}
			return ev.Affects(c, "")
		case events.SessionChanged:
			return true
		default:
			return false
		}
	}
}
