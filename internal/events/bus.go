package events

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musiq/internal/shared"
)

var (
	ErrNilHandler  = errors.New("nil event handler")
	ErrUnknownKind = errors.New("unknown event kind")
)

// Handler receives a published event on the publisher's goroutine.
type Handler func(Event)

// Stats are lifetime counters for a [Bus].
type Stats struct {
	Published uint64 // events passed to Publish while open
	Delivered uint64 // handler invocations
	Dropped   uint64 // events published with no subscriber for their kind
	Panics    uint64 // handler invocations that panicked
}

type subscriber struct {
	id      string
	handler Handler
}

// Bus is a synchronous publish/subscribe registry keyed by [Kind].
//
// The zero value is not usable; construct with [NewBus].
type Bus struct {
	mu     sync.RWMutex
	subs   map[Kind][]subscriber
	closed bool
	logger *log.Logger

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	panics    atomic.Uint64
}

// NewBus creates an empty bus. A nil logger defaults to [shared.NewLogger].
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Bus{
		subs:   make(map[Kind][]subscriber),
		logger: shared.WithLogger(logger, "component", "bus"),
	}
}

// Subscribe registers h for events of kind and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(kind Kind, h Handler) (func(), error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, shared.ErrBusClosed
	}

	id := shared.GenerateID()
	b.subs[kind] = append(b.subs[kind], subscriber{id: id, handler: h})

	var once sync.Once
	return func() { once.Do(func() { b.unsubscribe(kind, id) }) }, nil
}

// On subscribes a handler typed to one payload. The kind is taken from E.
func On[E Event](b *Bus, h func(E)) (func(), error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	var zero E
	return b.Subscribe(zero.Kind(), func(e Event) {
		if typed, ok := e.(E); ok {
			h(typed)
		}
	})
}

func (b *Bus) unsubscribe(kind Kind, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subs[kind]
	next := make([]subscriber, 0, len(current))
	for _, s := range current {
		if s.id != id {
			next = append(next, s)
		}
	}
	if len(next) == 0 {
		delete(b.subs, kind)
		return
	}
	b.subs[kind] = next
}

// Publish delivers e to every current subscriber of its kind, in subscription order, and returns
// the number of handlers invoked. A panicking handler is logged and does not stop delivery.
func (b *Bus) Publish(e Event) int {
	if e == nil {
		return 0
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0
	}
	// subscriber slices are never mutated in place, so the snapshot is safe to range over unlocked
	snapshot := b.subs[e.Kind()]
	b.mu.RUnlock()

	b.published.Add(1)
	if len(snapshot) == 0 {
		b.dropped.Add(1)
		b.logger.Debug("event dropped", "kind", e.Kind())
		return 0
	}

	for _, s := range snapshot {
		b.deliver(s, e)
	}
	return len(snapshot)
}

func (b *Bus) deliver(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			b.logger.Error("event handler panicked", "kind", e.Kind(), "subscriber", s.id, "panic", r)
		}
	}()
	b.delivered.Add(1)
	s.handler(e)
}

// Subscribers returns the number of handlers registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Dropped:   b.dropped.Load(),
		Panics:    b.panics.Load(),
	}
}

// Close drops every subscriber. Later publishes are ignored and later subscribes fail with [shared.ErrBusClosed].
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.subs = nil
}
