/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	"reflect"
	"sync"

	"github.com/rs/zerolog"

	"github.com/suparena/persistence/storagemodels"
)

// Resolver resolves the runtime type of the object behind an ID
type Resolver interface {
	ObjectType(id storagemodels.ObjectID) (reflect.Type, bool)
}

// Option configures a Hub
type Option func(*Hub)

// WithLogger sets the hub logger
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Hub) {
		h.log = logger
	}
}

// WithEventHook registers fn to be called with the watched type name for
// every event queued to a subscriber
func WithEventHook(fn func(typeName string)) Option {
	return func(h *Hub) {
		h.onEvent = fn
	}
}

// Hub fans change notifications out to typed subscribers
type Hub struct {
	resolver Resolver
	log      zerolog.Logger
	onEvent  func(string)

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// NewHub creates a hub resolving object types through resolver
func NewHub(resolver Resolver, opts ...Option) *Hub {
	h := &Hub{
		resolver: resolver,
		log:      zerolog.Nop(),
		subs:     make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type subscriber struct {
	id  int
	typ reflect.Type
	out chan storagemodels.ChangeEvent

	mu      sync.Mutex
	pending int
	wake    chan struct{}

	done     chan struct{}
	stopOnce sync.Once
}

func (s *subscriber) matches(t reflect.Type) bool {
	if t == s.typ {
		return true
	}
	return s.typ.Kind() == reflect.Interface && t.Implements(s.typ)
}

func (s *subscriber) enqueue() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *subscriber) run(ctx context.Context, h *Hub) {
	defer close(s.out)
	defer h.remove(s.id)

	for {
		s.mu.Lock()
		n := s.pending
		s.pending = 0
		s.mu.Unlock()

		for ; n > 0; n-- {
			select {
			case s.out <- storagemodels.ChangeEvent{}:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Subscribe returns a stream of change events for entity type T. The stream
// never completes on its own; it is closed when cancel is called, ctx is done
// or the hub is closed.
func Subscribe[T any](ctx context.Context, h *Hub, opts ...storagemodels.SubscribeOption) (<-chan storagemodels.ChangeEvent, func()) {
	options := storagemodels.DefaultSubscribeOptions()
	for _, opt := range opts {
		opt(&options)
	}

	typ := reflect.TypeOf((*T)(nil)).Elem()
	s := &subscriber{
		typ:  typ,
		out:  make(chan storagemodels.ChangeEvent, options.BufferSize),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.out)
		return s.out, func() {}
	}
	s.id = h.nextID
	h.nextID++
	h.subs[s.id] = s
	h.mu.Unlock()

	h.log.Debug().Str("type", typ.String()).Int("subscriber", s.id).Msg("change subscription started")

	go s.run(ctx, h)
	return s.out, s.stop
}

// Publish delivers n to every subscriber watching a type touched by n.
// Publish never blocks on subscribers.
func (h *Hub) Publish(n storagemodels.ChangeNotification) {
	if n.IsEmpty() {
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	types := make(map[reflect.Type]struct{})
	for _, id := range n.ObjectIDs() {
		t, ok := h.resolver.ObjectType(id)
		if !ok {
			h.log.Warn().Str("object", id.String()).Msg("cannot resolve object type")
			continue
		}
		types[t] = struct{}{}
	}

	for _, s := range subs {
		for t := range types {
			if s.matches(t) {
				s.enqueue()
				if h.onEvent != nil {
					h.onEvent(s.typ.Name())
				}
				break
			}
		}
	}
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Subscribing after Close returns a closed
// stream.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}
