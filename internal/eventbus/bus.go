// ABOUTME: Generic synchronous publish/subscribe bus for in-process event fan-out
// ABOUTME: Listeners run in registration order; a channel adapter serves streaming consumers

package eventbus

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	// DefaultStreamBuffer is the channel buffer used by Stream when buffer <= 0.
	DefaultStreamBuffer = 64
)

// Listener receives published events. Listeners must treat the event as read-only.
type Listener[E any] func(E)

type subscription[E any] struct {
	id     string
	fn     Listener[E]
	active atomic.Bool
}

// Bus delivers every published event to each listener registered at the time of
// the Publish call, synchronously and in registration order. It does not buffer:
// a listener added after a Publish never sees that event.
type Bus[E any] struct {
	mu     sync.RWMutex
	subs   []*subscription[E]
	logger *slog.Logger
}

// New creates an empty bus. Pass nil logger for default.
func New[E any](logger *slog.Logger) *Bus[E] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[E]{
		logger: logger.With("component", "eventbus"),
	}
}

// Subscribe registers fn and returns a function that removes it again.
// The returned function is idempotent.
func (b *Bus[E]) Subscribe(fn Listener[E]) (unsubscribe func()) {
	sub := &subscription[E]{id: uuid.NewString(), fn: fn}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.logger.Debug("listener added", "sub_id", sub.id)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub) })
	}
}

func (b *Bus[E]) remove(sub *subscription[E]) {
	// Flip first so an in-progress Publish skips this listener from now on.
	sub.active.Store(false)

	b.mu.Lock()
	b.subs = slices.DeleteFunc(slices.Clone(b.subs), func(s *subscription[E]) bool {
		return s == sub
	})
	b.mu.Unlock()

	b.logger.Debug("listener removed", "sub_id", sub.id)
}

// Publish invokes every currently registered listener with event.
// The subscriber list is snapshotted first, so listeners may subscribe or
// unsubscribe (themselves or others) while being invoked. A panicking listener
// is logged and does not stop delivery to the rest.
func (b *Bus[E]) Publish(event E) {
	b.mu.RLock()
	targets := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, sub := range targets {
		if !sub.active.Load() {
			continue
		}
		b.deliver(sub, event)
	}
}

func (b *Bus[E]) deliver(sub *subscription[E], event E) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("listener panicked", "sub_id", sub.id, "panic", r)
		}
	}()
	sub.fn(event)
}

// Len returns the number of registered listeners.
func (b *Bus[E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Stream adapts the bus to a channel for consumers that cannot run inside
// Publish (SSE writers, goroutine pipelines). Events are dropped for a stream
// whose buffer is full. The channel is closed once ctx is done.
func (b *Bus[E]) Stream(ctx context.Context, buffer int) <-chan E {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	ch := make(chan E, buffer)

	var mu sync.Mutex
	closed := false

	unsubscribe := b.Subscribe(func(event E) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow stream")
		}
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}
