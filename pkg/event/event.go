// Package event is an in-process publish/subscribe dispatcher. Listeners are
// called with the firing context; FireAsync detaches them from it.
package event

import (
	"context"
	"sync"

	"github.com/pharmacare/pharmacare-api/pkg/logger"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any)

// Bus holds listeners by event name.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Listen registers a handler for the given event name.
func (b *Bus) Listen(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

func (b *Bus) listeners(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[name]...)
}

// Fire runs every listener synchronously in registration order.
func (b *Bus) Fire(ctx context.Context, name string, payload any) {
	for _, h := range b.listeners(name) {
		safeCall(ctx, name, h, payload)
	}
}

// FireAsync runs every listener in its own goroutine. Listeners get a
// context that is not cancelled when the request ends.
func (b *Bus) FireAsync(ctx context.Context, name string, payload any) {
	detached := context.WithoutCancel(ctx)
	for _, h := range b.listeners(name) {
		go safeCall(detached, name, h, payload)
	}
}

// Flush removes all listeners.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[string][]Handler{}
}

func safeCall(ctx context.Context, name string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", name, "panic", r)
		}
	}()
	h(ctx, payload)
}
