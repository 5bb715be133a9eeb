// Package errbus broadcasts client-side failures to whoever renders them.
// A Bus is constructed by the application root and handed to every
// component that can fail; nothing here is global.
package errbus

import (
	"errors"
	"slices"
	"sync"

	"expensetracker/internal/logger"
)

// Handler receives one broadcast error.
type Handler func(err error)

// Bus fans errors out to its subscribers.
type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Emit delivers err to every subscriber in subscription order and returns
// it marked as broadcast, so later layers can tell it was already announced.
// A panicking handler is logged and does not stop delivery to the others.
// Emitting nil is a no-op that returns nil.
func (b *Bus) Emit(err error) error {
	if err == nil {
		return nil
	}
	if Emitted(err) {
		return err
	}

	b.mu.RLock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	handlers := make([]Handler, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		deliver(h, err)
	}
	return &broadcast{err: err}
}

// Len reports the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func deliver(h Handler, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Named("errbus").Errorw("error handler panicked", "panic", r, "error", err.Error())
		}
	}()
	h(err)
}

// broadcast marks an error that has gone out on a bus.
type broadcast struct {
	err error
}

func (e *broadcast) Error() string { return e.err.Error() }
func (e *broadcast) Unwrap() error { return e.err }

// Emitted reports whether err, or an error it wraps, was returned by Emit.
func Emitted(err error) bool {
	var b *broadcast
	return errors.As(err, &b)
}
