// Package signal provides a small typed observer used by install tasks and
// the install monitor to emit Progress, StateChange, and Complete events
// without holding pointer-back references into their subscribers.
package signal

import "sync"

// Handler receives one emitted value.
type Handler[T any] func(T)

// Signal is a typed, many-subscriber broadcast point. Subscribers hold only
// the disposer returned by Subscribe; the Signal holds no reference to
// anything beyond the handler closure itself.
type Signal[T any] struct {
	mu       sync.RWMutex
	handlers map[int]Handler[T]
	nextID   int
}

// New returns an empty Signal.
func New[T any]() *Signal[T] {
	return &Signal[T]{handlers: make(map[int]Handler[T])}
}

// Subscribe registers handler and returns a disposer that removes it.
// Calling the disposer more than once is a no-op.
func (s *Signal[T]) Subscribe(handler Handler[T]) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

// Emit calls every current subscriber with value, in arbitrary order.
// Handlers are snapshotted before invocation so a handler may unsubscribe
// itself (or others) without deadlocking.
func (s *Signal[T]) Emit(value T) {
	s.mu.RLock()
	snapshot := make([]Handler[T], 0, len(s.handlers))
	for _, h := range s.handlers {
		snapshot = append(snapshot, h)
	}
	s.mu.RUnlock()

	for _, h := range snapshot {
		h(value)
	}
}

// Count reports the number of live subscriptions.
func (s *Signal[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}
