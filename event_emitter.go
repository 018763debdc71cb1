package wsconn

import (
	"sync"
)

type callback[T any] func(T)

// EventEmitterCallback is a simple event emitter. It maps events (of type K) to
// callbacks receiving a value of type V. Connections use it to fan state
// transitions out to OnState listeners.
type EventEmitterCallback[K comparable, V any] struct {
	listeners map[K][]callback[V]
	closed    bool
	lock      sync.RWMutex
}

// NewEventEmitter creates a new EventEmitterCallback and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitterCallback[K, V] {
	return &EventEmitterCallback[K, V]{
		listeners: make(map[K][]callback[V]),
	}
}

// On registers a new listener for the given event. It is a no-op once the
// emitter has been closed.
func (e *EventEmitterCallback[K, V]) On(event K, listener callback[V]) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.closed {
		return
	}

	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit calls every listener registered for event synchronously, in
// registration order. The lock is not held while listeners run, so they may
// register further listeners or close the emitter.
func (e *EventEmitterCallback[K, V]) Emit(event K, data V) {
	e.lock.RLock()
	listeners := e.listeners[event]
	e.lock.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Close removes all listeners. Later calls to Emit and On are no-ops.
func (e *EventEmitterCallback[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.closed = true
	e.listeners = make(map[K][]callback[V])
}
