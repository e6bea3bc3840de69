package live

import (
	"fmt"
	"sync"
)

// Handler receives events. A returned error is reported through Hooks and
// does not stop delivery to later handlers.
type Handler func(Event) error

// Dispatcher is an ordered registry of handlers keyed by event kind.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventKind][]Handler
	onFail   func(ev Event, err error)
}

func NewDispatcher(onFail func(ev Event, err error)) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[EventKind][]Handler),
		onFail:   onFail,
	}
}

func (d *Dispatcher) On(kind EventKind, handler Handler) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], handler)
}

// OnAny registers handler for every event kind.
func (d *Dispatcher) OnAny(handler Handler) {
	for _, kind := range eventKinds {
		d.On(kind, handler)
	}
}

// Dispatch calls the handlers of ev.Kind in registration order on the
// calling goroutine.
func (d *Dispatcher) Dispatch(ev Event) {
	d.mu.RLock()
	handlers := d.handlers[ev.Kind]
	d.mu.RUnlock()

	for _, handler := range handlers {
		if err := d.invoke(handler, ev); err != nil && d.onFail != nil {
			d.onFail(ev, err)
		}
	}
}

func (d *Dispatcher) invoke(handler Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ev)
}
