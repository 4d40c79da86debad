package entity

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/daemonp/vivint2mqtt/internal/log"
)

// Event is delivered to every listener registered for Name.
type Event struct {
	Name   string
	Data   map[string]any
	Source any
}

// Listener handles an emitted event.
type Listener func(Event)

type subscription struct {
	id uint64
	fn Listener
}

// Emitter is a named-event registry. The zero value is ready to use and
// invokes listeners synchronously on the emitting goroutine.
type Emitter struct {
	mu         sync.RWMutex
	listeners  map[string][]subscription
	nextID     uint64
	dispatcher *Dispatcher
	log        *log.Logger
}

// SetDispatcher routes future emissions through d instead of calling
// listeners inline. Passing nil restores synchronous delivery.
func (e *Emitter) SetDispatcher(d *Dispatcher) {
	e.mu.Lock()
	e.dispatcher = d
	e.mu.Unlock()
}

// SetLogger sets where recovered listener panics are reported.
func (e *Emitter) SetLogger(l *log.Logger) {
	e.mu.Lock()
	e.log = l
	e.mu.Unlock()
}

// On registers fn for the named event and returns a function that removes
// exactly that registration. Calling the returned function more than once
// has no further effect.
func (e *Emitter) On(name string, fn Listener) func() {
	e.mu.Lock()
	if e.listeners == nil {
		e.listeners = make(map[string][]subscription)
	}
	e.nextID++
	id := e.nextID
	e.listeners[name] = append(e.listeners[name], subscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.off(name, id) })
	}
}

func (e *Emitter) off(name string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.listeners[name]
	for i, s := range subs {
		if s.id == id {
			e.listeners[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(e.listeners[name]) == 0 {
		delete(e.listeners, name)
	}
}

// ListenerCount reports how many listeners are registered for name.
func (e *Emitter) ListenerCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[name])
}

// Emit delivers ev to the listeners registered for ev.Name at the time of
// the call, in registration order. A panicking listener is logged and does
// not stop delivery to the rest.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	subs := make([]subscription, len(e.listeners[ev.Name]))
	copy(subs, e.listeners[ev.Name])
	d := e.dispatcher
	logger := log.OrNop(e.log)
	e.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	deliver := func() {
		for _, s := range subs {
			invoke(logger, s.fn, ev)
		}
	}
	if d != nil {
		d.Submit(deliver)
		return
	}
	deliver()
}

func invoke(logger *log.Logger, fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("listener for %q panicked: %v\n%s", ev.Name, r, debug.Stack())
		}
	}()
	fn(ev)
}

// errPanic wraps a recovered value so the dispatcher can log it uniformly.
func errPanic(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("recovered panic: %w", err)
	}
	return fmt.Errorf("recovered panic: %v", r)
}
