package dialog

import (
	"sync"

	"github.com/veris-salud/agenda-web/internal/dom"
)

// Dialog event names forwarded by the page.
const (
	EventClick  = "click"
	EventHidden = "hidden"
	EventClose  = "close"
)

type listener struct {
	name   string
	target string
	fn     func(dom.Event)
}

// Dispatcher routes dialog events to the listeners of pending prompts.
type Dispatcher struct {
	mu        sync.Mutex
	next      uint64
	listeners map[uint64]listener
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[uint64]listener)}
}

// On registers fn for events with the given name on target and returns the
// function that removes it. Removing twice is a no-op.
func (d *Dispatcher) On(name, target string, fn func(dom.Event)) func() {
	d.mu.Lock()
	id := d.next
	d.next++
	d.listeners[id] = listener{name: name, target: target, fn: fn}
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// Dispatch delivers ev to every matching listener. Listeners run outside the
// lock so they may unregister themselves.
func (d *Dispatcher) Dispatch(ev dom.Event) int {
	d.mu.Lock()
	var matched []func(dom.Event)
	for _, l := range d.listeners {
		if l.name == ev.Name && l.target == ev.Target {
			matched = append(matched, l.fn)
		}
	}
	d.mu.Unlock()

	for _, fn := range matched {
		fn(ev)
	}
	return len(matched)
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}
