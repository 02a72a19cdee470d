package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veris-salud/agenda-web/internal/dom"
)

func TestDispatcherMatchesNameAndTarget(t *testing.T) {
	d := NewDispatcher()
	var got []string
	off := d.On(EventClick, "a", func(ev dom.Event) { got = append(got, ev.Target) })
	d.On(EventHidden, "a", func(ev dom.Event) { got = append(got, "hidden") })

	assert.Equal(t, 1, d.Dispatch(dom.Event{Name: EventClick, Target: "a"}))
	assert.Equal(t, 0, d.Dispatch(dom.Event{Name: EventClick, Target: "b"}))
	assert.Equal(t, []string{"a"}, got)

	off()
	off()
	assert.Equal(t, 1, d.Len())
}

func TestDispatcherListenerMayUnregisterItself(t *testing.T) {
	d := NewDispatcher()
	var off func()
	off = d.On(EventClose, "x", func(dom.Event) { off() })

	d.Dispatch(dom.Event{Name: EventClose, Target: "x"})
	assert.Equal(t, 0, d.Len())
}
