// Package dialog shows alert and confirm prompts on a page through one of two
// surfaces: the Bootstrap modal rendered by the layout, or a native <dialog>
// element. The surface is picked once per page from the capabilities the page
// reports.
package dialog

import (
	"context"
	"errors"
	"strings"

	"github.com/veris-salud/agenda-web/internal/dom"
)

// Backend names.
const (
	BackendModal  = "modal"
	BackendNative = "native"
	BackendAuto   = "auto"
)

// Default texts.
const (
	DefaultAlertTitle   = "Mensaje"
	DefaultConfirmTitle = "Confirmación"
	DefaultOKText       = "Aceptar"
	DefaultYesText      = "Sí"
	DefaultCancelText   = "Cancelar"
)

// ErrNoSink is returned when a backend is built without a command sink.
var ErrNoSink = errors.New("dialog: sink required")

// Options describe one rendering of the dialog surface.
type Options struct {
	Title      string
	Message    string
	OKText     string
	CancelText string
	ShowCancel bool
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Title) == "" {
		o.Title = DefaultAlertTitle
	}
	if o.OKText == "" {
		o.OKText = DefaultOKText
		if o.ShowCancel {
			o.OKText = DefaultYesText
		}
	}
	if o.CancelText == "" {
		o.CancelText = DefaultCancelText
	}
	return o
}

// Backend is the alert/confirm contract. Alert and Confirm block until the
// user answers, the surface is dismissed, or ctx ends; callers that must keep
// handling page events run them in their own goroutine.
type Backend interface {
	Name() string
	Show(ctx context.Context, opts Options) error
	Alert(ctx context.Context, message, title string) (bool, error)
	Confirm(ctx context.Context, message, title string) (bool, error)
}

// Capabilities are detected by the page at load.
type Capabilities struct {
	// BootstrapModal is set when #verisModal exists and bootstrap.Modal is loaded.
	BootstrapModal bool `json:"bootstrapModal"`
	// DialogElement is set when #verisDialog is already in the document.
	DialogElement bool `json:"dialogElement"`
}

// Select picks the backend for a page. force overrides detection when it is
// "modal" or "native".
func Select(caps Capabilities, force string, sink dom.Sink, events *Dispatcher) (Backend, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	if events == nil {
		events = NewDispatcher()
	}
	switch strings.ToLower(strings.TrimSpace(force)) {
	case BackendModal:
		return NewModalBackend(sink, events), nil
	case BackendNative:
		return NewNativeBackend(sink, events, caps.DialogElement), nil
	}
	if caps.BootstrapModal {
		return NewModalBackend(sink, events), nil
	}
	return NewNativeBackend(sink, events, caps.DialogElement), nil
}

// outcome is how a pending prompt was resolved.
type outcome struct {
	kind        outcomeKind
	returnValue string
}

type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	outcomeCancel
	outcomeDismissed
)

// pending is one prompt awaiting its first outcome. Listeners are detached
// before the result is returned on every path.
type pending struct {
	events *Dispatcher
	offs   []func()
	ch     chan outcome
}

func newPending(events *Dispatcher) *pending {
	return &pending{events: events, ch: make(chan outcome, 1)}
}

func (p *pending) on(name, target string, kind outcomeKind) {
	off := p.events.On(name, target, func(ev dom.Event) {
		select {
		case p.ch <- outcome{kind: kind, returnValue: ev.Value}:
		default:
		}
	})
	p.offs = append(p.offs, off)
}

func (p *pending) cleanup() {
	for _, off := range p.offs {
		off()
	}
	p.offs = nil
}

func (p *pending) wait(ctx context.Context) (outcome, error) {
	defer p.cleanup()
	select {
	case o := <-p.ch:
		return o, nil
	case <-ctx.Done():
		return outcome{kind: outcomeDismissed}, ctx.Err()
	}
}

// Observer records resolved prompts.
type Observer interface {
	ObserveDialog(backend, kind string, accepted bool)
}

type instrumented struct {
	Backend
	obs Observer
}

// Instrument reports every resolved Alert and Confirm to obs.
func Instrument(b Backend, obs Observer) Backend {
	if b == nil || obs == nil {
		return b
	}
	return instrumented{Backend: b, obs: obs}
}

func (i instrumented) Alert(ctx context.Context, message, title string) (bool, error) {
	ok, err := i.Backend.Alert(ctx, message, title)
	if err == nil {
		i.obs.ObserveDialog(i.Name(), "alert", ok)
	}
	return ok, err
}

func (i instrumented) Confirm(ctx context.Context, message, title string) (bool, error) {
	ok, err := i.Backend.Confirm(ctx, message, title)
	if err == nil {
		i.obs.ObserveDialog(i.Name(), "confirm", ok)
	}
	return ok, err
}
