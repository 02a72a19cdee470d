package dialog

import (
	"context"
	"fmt"
	"sync"

	"github.com/veris-salud/agenda-web/internal/dom"
)

// Element ids of the native dialog fallback.
const (
	NativeDialogID    = "verisDialog"
	NativeTitleID     = "verisDialogTitle"
	NativeBodyID      = "verisDialogBody"
	NativeOKID        = "verisDialogOk"
	NativeCancelID    = "verisDialogCancel"
	returnValueOK     = "ok"
	returnValueCancel = "cancel"
)

// nativeMarkup is appended to the body when the page has no #verisDialog.
const nativeMarkup = `<dialog id="verisDialog" style="max-width:520px">` +
	`<form method="dialog" style="margin:0">` +
	`<h5 id="verisDialogTitle" style="margin:0 0 12px 0">Mensaje</h5>` +
	`<div id="verisDialogBody" style="margin:0 0 16px 0"></div>` +
	`<div style="display:flex; gap:8px; justify-content:flex-end">` +
	`<button id="verisDialogCancel" value="cancel" type="submit">Cancelar</button>` +
	`<button id="verisDialogOk" value="ok" type="submit">Aceptar</button>` +
	`</div></form></dialog>`

// NativeBackend drives a <dialog> element, creating it on first use when the
// page does not render one.
type NativeBackend struct {
	sink   dom.Sink
	events *Dispatcher

	mu      sync.Mutex
	created bool
}

// NewNativeBackend builds a native backend. present reports whether the page
// already contains #verisDialog.
func NewNativeBackend(sink dom.Sink, events *Dispatcher, present bool) *NativeBackend {
	return &NativeBackend{sink: sink, events: events, created: present}
}

func (b *NativeBackend) Name() string { return BackendNative }

func (b *NativeBackend) ensure() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.created {
		return nil
	}
	if err := b.sink.Send(dom.AppendHTML(nativeMarkup)); err != nil {
		return fmt.Errorf("dialog: create native dialog: %w", err)
	}
	b.created = true
	return nil
}

// Show fills the dialog and opens it modally.
func (b *NativeBackend) Show(_ context.Context, opts Options) error {
	if err := b.ensure(); err != nil {
		return err
	}
	opts = opts.withDefaults()
	display := "none"
	if opts.ShowCancel {
		display = ""
	}
	err := b.sink.Send(
		dom.SetText(NativeTitleID, opts.Title),
		dom.SetText(NativeBodyID, opts.Message),
		dom.SetStyle(NativeCancelID, "display", display),
		dom.SetText(NativeOKID, opts.OKText),
		dom.SetText(NativeCancelID, opts.CancelText),
		dom.DialogShowModal(NativeDialogID),
	)
	if err != nil {
		return fmt.Errorf("dialog: show native dialog: %w", err)
	}
	return nil
}

// Alert resolves true on OK or when the dialog closes for any reason.
func (b *NativeBackend) Alert(ctx context.Context, message, title string) (bool, error) {
	if title == "" {
		title = DefaultAlertTitle
	}
	p := newPending(b.events)
	p.on(EventClick, NativeOKID, outcomeOK)
	p.on(EventClose, NativeDialogID, outcomeDismissed)

	if err := b.Show(ctx, Options{Title: title, Message: message, OKText: DefaultOKText}); err != nil {
		p.cleanup()
		return false, err
	}

	o, err := p.wait(ctx)
	if err != nil {
		return false, err
	}
	if o.kind == outcomeOK {
		b.close(returnValueOK)
	}
	return true, nil
}

// Confirm resolves true on OK, false on Cancel, and on close follows the
// dialog's return value, defaulting to cancel.
func (b *NativeBackend) Confirm(ctx context.Context, message, title string) (bool, error) {
	if title == "" {
		title = DefaultConfirmTitle
	}
	p := newPending(b.events)
	p.on(EventClick, NativeOKID, outcomeOK)
	p.on(EventClick, NativeCancelID, outcomeCancel)
	p.on(EventClose, NativeDialogID, outcomeDismissed)

	opts := Options{
		Title:      title,
		Message:    message,
		ShowCancel: true,
		OKText:     DefaultYesText,
		CancelText: DefaultCancelText,
	}
	if err := b.Show(ctx, opts); err != nil {
		p.cleanup()
		return false, err
	}

	o, err := p.wait(ctx)
	if err != nil {
		return false, err
	}
	switch o.kind {
	case outcomeOK:
		b.close(returnValueOK)
		return true, nil
	case outcomeCancel:
		b.close(returnValueCancel)
		return false, nil
	}
	return o.returnValue == returnValueOK, nil
}

func (b *NativeBackend) close(returnValue string) {
	_ = b.sink.Send(dom.DialogClose(NativeDialogID, returnValue))
}
