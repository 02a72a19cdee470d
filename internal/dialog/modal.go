package dialog

import (
	"context"
	"fmt"

	"github.com/veris-salud/agenda-web/internal/dom"
)

// Element ids of the layout's Bootstrap modal.
const (
	ModalID       = "verisModal"
	ModalTitleID  = "verisModalTitle"
	ModalBodyID   = "verisModalBody"
	ModalOKID     = "verisModalOk"
	ModalCancelID = "verisModalCancel"
)

// ModalBackend drives the Bootstrap modal already present in the layout.
type ModalBackend struct {
	sink   dom.Sink
	events *Dispatcher
}

// NewModalBackend builds a modal backend.
func NewModalBackend(sink dom.Sink, events *Dispatcher) *ModalBackend {
	return &ModalBackend{sink: sink, events: events}
}

func (b *ModalBackend) Name() string { return BackendModal }

// Show fills the modal and opens it.
func (b *ModalBackend) Show(_ context.Context, opts Options) error {
	opts = opts.withDefaults()
	display := "none"
	if opts.ShowCancel {
		display = ""
	}
	err := b.sink.Send(
		dom.SetText(ModalTitleID, opts.Title),
		dom.SetText(ModalBodyID, opts.Message),
		dom.SetStyle(ModalCancelID, "display", display),
		dom.SetText(ModalOKID, opts.OKText),
		dom.SetText(ModalCancelID, opts.CancelText),
		dom.ModalShow(ModalID),
	)
	if err != nil {
		return fmt.Errorf("dialog: show modal: %w", err)
	}
	return nil
}

// Alert resolves true on OK or on any dismissal.
func (b *ModalBackend) Alert(ctx context.Context, message, title string) (bool, error) {
	if title == "" {
		title = DefaultAlertTitle
	}
	p := newPending(b.events)
	p.on(EventClick, ModalOKID, outcomeOK)
	p.on(EventHidden, ModalID, outcomeDismissed)

	if err := b.Show(ctx, Options{Title: title, Message: message, OKText: DefaultOKText}); err != nil {
		p.cleanup()
		return false, err
	}

	o, err := p.wait(ctx)
	if err != nil {
		return false, err
	}
	if o.kind == outcomeOK {
		b.hide()
	}
	return true, nil
}

// Confirm resolves true on OK; Cancel and dismissal resolve false.
func (b *ModalBackend) Confirm(ctx context.Context, message, title string) (bool, error) {
	if title == "" {
		title = DefaultConfirmTitle
	}
	p := newPending(b.events)
	p.on(EventClick, ModalOKID, outcomeOK)
	p.on(EventClick, ModalCancelID, outcomeCancel)
	p.on(EventHidden, ModalID, outcomeDismissed)

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
		b.hide()
		return true, nil
	case outcomeCancel:
		b.hide()
	}
	return false, nil
}

// hide runs after listeners are detached, so the hidden event it causes
// resolves nothing.
func (b *ModalBackend) hide() {
	_ = b.sink.Send(dom.ModalHide(ModalID))
}
