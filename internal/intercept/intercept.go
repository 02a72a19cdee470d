// Package intercept replays link navigation and form submission that the
// page shim held back: after a confirmation prompt for elements carrying
// data-veris-confirm, and after the profile validation gates for forms that
// carry profile fields.
package intercept

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/veris-salud/agenda-web/internal/dom"
	"github.com/veris-salud/agenda-web/internal/scheduling"
	"github.com/veris-salud/agenda-web/internal/validation"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

// DefaultPrompt is asked for links whose data-veris-confirm attribute is empty.
const DefaultPrompt = "¿Desea continuar?"

// ErrFormIDRequired is returned for submit events without a form id.
var ErrFormIDRequired = errors.New("intercept: form id required")

// Outcome is what happened to an intercepted action.
type Outcome string

const (
	OutcomeReplayed Outcome = "replayed"
	OutcomeDeclined Outcome = "declined"
	OutcomeRejected Outcome = "rejected"
	OutcomeRerouted Outcome = "rerouted"
	OutcomeIgnored  Outcome = "ignored"
)

// Prompter is the dialog surface used for prompts and validation messages.
type Prompter interface {
	Alert(ctx context.Context, message, title string) (bool, error)
	Confirm(ctx context.Context, message, title string) (bool, error)
}

// Booking receives submissions of the appointment confirmation form.
type Booking interface {
	ShowConfirmation(ctx context.Context, sel scheduling.Selection) error
}

// Observer records intercepted actions.
type Observer interface {
	ObserveInterception(kind string, outcome string)
}

// Interceptor handles held-back clicks and submits for one page.
type Interceptor struct {
	prompts Prompter
	sink    dom.Sink
	gates   []validation.Gate
	booking Booking
	obs     Observer
	logger  *logging.Logger
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithGates enables profile validation gates for the page's forms.
func WithGates(gates ...validation.Gate) Option {
	return func(i *Interceptor) { i.gates = append(i.gates, gates...) }
}

// WithBooking reroutes the confirmation form to the booking flow.
func WithBooking(b Booking) Option {
	return func(i *Interceptor) { i.booking = b }
}

func WithObserver(obs Observer) Option {
	return func(i *Interceptor) { i.obs = obs }
}

func WithLogger(logger *logging.Logger) Option {
	return func(i *Interceptor) { i.logger = logger }
}

// New builds an interceptor.
func New(prompts Prompter, sink dom.Sink, opts ...Option) *Interceptor {
	i := &Interceptor{prompts: prompts, sink: sink}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = logging.Default()
	}
	return i
}

// HandleClick confirms a held-back link and navigates on acceptance.
func (i *Interceptor) HandleClick(ctx context.Context, ev dom.Event) (Outcome, error) {
	if ev.Confirm == nil {
		return i.done("link", OutcomeIgnored, nil)
	}
	msg := strings.TrimSpace(*ev.Confirm)
	if msg == "" {
		msg = DefaultPrompt
	}
	ok, err := i.prompts.Confirm(ctx, msg, "")
	if err != nil {
		return i.done("link", OutcomeDeclined, fmt.Errorf("intercept: confirm link: %w", err))
	}
	if !ok {
		return i.done("link", OutcomeDeclined, nil)
	}
	href := strings.TrimSpace(ev.Href)
	if href == "" {
		return i.done("link", OutcomeIgnored, nil)
	}
	if err := i.sink.Send(dom.Navigate(href)); err != nil {
		return i.done("link", OutcomeReplayed, fmt.Errorf("intercept: navigate: %w", err))
	}
	return i.done("link", OutcomeReplayed, nil)
}

// HandleSubmit runs the gates for a held-back form and submits it when they
// pass. The confirmation form of the booking page opens the summary instead.
func (i *Interceptor) HandleSubmit(ctx context.Context, ev dom.Event) (Outcome, error) {
	formID := strings.TrimSpace(ev.Target)
	if formID == "" {
		return i.done("form", OutcomeIgnored, ErrFormIDRequired)
	}

	if formID == scheduling.FormConfirm && i.booking != nil {
		err := i.booking.ShowConfirmation(ctx, scheduling.SelectionFromArgs(ev.Args))
		var rej *scheduling.Rejection
		if errors.As(err, &rej) {
			return i.done("form", OutcomeRejected, nil)
		}
		return i.done("form", OutcomeRerouted, err)
	}

	fields := validation.Fields(ev.Fields)
	if len(i.gates) > 0 && validation.HasProfileFields(fields) {
		if err := validation.ValidateForm(fields, i.gates...); err != nil {
			var fe *validation.FieldError
			if !errors.As(err, &fe) {
				return i.done("form", OutcomeRejected, err)
			}
			i.logger.Info("form rejected by validation", "form", formID, "field", fe.Field)
			if _, aerr := i.prompts.Alert(ctx, fe.Message, ""); aerr != nil {
				i.logger.Debug("validation alert not acknowledged", "form", formID, "error", aerr)
			}
			return i.done("form", OutcomeRejected, nil)
		}
	}

	// An empty attribute on a form means no prompt.
	if ev.Confirm != nil && strings.TrimSpace(*ev.Confirm) != "" {
		ok, err := i.prompts.Confirm(ctx, strings.TrimSpace(*ev.Confirm), "")
		if err != nil {
			return i.done("form", OutcomeDeclined, fmt.Errorf("intercept: confirm form: %w", err))
		}
		if !ok {
			return i.done("form", OutcomeDeclined, nil)
		}
	}

	if err := i.sink.Send(dom.Submit(formID)); err != nil {
		return i.done("form", OutcomeReplayed, fmt.Errorf("intercept: submit %s: %w", formID, err))
	}
	return i.done("form", OutcomeReplayed, nil)
}

func (i *Interceptor) done(kind string, outcome Outcome, err error) (Outcome, error) {
	if i.obs != nil {
		i.obs.ObserveInterception(kind, string(outcome))
	}
	return outcome, err
}
