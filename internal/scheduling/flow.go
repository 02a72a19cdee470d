// Package scheduling drives the appointment booking page: calendar month
// navigation, date and slot selection, and the confirmation summary. Every
// accepted step ends in a full page form submission; the booking itself is
// done by the server that renders the page.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veris-salud/agenda-web/internal/dom"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

// Element ids rendered by the booking templates.
const (
	FieldSelectedDate   = "fechaSeleccionada"
	FieldSelectedSlot   = "horarioSeleccionado"
	FieldMonth          = "mesActual"
	FieldYear           = "anioActual"
	FormCalendar        = "formAgendar"
	FormConfirm         = "formConfirmar"
	ModalConfirm        = "modalConfirmarCita"
	ModalSpecialty      = "modalEspecialidad"
	ModalDoctor         = "modalMedico"
	ModalDate           = "modalFecha"
	ModalSlot           = "modalHorario"
	ButtonConfirm       = "btnConfirmar"
	ButtonConfirmModal  = "btnConfirmarModal"
	SelectSpecialty     = "idEspecialidad"
	SelectDoctor        = "idMedico"
	SlotButtonClass     = "agendar-horario-btn"
	SlotSelectedClass   = "seleccionado"
	missingSummaryValue = "-"
)

// Actions, named as the templates call them.
const (
	ActionChangeMonth        = "cambiarMes"
	ActionSelectDate         = "seleccionarFecha"
	ActionSelectSlot         = "seleccionarHorario"
	ActionShowConfirmation   = "mostrarModalConfirmacion"
	ActionConfirmAppointment = "confirmarCita"
)

// User messages.
const (
	MsgPastMonth    = "No se pueden agendar citas en fechas pasadas."
	MsgSlotRequired = "Por favor, seleccione un horario antes de confirmar la cita."
)

// MsgAfterMaxYear is the warning for navigating past the last bookable year.
func MsgAfterMaxYear(maxYear int) string {
	return fmt.Sprintf("No se pueden agendar citas posteriores al año %d.", maxYear)
}

// MsgAfterLastDay is the warning for picking a date after the last bookable day.
func MsgAfterLastDay(maxYear int) string {
	return fmt.Sprintf("No se pueden agendar citas posteriores al 31 de diciembre de %d.", maxYear)
}

var (
	ErrInvalidDate = errors.New("scheduling: invalid date")
	ErrInvalidSlot = errors.New("scheduling: invalid slot")
)

// Rejection is a refused user action. The message has already been shown
// to the user when a Flow returns it.
type Rejection struct {
	Action  string
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("scheduling: %s rejected: %s", r.Action, r.Message)
}

// State is the position of a page in the booking flow.
type State string

const (
	StateBrowsingCalendar    State = "browsing_calendar"
	StateDateSelected        State = "date_selected"
	StateSlotSelected        State = "slot_selected"
	StateConfirmationPending State = "confirmation_pending"
	StateSubmitted           State = "submitted"
)

// Draft is the summary shown in the confirmation modal.
type Draft struct {
	Specialty string `json:"specialty,omitempty"`
	Doctor    string `json:"doctor,omitempty"`
	Date      string `json:"date,omitempty"`
	Slot      string `json:"slot,omitempty"`
}

// Page is the flow state of one rendered booking page.
type Page struct {
	State        State  `json:"state"`
	Cursor       Cursor `json:"cursor"`
	SelectedDate string `json:"selected_date,omitempty"`
	Draft        Draft  `json:"draft"`
}

// PageFromFields rebuilds page state from the hidden fields the page was
// rendered with.
func PageFromFields(fields map[string]string, now time.Time) Page {
	p := Page{State: StateBrowsingCalendar, Cursor: CursorAt(now)}
	if c, err := ParseCursor(fields[FieldMonth], fields[FieldYear]); err == nil {
		p.Cursor = c
	}
	if d := strings.TrimSpace(fields[FieldSelectedDate]); d != "" {
		p.SelectedDate = d
		p.State = StateDateSelected
	}
	if s := strings.TrimSpace(fields[FieldSelectedSlot]); s != "" {
		p.Draft.Slot = s
		p.State = StateSlotSelected
	}
	return p
}

// Option is a <select> choice reported by the page. Index 0 is the
// placeholder.
type Option struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Selection is what the page reports when the summary is requested.
type Selection struct {
	Specialty Option `json:"specialty"`
	Doctor    Option `json:"doctor"`
	Date      string `json:"date"`
}

// SelectionFromArgs reads a Selection from action arguments.
func SelectionFromArgs(args map[string]string) Selection {
	idx := func(k string) int {
		n, _ := strconv.Atoi(args[k])
		return n
	}
	return Selection{
		Specialty: Option{Index: idx("specialtyIndex"), Label: args["specialty"]},
		Doctor:    Option{Index: idx("doctorIndex"), Label: args["doctor"]},
		Date:      args[FieldSelectedDate],
	}
}

// Alerter shows a warning and blocks until the user acknowledges it.
type Alerter interface {
	Alert(ctx context.Context, message, title string) (bool, error)
}

// Observer records refused actions.
type Observer interface {
	ObserveRejection(action string)
}

// Options tune a Flow.
type Options struct {
	MaxYear     int
	SlotMinutes int
	Location    *time.Location
	Now         func() time.Time
	Observer    Observer
	Logger      *logging.Logger
}

// Flow runs booking actions for one page. Methods are safe for concurrent
// use; state changes are applied under the page lock.
type Flow struct {
	mu   sync.Mutex
	page Page

	sink    dom.Sink
	alerter Alerter
	opts    Options
	tracer  trace.Tracer
	logger  *logging.Logger
}

// NewFlow builds a flow over page.
func NewFlow(page Page, sink dom.Sink, alerter Alerter, opts Options) *Flow {
	if opts.MaxYear == 0 {
		opts.MaxYear = MaxYear
	}
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = 30
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if page.State == "" {
		page.State = StateBrowsingCalendar
	}
	return &Flow{
		page:    page,
		sink:    sink,
		alerter: alerter,
		opts:    opts,
		tracer:  otel.Tracer("veris.internal.scheduling.flow"),
		logger:  logger,
	}
}

// Snapshot returns a copy of the current page state.
func (f *Flow) Snapshot() Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page
}

// ChangeMonth moves the calendar by delta months and reloads it. Months
// past MaxYear and months before the current one are refused.
func (f *Flow) ChangeMonth(ctx context.Context, delta int) error {
	ctx, span := f.tracer.Start(ctx, "scheduling.flow.change_month",
		trace.WithAttributes(attribute.Int("delta", delta)))
	defer span.End()

	f.mu.Lock()
	next := f.page.Cursor.Shift(delta)
	if next.Year > f.opts.MaxYear {
		f.mu.Unlock()
		return f.reject(ctx, span, ActionChangeMonth, MsgAfterMaxYear(f.opts.MaxYear))
	}
	if next.Before(CursorAt(f.now())) {
		f.mu.Unlock()
		return f.reject(ctx, span, ActionChangeMonth, MsgPastMonth)
	}
	f.page.Cursor = next
	f.page.State = StateBrowsingCalendar
	f.mu.Unlock()

	span.SetAttributes(attribute.String("cursor", next.String()))
	return f.send(span,
		dom.SetValue(FieldMonth, next.MonthValue()),
		dom.SetValue(FieldYear, next.YearValue()),
		dom.Submit(FormCalendar),
	)
}

// SelectDate stores date ("YYYY-MM-DD") and reloads the calendar with its
// slots. Dates after December 31 of MaxYear are refused.
func (f *Flow) SelectDate(ctx context.Context, date string) error {
	ctx, span := f.tracer.Start(ctx, "scheduling.flow.select_date",
		trace.WithAttributes(attribute.String("date", date)))
	defer span.End()

	date = strings.TrimSpace(date)
	day, err := time.ParseInLocation("2006-01-02", date, f.opts.Location)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if day.After(lastBookableDay(f.opts.MaxYear, f.opts.Location)) {
		return f.reject(ctx, span, ActionSelectDate, MsgAfterLastDay(f.opts.MaxYear))
	}

	f.mu.Lock()
	f.page.SelectedDate = date
	f.page.State = StateDateSelected
	f.mu.Unlock()

	return f.send(span,
		dom.SetValue(FieldSelectedDate, date),
		dom.Submit(FormCalendar),
	)
}

// SelectSlot marks buttonID as the only selected slot button, stores slot
// ("HH:MM") and enables the confirm button.
func (f *Flow) SelectSlot(ctx context.Context, buttonID, slot string) error {
	_, span := f.tracer.Start(ctx, "scheduling.flow.select_slot",
		trace.WithAttributes(attribute.String("slot", slot)))
	defer span.End()

	slot = strings.TrimSpace(slot)
	if EndTime(slot, 0) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}

	f.mu.Lock()
	f.page.Draft.Slot = slot
	f.page.State = StateSlotSelected
	f.mu.Unlock()

	cmds := []dom.Command{dom.RemoveClassAll("."+SlotButtonClass, SlotSelectedClass)}
	if buttonID != "" {
		cmds = append(cmds, dom.AddClass(buttonID, SlotSelectedClass))
	}
	cmds = append(cmds,
		dom.SetValue(FieldSelectedSlot, slot),
		dom.SetDisabled(ButtonConfirm, false),
	)
	return f.send(span, cmds...)
}

// ShowConfirmation fills the summary from sel and opens the confirmation
// modal. A slot must have been selected first.
func (f *Flow) ShowConfirmation(ctx context.Context, sel Selection) error {
	ctx, span := f.tracer.Start(ctx, "scheduling.flow.show_confirmation")
	defer span.End()

	f.mu.Lock()
	d := &f.page.Draft
	if sel.Specialty.Index > 0 {
		d.Specialty = sel.Specialty.Label
	}
	if sel.Doctor.Index > 0 {
		d.Doctor = sel.Doctor.Label
	}
	date := strings.TrimSpace(sel.Date)
	if date == "" {
		date = f.page.SelectedDate
	}
	if date != "" {
		d.Date = FormatDateLong(date)
	}
	if d.Slot == "" {
		f.mu.Unlock()
		return f.reject(ctx, span, ActionShowConfirmation, MsgSlotRequired)
	}
	draft := *d
	f.page.State = StateConfirmationPending
	f.mu.Unlock()

	return f.send(span,
		dom.SetText(ModalSpecialty, orMissing(draft.Specialty)),
		dom.SetText(ModalDoctor, orMissing(draft.Doctor)),
		dom.SetText(ModalDate, orMissing(draft.Date)),
		dom.SetText(ModalSlot, SlotRange(draft.Slot, f.opts.SlotMinutes)),
		dom.ModalShow(ModalConfirm),
	)
}

// ConfirmAppointment closes the summary and submits the confirmation form.
func (f *Flow) ConfirmAppointment(ctx context.Context) error {
	_, span := f.tracer.Start(ctx, "scheduling.flow.confirm_appointment")
	defer span.End()

	f.mu.Lock()
	f.page.State = StateSubmitted
	f.mu.Unlock()

	return f.send(span,
		dom.ModalHide(ModalConfirm),
		dom.Submit(FormConfirm),
	)
}

func (f *Flow) now() time.Time {
	return f.opts.Now().In(f.opts.Location)
}

func (f *Flow) send(span trace.Span, cmds ...dom.Command) error {
	if err := f.sink.Send(cmds...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("scheduling: send commands: %w", err)
	}
	return nil
}

// reject warns the user and returns the rejection. Page state is left as is.
func (f *Flow) reject(ctx context.Context, span trace.Span, action, message string) error {
	span.SetAttributes(attribute.Bool("rejected", true))
	f.logger.Info("booking action rejected", "action", action, "reason", message)
	if f.opts.Observer != nil {
		f.opts.Observer.ObserveRejection(action)
	}
	if f.alerter != nil {
		if _, err := f.alerter.Alert(ctx, message, ""); err != nil {
			f.logger.Debug("rejection alert not acknowledged", "action", action, "error", err)
		}
	}
	return &Rejection{Action: action, Message: message}
}

func orMissing(v string) string {
	if v == "" {
		return missingSummaryValue
	}
	return v
}
