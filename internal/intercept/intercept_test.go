package intercept

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veris-salud/agenda-web/internal/dom"
	"github.com/veris-salud/agenda-web/internal/scheduling"
	"github.com/veris-salud/agenda-web/internal/validation"
)

type scriptedPrompter struct {
	mu       sync.Mutex
	answer   bool
	err      error
	confirms []string
	alerts   []string
}

func (p *scriptedPrompter) Alert(_ context.Context, message, _ string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, message)
	return true, nil
}

func (p *scriptedPrompter) Confirm(_ context.Context, message, _ string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirms = append(p.confirms, message)
	return p.answer, p.err
}

type fakeBooking struct {
	calls []scheduling.Selection
	err   error
}

func (b *fakeBooking) ShowConfirmation(_ context.Context, sel scheduling.Selection) error {
	b.calls = append(b.calls, sel)
	return b.err
}

type outcomeLog struct{ seen []string }

func (o *outcomeLog) ObserveInterception(kind, outcome string) {
	o.seen = append(o.seen, kind+":"+outcome)
}

func ptr(s string) *string { return &s }

func TestHandleClick(t *testing.T) {
	tests := []struct {
		name       string
		confirm    *string
		href       string
		answer     bool
		wantPrompt string
		want       Outcome
		wantNav    bool
	}{
		{"accepted navigates", ptr("¿Eliminar cita?"), "/citas/eliminar/4", true, "¿Eliminar cita?", OutcomeReplayed, true},
		{"declined stays", ptr("¿Eliminar cita?"), "/citas/eliminar/4", false, "¿Eliminar cita?", OutcomeDeclined, false},
		{"empty attribute uses default prompt", ptr(""), "/logout", true, DefaultPrompt, OutcomeReplayed, true},
		{"accepted without href does nothing", ptr("¿Seguro?"), "", true, "¿Seguro?", OutcomeIgnored, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := dom.NewRecorder()
			p := &scriptedPrompter{answer: tt.answer}
			i := New(p, rec)

			got, err := i.HandleClick(context.Background(), dom.Event{Type: dom.EventClick, Href: tt.href, Confirm: tt.confirm})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{tt.wantPrompt}, p.confirms)
			assert.Equal(t, tt.wantNav, rec.Has(dom.Navigate(tt.href)))
		})
	}
}

func TestHandleClickWithoutAttributeIsIgnored(t *testing.T) {
	p := &scriptedPrompter{answer: true}
	i := New(p, dom.NewRecorder())

	got, err := i.HandleClick(context.Background(), dom.Event{Href: "/x"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, got)
	assert.Empty(t, p.confirms)
}

func TestHandleClickConfirmError(t *testing.T) {
	rec := dom.NewRecorder()
	p := &scriptedPrompter{err: context.Canceled}
	i := New(p, rec)

	got, err := i.HandleClick(context.Background(), dom.Event{Href: "/x", Confirm: ptr("?")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeDeclined, got)
	assert.Empty(t, rec.Commands())
}

func TestHandleSubmitConfirm(t *testing.T) {
	t.Run("accepted submits", func(t *testing.T) {
		rec := dom.NewRecorder()
		p := &scriptedPrompter{answer: true}
		got, err := New(p, rec).HandleSubmit(context.Background(), dom.Event{Type: dom.EventSubmit, Target: "formEliminar", Confirm: ptr("¿Eliminar?")})
		require.NoError(t, err)
		assert.Equal(t, OutcomeReplayed, got)
		assert.Equal(t, []dom.Command{dom.Submit("formEliminar")}, rec.Commands())
	})

	t.Run("declined does not submit", func(t *testing.T) {
		rec := dom.NewRecorder()
		p := &scriptedPrompter{answer: false}
		got, err := New(p, rec).HandleSubmit(context.Background(), dom.Event{Target: "formEliminar", Confirm: ptr("¿Eliminar?")})
		require.NoError(t, err)
		assert.Equal(t, OutcomeDeclined, got)
		assert.Empty(t, rec.Commands())
	})

	t.Run("empty attribute submits without prompt", func(t *testing.T) {
		rec := dom.NewRecorder()
		p := &scriptedPrompter{}
		got, err := New(p, rec).HandleSubmit(context.Background(), dom.Event{Target: "f", Confirm: ptr("  ")})
		require.NoError(t, err)
		assert.Equal(t, OutcomeReplayed, got)
		assert.Empty(t, p.confirms)
	})

	t.Run("missing form id", func(t *testing.T) {
		_, err := New(&scriptedPrompter{}, dom.NewRecorder()).HandleSubmit(context.Background(), dom.Event{})
		assert.ErrorIs(t, err, ErrFormIDRequired)
	})
}

func TestHandleSubmitRunsValidationGatesFirst(t *testing.T) {
	rec := dom.NewRecorder()
	p := &scriptedPrompter{answer: true}
	obs := &outcomeLog{}
	i := New(p, rec, WithGates(validation.GatePatient), WithObserver(obs))

	got, err := i.HandleSubmit(context.Background(), dom.Event{
		Target:  "formRegistro",
		Confirm: ptr("¿Registrar?"),
		Fields: map[string]string{
			validation.FieldRole:        validation.RolePatient,
			validation.FieldProfileName: "Ana Pérez",
			validation.FieldCedula:      "1710034066",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, got)
	assert.Equal(t, []string{validation.MsgCedula}, p.alerts)
	assert.Empty(t, p.confirms)
	assert.Empty(t, rec.Commands())
	assert.Equal(t, []string{"form:rejected"}, obs.seen)
}

func TestHandleSubmitValidFormIsReplayed(t *testing.T) {
	rec := dom.NewRecorder()
	p := &scriptedPrompter{answer: true}
	i := New(p, rec, WithGates(validation.GatePatient, validation.GateDoctor))

	got, err := i.HandleSubmit(context.Background(), dom.Event{
		Target: "formRegistro",
		Fields: map[string]string{
			validation.FieldRole:        validation.RolePatient,
			validation.FieldProfileName: "Ana Pérez",
			validation.FieldCedula:      "1710034065",
			validation.FieldAge:         "34",
			validation.FieldGender:      "Femenino",
			validation.FieldHeight:      "",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, got)
	assert.Equal(t, []dom.Command{dom.Submit("formRegistro")}, rec.Commands())
	assert.Empty(t, p.alerts)
}

func TestHandleSubmitWithoutGatesSkipsValidation(t *testing.T) {
	rec := dom.NewRecorder()
	i := New(&scriptedPrompter{}, rec)

	got, err := i.HandleSubmit(context.Background(), dom.Event{
		Target: "formBuscar",
		Fields: map[string]string{validation.FieldCedula: "123"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, got)
}

func TestHandleSubmitReroutesConfirmationForm(t *testing.T) {
	rec := dom.NewRecorder()
	booking := &fakeBooking{}
	i := New(&scriptedPrompter{}, rec, WithBooking(booking))

	got, err := i.HandleSubmit(context.Background(), dom.Event{
		Target: scheduling.FormConfirm,
		Args:   map[string]string{"specialtyIndex": "1", "specialty": "Dermatología"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRerouted, got)
	require.Len(t, booking.calls, 1)
	assert.Equal(t, "Dermatología", booking.calls[0].Specialty.Label)
	assert.Empty(t, rec.Commands())

	booking.err = &scheduling.Rejection{Action: scheduling.ActionShowConfirmation, Message: scheduling.MsgSlotRequired}
	got, err = i.HandleSubmit(context.Background(), dom.Event{Target: scheduling.FormConfirm})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, got)

	booking.err = errors.New("socket closed")
	_, err = i.HandleSubmit(context.Background(), dom.Event{Target: scheduling.FormConfirm})
	assert.Error(t, err)
}
