package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veris-salud/agenda-web/internal/dialog"
	"github.com/veris-salud/agenda-web/internal/dom"
	"github.com/veris-salud/agenda-web/internal/flash"
	"github.com/veris-salud/agenda-web/internal/http/middleware"
	"github.com/veris-salud/agenda-web/internal/pagetoken"
	"github.com/veris-salud/agenda-web/internal/scheduling"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

type frameLog struct {
	mu     sync.Mutex
	frames []Frame
}

func (l *frameLog) write(f Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, f)
	return nil
}

func (l *frameLog) Frames() []Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Frame(nil), l.frames...)
}

func (l *frameLog) Commands() []dom.Command {
	var out []dom.Command
	for _, f := range l.Frames() {
		out = append(out, f.Commands...)
	}
	return out
}

func (l *frameLog) Has(cmd dom.Command) bool {
	for _, c := range l.Commands() {
		if c == cmd {
			return true
		}
	}
	return false
}

func (l *frameLog) waitFor(t *testing.T, cmd dom.Command) {
	t.Helper()
	require.Eventually(t, func() bool { return l.Has(cmd) }, time.Second, 2*time.Millisecond, "command %+v never sent", cmd)
}

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func testDeps() Deps {
	return Deps{
		Settings: Settings{
			Flash: flash.Config{
				VisibleFor:     time.Hour,
				FadeDuration:   500 * time.Millisecond,
				RemoveAfter:    600 * time.Millisecond,
				PrivilegedRole: "1",
			},
			MaxYear:     2030,
			SlotMinutes: 30,
		},
		Logger: logging.New("error"),
		Now:    func() time.Time { return testNow },
	}
}

func modalHello() Hello {
	return Hello{
		Type:         dom.EventHello,
		PageID:       "page-1",
		Role:         "3",
		Capabilities: dialog.Capabilities{BootstrapModal: true},
		Fields: map[string]string{
			scheduling.FieldMonth: "3",
			scheduling.FieldYear:  "2025",
		},
	}
}

func open(t *testing.T, deps Deps, h Hello) (*Session, *frameLog) {
	t.Helper()
	log := &frameLog{}
	s, err := openSession(context.Background(), deps, h, log.write)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, log
}

func clickOK(s *Session) {
	s.Handle(dom.Event{Type: dom.EventDialog, Name: dialog.EventClick, Target: dialog.ModalOKID})
}

func TestOpenSessionRequiresHello(t *testing.T) {
	_, err := openSession(context.Background(), testDeps(), Hello{Type: "input"}, (&frameLog{}).write)
	assert.ErrorIs(t, err, ErrHelloRequired)
}

func TestOpenSessionAnnouncesBackend(t *testing.T) {
	s, log := open(t, testDeps(), modalHello())

	frames := log.Frames()
	require.NotEmpty(t, frames)
	assert.Equal(t, Frame{Type: FrameSession, PageID: "page-1", Backend: dialog.BackendModal}, frames[0])
	assert.Equal(t, "page-1", s.ID())

	h := modalHello()
	h.Capabilities = dialog.Capabilities{}
	_, log = open(t, testDeps(), h)
	assert.Equal(t, dialog.BackendNative, log.Frames()[0].Backend)
}

func TestPing(t *testing.T) {
	s, log := open(t, testDeps(), modalHello())
	s.Handle(dom.Event{Type: dom.EventPing})

	frames := log.Frames()
	assert.Equal(t, FramePong, frames[len(frames)-1].Type)
}

func TestPrivilegedRoleBannersBecomeAlert(t *testing.T) {
	h := modalHello()
	h.Role = "1"
	h.Flashes = []flash.Element{
		{ID: "f1", Classes: []string{"alert", "alert-danger"}, Text: " No tiene permiso "},
		{ID: "f2", Classes: []string{"alert", "alert-warning"}, Text: "Otro"},
	}
	s, log := open(t, testDeps(), h)

	assert.True(t, log.Has(dom.Remove("f1")))
	assert.True(t, log.Has(dom.Remove("f2")))
	log.waitFor(t, dom.SetText(dialog.ModalBodyID, "No tiene permiso"))
	assert.True(t, log.Has(dom.SetText(dialog.ModalTitleID, flash.BlockingTitle)))

	clickOK(s)
	log.waitFor(t, dom.ModalHide(dialog.ModalID))
	require.Eventually(t, func() bool { return s.events.Len() == 0 }, time.Second, 2*time.Millisecond)
}

func TestChangeMonthRejectedShowsWarning(t *testing.T) {
	h := modalHello()
	h.Fields[scheduling.FieldMonth] = "12"
	h.Fields[scheduling.FieldYear] = "2030"
	s, log := open(t, testDeps(), h)

	s.Handle(dom.Event{Type: dom.EventAction, Name: scheduling.ActionChangeMonth, Args: map[string]string{"delta": "1"}})
	log.waitFor(t, dom.SetText(dialog.ModalBodyID, scheduling.MsgAfterMaxYear(2030)))
	assert.False(t, log.Has(dom.Submit(scheduling.FormCalendar)))

	clickOK(s)
	require.Eventually(t, func() bool { return s.events.Len() == 0 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, scheduling.Cursor{Month: 12, Year: 2030}, s.flow.Snapshot().Cursor)
}

func TestBookingActions(t *testing.T) {
	s, log := open(t, testDeps(), modalHello())

	s.Handle(dom.Event{Type: dom.EventAction, Name: scheduling.ActionChangeMonth, Value: "1"})
	log.waitFor(t, dom.SetValue(scheduling.FieldMonth, "4"))
	log.waitFor(t, dom.Submit(scheduling.FormCalendar))

	s.Handle(dom.Event{Type: dom.EventAction, Name: scheduling.ActionSelectDate, Args: map[string]string{"fecha": "2025-06-15"}})
	log.waitFor(t, dom.SetValue(scheduling.FieldSelectedDate, "2025-06-15"))

	s.Handle(dom.Event{Type: dom.EventAction, Name: scheduling.ActionSelectSlot, Target: "slot-1", Args: map[string]string{"hora": "09:15"}})
	log.waitFor(t, dom.SetDisabled(scheduling.ButtonConfirm, false))
	log.waitFor(t, dom.AddClass("slot-1", scheduling.SlotSelectedClass))

	s.Handle(dom.Event{Type: dom.EventSubmit, Target: scheduling.FormConfirm, Args: map[string]string{
		"specialtyIndex": "1", "specialty": "Cardiología",
		"doctorIndex": "2", "doctor": "Dr/a. Ana Pérez",
	}})
	log.waitFor(t, dom.SetText(scheduling.ModalSlot, "09:15 - 09:45"))
	log.waitFor(t, dom.SetText(scheduling.ModalDate, "15 de junio de 2025"))
	log.waitFor(t, dom.ModalShow(scheduling.ModalConfirm))

	s.Handle(dom.Event{Type: dom.EventAction, Name: scheduling.ActionConfirmAppointment})
	log.waitFor(t, dom.Submit(scheduling.FormConfirm))
	require.Eventually(t, func() bool {
		return s.flow.Snapshot().State == scheduling.StateSubmitted
	}, time.Second, 2*time.Millisecond)
}

func TestConfirmedFormIsSubmitted(t *testing.T) {
	s, log := open(t, testDeps(), modalHello())

	s.Handle(dom.Event{Type: dom.EventSubmit, Target: "formCancelar", Confirm: ptr("¿Cancelar la cita?")})
	log.waitFor(t, dom.SetText(dialog.ModalBodyID, "¿Cancelar la cita?"))
	assert.False(t, log.Has(dom.Submit("formCancelar")))

	clickOK(s)
	log.waitFor(t, dom.Submit("formCancelar"))
}

func TestDeclinedLinkDoesNotNavigate(t *testing.T) {
	s, log := open(t, testDeps(), modalHello())

	s.Handle(dom.Event{Type: dom.EventClick, Href: "/logout", Confirm: ptr("")})
	log.waitFor(t, dom.SetText(dialog.ModalBodyID, "¿Desea continuar?"))

	s.Handle(dom.Event{Type: dom.EventDialog, Name: dialog.EventClick, Target: dialog.ModalCancelID})
	require.Eventually(t, func() bool { return s.events.Len() == 0 }, time.Second, 2*time.Millisecond)
	assert.False(t, log.Has(dom.Navigate("/logout")))
}

func TestValidationGateOnSubmit(t *testing.T) {
	h := modalHello()
	h.Gates = []string{"paciente"}
	s, log := open(t, testDeps(), h)

	s.Handle(dom.Event{Type: dom.EventSubmit, Target: "formPerfil", Fields: map[string]string{
		"NombrePerfil": "Ana",
		"Cedula":       "1710034065",
	}})
	log.waitFor(t, dom.SetText(dialog.ModalBodyID, "Nombre inválido. Debe ser solo letras y con formato: Nombre Apellido"))
	assert.False(t, log.Has(dom.Submit("formPerfil")))
}

func TestCloseAbandonsPendingDialog(t *testing.T) {
	log := &frameLog{}
	s, err := openSession(context.Background(), testDeps(), modalHello(), log.write)
	require.NoError(t, err)

	s.Handle(dom.Event{Type: dom.EventClick, Href: "/x", Confirm: ptr("¿Seguro?")})
	log.waitFor(t, dom.ModalShow(dialog.ModalID))

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, 0, s.events.Len())
	assert.ErrorIs(t, s.Send(dom.Remove("x")), ErrSessionClosed)
	s.Close()
}

func TestSignedHello(t *testing.T) {
	signer := pagetoken.NewSigner("secret", time.Hour)
	deps := testDeps()
	deps.Signer = signer

	h := modalHello()
	h.PageID = "forged"
	_, err := openSession(context.Background(), deps, h, (&frameLog{}).write)
	assert.ErrorIs(t, err, pagetoken.ErrInvalidToken)

	tok, err := signer.Issue("page-signed", "1", "medico")
	require.NoError(t, err)
	h.Token = tok
	s, log := open(t, deps, h)
	assert.Equal(t, "page-signed", s.ID())
	assert.Equal(t, "1", s.role)
	assert.Equal(t, "page-signed", log.Frames()[0].PageID)
}

func TestSessionResumesFromStore(t *testing.T) {
	deps := testDeps()
	deps.Store = scheduling.NewMemoryStateStore(time.Minute)

	s, log := open(t, deps, modalHello())
	s.Handle(dom.Event{Type: dom.EventAction, Name: scheduling.ActionSelectSlot, Target: "b", Value: "10:30"})
	log.waitFor(t, dom.SetValue(scheduling.FieldSelectedSlot, "10:30"))
	require.Eventually(t, func() bool {
		p, err := deps.Store.Load(context.Background(), "page-1")
		return err == nil && p.Draft.Slot == "10:30"
	}, time.Second, 2*time.Millisecond)
	s.Close()

	resumed, _ := open(t, deps, modalHello())
	assert.Equal(t, scheduling.StateSlotSelected, resumed.flow.Snapshot().State)
	assert.Equal(t, "10:30", resumed.flow.Snapshot().Draft.Slot)
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }
func (denyAll) Forget(string)     {}

type forgetLog struct {
	denyAll
	mu     sync.Mutex
	forgot []string
}

func (f *forgetLog) Forget(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgot = append(f.forgot, key)
}

func TestRateLimitedEventsAreDropped(t *testing.T) {
	deps := testDeps()
	deps.Limiter = denyAll{}
	h := modalHello()
	h.Gates = []string{"paciente"}
	s, log := open(t, deps, h)
	before := len(log.Frames())

	s.Handle(dom.Event{Type: dom.EventInput, Target: "NombrePerfil", Value: "ana  "})
	s.Handle(dom.Event{Type: dom.EventPing})

	time.Sleep(20 * time.Millisecond)
	frames := log.Frames()
	require.Len(t, frames, before+1)
	assert.Equal(t, FramePong, frames[before].Type)
}

func TestHeldBackEventsSkipTheRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(5, 20)
	t.Cleanup(limiter.Stop)
	deps := testDeps()
	deps.Limiter = limiter
	h := modalHello()
	h.Gates = []string{"paciente"}
	s, log := open(t, deps, h)

	for i := 0; i < 23; i++ {
		s.Handle(dom.Event{Type: dom.EventInput, Target: "NombrePerfil", Value: "ana pérez"})
	}
	s.Handle(dom.Event{Type: dom.EventSubmit, Target: "formPerfil", Fields: map[string]string{
		"NombrePerfil": "Ana Pérez",
		"Cedula":       "1710034065",
	}})
	log.waitFor(t, dom.Submit("formPerfil"))
}

func TestCloseForgetsRateLimitBucket(t *testing.T) {
	limiter := &forgetLog{}
	deps := testDeps()
	deps.Limiter = limiter
	s, err := openSession(context.Background(), deps, modalHello(), (&frameLog{}).write)
	require.NoError(t, err)

	s.Close()
	assert.Equal(t, []string{"page-1"}, limiter.forgot)
}

func TestActionsRunInArrivalOrder(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, log := open(t, testDeps(), modalHello())

		s.Handle(dom.Event{Type: dom.EventAction, Name: scheduling.ActionSelectSlot, Target: "slot-1", Args: map[string]string{"hora": "09:15"}})
		s.Handle(dom.Event{Type: dom.EventAction, Name: scheduling.ActionShowConfirmation})

		log.waitFor(t, dom.SetText(scheduling.ModalSlot, "09:15 - 09:45"))
		assert.False(t, log.Has(dom.SetText(dialog.ModalBodyID, scheduling.MsgSlotRequired)))
		s.Close()
	}
}

func TestStaleSnapshotIgnoredForNewRender(t *testing.T) {
	deps := testDeps()
	deps.Store = scheduling.NewMemoryStateStore(time.Minute)
	require.NoError(t, deps.Store.Save(context.Background(), "page-1", scheduling.Page{
		State:  scheduling.StateSlotSelected,
		Cursor: scheduling.Cursor{Month: 3, Year: 2025},
		Draft:  scheduling.Draft{Slot: "10:30"},
	}))

	h := modalHello()
	h.Fields[scheduling.FieldMonth] = "4"
	s, _ := open(t, deps, h)

	page := s.flow.Snapshot()
	assert.Equal(t, scheduling.StateBrowsingCalendar, page.State)
	assert.Equal(t, scheduling.Cursor{Month: 4, Year: 2025}, page.Cursor)
	assert.Empty(t, page.Draft.Slot)
}

type failingWriter struct{}

func (failingWriter) write(Frame) error { return errors.New("broken pipe") }

func TestOpenSessionWriteFailure(t *testing.T) {
	_, err := openSession(context.Background(), testDeps(), modalHello(), failingWriter{}.write)
	assert.Error(t, err)
}

func ptr(s string) *string { return &s }
