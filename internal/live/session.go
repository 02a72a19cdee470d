package live

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veris-salud/agenda-web/internal/dialog"
	"github.com/veris-salud/agenda-web/internal/dom"
	"github.com/veris-salud/agenda-web/internal/flash"
	"github.com/veris-salud/agenda-web/internal/intercept"
	"github.com/veris-salud/agenda-web/internal/observability/metrics"
	"github.com/veris-salud/agenda-web/internal/pagetoken"
	"github.com/veris-salud/agenda-web/internal/scheduling"
	"github.com/veris-salud/agenda-web/internal/validation"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

var (
	ErrHelloRequired = errors.New("live: first frame must be hello")
	ErrSessionClosed = errors.New("live: session closed")
)

// Settings are the per-page behaviour knobs.
type Settings struct {
	DialogBackend string
	Flash         flash.Config
	MaxYear       int
	SlotMinutes   int
	Location      *time.Location
}

// Deps are shared by every session of a handler.
type Deps struct {
	Settings Settings
	Signer   *pagetoken.Signer
	Store    scheduling.StateStore
	Limiter  Limiter
	Metrics  *metrics.PageMetrics
	Logger   *logging.Logger
	Now      func() time.Time
}

// Limiter throttles field events per page.
type Limiter interface {
	Allow(key string) bool
	Forget(key string)
}

// eventQueueSize bounds the actions waiting behind a running one.
const eventQueueSize = 32

// job is a queued page event that may wait on a dialog.
type job struct {
	name string
	fn   func(ctx context.Context) error
}

// writeFunc delivers one frame to the page.
type writeFunc func(Frame) error

// Session is the runtime for one connected page. Handle is called from a
// single reader goroutine. Clicks, submits and actions go to one worker in
// arrival order; the reader keeps delivering dialog events while the worker
// waits on a dialog.
type Session struct {
	id      string
	role    string
	backend string
	deps    Deps
	logger  *logging.Logger
	started time.Time

	writeMu sync.Mutex
	write   writeFunc
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	jobs   chan job

	events      *dialog.Dispatcher
	dialogs     dialog.Backend
	housekeeper *flash.Housekeeper
	flow        *scheduling.Flow
	interceptor *intercept.Interceptor
	fields      *fieldState
}

// identify resolves the page id, role and gates for a hello frame.
func identify(signer *pagetoken.Signer, h Hello) (pageID, role string, gates []string, err error) {
	if signer != nil {
		claims, err := signer.Verify(h.Token)
		if err != nil {
			return "", "", nil, err
		}
		return claims.PageID(), claims.Role, claims.Gates, nil
	}
	pageID = strings.TrimSpace(h.PageID)
	if pageID == "" {
		pageID = uuid.NewString()
	}
	return pageID, strings.TrimSpace(h.Role), h.Gates, nil
}

func parseGates(raw []string) []validation.Gate {
	var gates []validation.Gate
	for _, g := range raw {
		switch gate := validation.Gate(strings.ToLower(strings.TrimSpace(g))); gate {
		case validation.GatePatient, validation.GateDoctor:
			gates = append(gates, gate)
		}
	}
	return gates
}

// openSession builds the runtime for a page from its hello frame and sends
// the initial commands.
func openSession(ctx context.Context, deps Deps, h Hello, write writeFunc) (*Session, error) {
	if h.Type != dom.EventHello {
		return nil, ErrHelloRequired
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Settings.Location == nil {
		deps.Settings.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}

	pageID, role, rawGates, err := identify(deps.Signer, h)
	if err != nil {
		return nil, err
	}
	gates := parseGates(rawGates)

	s := &Session{
		id:      pageID,
		role:    role,
		deps:    deps,
		logger:  deps.Logger.WithPage(pageID, role),
		started: deps.Now(),
		write:   write,
		events:  dialog.NewDispatcher(),
		fields:  newFieldState(h.Fields, gates),
		jobs:    make(chan job, eventQueueSize),
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	backend, err := dialog.Select(h.Capabilities, deps.Settings.DialogBackend, s, s.events)
	if err != nil {
		s.cancel()
		return nil, err
	}
	s.backend = backend.Name()
	s.dialogs = dialog.Instrument(backend, deps.Metrics)

	page := scheduling.PageFromFields(h.Fields, deps.Now().In(deps.Settings.Location))
	if deps.Store != nil {
		snap, err := deps.Store.Load(s.ctx, pageID)
		switch {
		case err == nil && sameRender(snap, page):
			page = snap
			s.logger.Debug("page state resumed", "state", snap.State)
		case err == nil:
			s.logger.Debug("stale page state ignored", "state", snap.State, "cursor", snap.Cursor.String())
		case !errors.Is(err, scheduling.ErrSnapshotNotFound):
			s.logger.Warn("page state load failed", "error", err)
		}
	}
	s.flow = scheduling.NewFlow(page, s, s.dialogs, scheduling.Options{
		MaxYear:     deps.Settings.MaxYear,
		SlotMinutes: deps.Settings.SlotMinutes,
		Location:    deps.Settings.Location,
		Now:         deps.Now,
		Observer:    deps.Metrics,
		Logger:      s.logger,
	})
	s.interceptor = intercept.New(s.dialogs, s,
		intercept.WithGates(gates...),
		intercept.WithBooking(s.flow),
		intercept.WithObserver(deps.Metrics),
		intercept.WithLogger(s.logger),
	)
	s.housekeeper = flash.NewHousekeeper(deps.Settings.Flash, s, s.dialogs, s.logger)

	if err := s.writeFrame(Frame{Type: FrameSession, PageID: pageID, Backend: s.backend}); err != nil {
		s.cancel()
		return nil, err
	}
	if cmds := s.fields.initial(); len(cmds) > 0 {
		if err := s.Send(cmds...); err != nil {
			s.cancel()
			return nil, err
		}
	}
	s.housekeeper.Start(s.ctx, role, h.Flashes)
	s.wg.Add(1)
	go s.work()
	deps.Metrics.SessionOpened()
	s.logger.Info("page session opened", "backend", s.backend, "gates", rawGates)
	return s, nil
}

// ID returns the page id.
func (s *Session) ID() string { return s.id }

// Send implements dom.Sink.
func (s *Session) Send(cmds ...dom.Command) error {
	if len(cmds) == 0 {
		return nil
	}
	return s.writeFrame(Frame{Type: FrameCommands, Commands: cmds})
}

func (s *Session) writeFrame(f Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.write(f); err != nil {
		return fmt.Errorf("live: write %s frame: %w", f.Type, err)
	}
	return nil
}

// Handle processes one event from the page.
func (s *Session) Handle(ev dom.Event) {
	s.deps.Metrics.ObserveEvent(ev.Type)
	switch ev.Type {
	case dom.EventPing:
		_ = s.writeFrame(Frame{Type: FramePong})
	case dom.EventDialog:
		s.events.Dispatch(ev)
	case dom.EventInput, dom.EventBlur, dom.EventFocus:
		// Only keystroke traffic is throttled; clicks and submits were
		// already held back by the page and must get an answer.
		if s.deps.Limiter != nil && !s.deps.Limiter.Allow(s.id) {
			s.logger.Warn("page event dropped by rate limit", "type", ev.Type)
			return
		}
		if cmd, ok := s.fields.handle(ev); ok {
			if err := s.Send(cmd); err != nil {
				s.logger.Debug("field update not delivered", "field", ev.Target, "error", err)
			}
		}
	case dom.EventClick:
		s.enqueue("click", func(ctx context.Context) error {
			_, err := s.interceptor.HandleClick(ctx, ev)
			return err
		})
	case dom.EventSubmit:
		s.fields.merge(ev.Fields)
		s.enqueue("submit", func(ctx context.Context) error {
			_, err := s.interceptor.HandleSubmit(ctx, ev)
			return err
		})
	case dom.EventAction:
		s.enqueue(ev.Name, func(ctx context.Context) error {
			return s.runAction(ctx, ev)
		})
	default:
		s.logger.Debug("unknown page event", "type", ev.Type)
	}
}

// enqueue hands fn to the session worker.
func (s *Session) enqueue(name string, fn func(ctx context.Context) error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.jobs <- job{name: name, fn: fn}:
	default:
		s.logger.Warn("page event queue full; event dropped", "action", name)
	}
}

// work runs queued events one at a time and persists the flow state after
// each.
func (s *Session) work() {
	defer s.wg.Done()
	for j := range s.jobs {
		if s.ctx.Err() != nil {
			continue
		}
		err := j.fn(s.ctx)
		var rej *scheduling.Rejection
		switch {
		case err == nil, errors.As(err, &rej):
		case errors.Is(err, context.Canceled), errors.Is(err, ErrSessionClosed):
			s.logger.Debug("page action abandoned", "action", j.name, "error", err)
		default:
			s.logger.Warn("page action failed", "action", j.name, "error", err)
		}
		s.persist()
	}
}

func (s *Session) runAction(ctx context.Context, ev dom.Event) error {
	switch ev.Name {
	case scheduling.ActionChangeMonth:
		delta, err := strconv.Atoi(strings.TrimSpace(firstNonEmpty(ev.Args["delta"], ev.Value)))
		if err != nil {
			return fmt.Errorf("live: %s: bad delta: %w", ev.Name, err)
		}
		return s.flow.ChangeMonth(ctx, delta)
	case scheduling.ActionSelectDate:
		return s.flow.SelectDate(ctx, firstNonEmpty(ev.Args["fecha"], ev.Value))
	case scheduling.ActionSelectSlot:
		return s.flow.SelectSlot(ctx, ev.Target, firstNonEmpty(ev.Args["hora"], ev.Value))
	case scheduling.ActionShowConfirmation:
		return s.flow.ShowConfirmation(ctx, scheduling.SelectionFromArgs(ev.Args))
	case scheduling.ActionConfirmAppointment:
		return s.flow.ConfirmAppointment(ctx)
	default:
		return fmt.Errorf("live: unknown action %q", ev.Name)
	}
}

func (s *Session) persist() {
	// A closed session may have been replaced; its state is no longer current.
	if s.deps.Store == nil || s.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.deps.Store.Save(ctx, s.id, s.flow.Snapshot()); err != nil {
		s.logger.Warn("page state save failed", "error", err)
	}
}

// Close stops timers, abandons pending dialogs and waits for running
// actions. It is safe to call more than once.
func (s *Session) Close() {
	s.writeMu.Lock()
	if s.closed {
		s.writeMu.Unlock()
		return
	}
	s.closed = true
	close(s.jobs)
	s.writeMu.Unlock()

	s.cancel()
	s.housekeeper.Stop()
	s.wg.Wait()
	if s.deps.Limiter != nil {
		s.deps.Limiter.Forget(s.id)
	}
	s.deps.Metrics.SessionClosed(s.deps.Now().Sub(s.started).Seconds())
	s.logger.Info("page session closed", "state", s.flow.Snapshot().State)
}

// sameRender reports whether a stored snapshot belongs to the page as it was
// just rendered. A new render after a calendar or date submit carries a
// different cursor or date, and its hidden fields win.
func sameRender(snap, rendered scheduling.Page) bool {
	if snap.Cursor != rendered.Cursor {
		return false
	}
	if rendered.SelectedDate != "" && rendered.SelectedDate != snap.SelectedDate {
		return false
	}
	if rendered.Draft.Slot != "" && rendered.Draft.Slot != snap.Draft.Slot {
		return false
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
