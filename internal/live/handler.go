// Package live serves the page runtime: each rendered page opens a socket,
// says hello with what it contains, forwards user events and applies the DOM
// commands it gets back.
package live

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/veris-salud/agenda-web/internal/config"
	"github.com/veris-salud/agenda-web/internal/dom"
	"github.com/veris-salud/agenda-web/internal/flash"
	"github.com/veris-salud/agenda-web/internal/http/middleware"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

//go:embed shim.js
var shimJS []byte

const (
	helloTimeout    = 10 * time.Second
	maxPayloadBytes = 64 << 10
)

// SettingsFromConfig maps service configuration onto page settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		DialogBackend: cfg.DialogBackend,
		Flash: flash.Config{
			VisibleFor:     cfg.FlashVisibleFor,
			FadeDuration:   cfg.FlashFadeDuration,
			RemoveAfter:    cfg.FlashRemoveAfter,
			PrivilegedRole: cfg.PrivilegedRole,
		},
		MaxYear:     cfg.BookingMaxYear,
		SlotMinutes: cfg.SlotMinutes,
		Location:    cfg.Location(),
	}
}

// Handler manages page runtime connections.
type Handler struct {
	deps    Deps
	origins middleware.OriginPolicy
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Session // page id -> live session
}

// NewHandler creates a runtime handler. With no allowed origins sockets are
// accepted from the service's own origin only.
func NewHandler(deps Deps, allowedOrigins []string) *Handler {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Handler{
		deps:     deps,
		origins:  middleware.NewOriginPolicy(allowedOrigins),
		logger:   deps.Logger,
		sessions: make(map[string]*Session),
	}
}

// HandleWebSocket upgrades to WebSocket and runs the page session.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Server{
		Handshake: h.handshake,
		Handler:   h.serveWS,
	}.ServeHTTP(w, r)
}

// handshake admits the configured origins. With none configured only the
// service's own origin may connect; requests without an Origin header come
// from non-browser clients and are let through.
func (h *Handler) handshake(_ *websocket.Config, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if h.origins.Empty() {
		if origin == "" || sameOrigin(origin, r.Host) {
			return nil
		}
		return fmt.Errorf("live: cross-origin socket from %q", origin)
	}
	if !h.origins.Allows(origin) {
		return fmt.Errorf("live: origin %q not allowed", origin)
	}
	return nil
}

func (h *Handler) serveWS(conn *websocket.Conn) {
	conn.MaxPayloadBytes = maxPayloadBytes
	r := conn.Request()

	var hello Hello
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	if err := websocket.JSON.Receive(conn, &hello); err != nil {
		h.logger.Debug("live: no hello received", "error", err)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	write := func(f Frame) error { return websocket.JSON.Send(conn, f) }
	s, err := openSession(r.Context(), h.deps, hello, write)
	if err != nil {
		h.logger.Warn("live: session rejected", "error", err, "remote_ip", r.RemoteAddr)
		_ = write(Frame{Type: FrameError, Error: publicError(err)})
		return
	}

	h.mu.Lock()
	prev := h.sessions[s.ID()]
	h.sessions[s.ID()] = s
	h.mu.Unlock()
	if prev != nil {
		// Same page reconnected before the old socket noticed.
		prev.Close()
	}
	defer func() {
		h.mu.Lock()
		if h.sessions[s.ID()] == s {
			delete(h.sessions, s.ID())
		}
		h.mu.Unlock()
		s.Close()
	}()

	for {
		var ev dom.Event
		if err := websocket.JSON.Receive(conn, &ev); err != nil {
			h.logger.Debug("live: connection closed", "page_id", s.ID(), "error", err)
			return
		}
		s.Handle(ev)
	}
}

func sameOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

func publicError(err error) string {
	if errors.Is(err, ErrHelloRequired) {
		return "hello required"
	}
	return "session rejected"
}

// ActiveSessions returns the number of connected pages.
func (h *Handler) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HandleShimJS serves the page shim script.
func (h *Handler) HandleShimJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(shimJS)
}
