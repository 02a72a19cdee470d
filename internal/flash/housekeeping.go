// Package flash tidies the one-shot notification banners a page is rendered
// with: blocking banners are consolidated into a dialog for the privileged
// role, and every banner fades out shortly after load.
package flash

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/veris-salud/agenda-web/internal/dom"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

// Banner classes.
const (
	ClassAlert   = "alert"
	ClassDanger  = "alert-danger"
	ClassWarning = "alert-warning"
)

// BlockingTitle is the dialog title used for consolidated banners.
const BlockingTitle = "Acción no permitida"

// Element is a banner reported by the page. The page shim assigns an id to
// banners rendered without one.
type Element struct {
	ID      string   `json:"id"`
	Classes []string `json:"classes"`
	Text    string   `json:"text"`
}

// HasClass reports whether the banner carries class.
func (e Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// IsFlash reports whether the element is a banner at all.
func (e Element) IsFlash() bool { return e.HasClass(ClassAlert) }

// IsBlocking reports whether the banner is a danger or warning banner.
func (e Element) IsBlocking() bool {
	return e.IsFlash() && (e.HasClass(ClassDanger) || e.HasClass(ClassWarning))
}

// Config controls housekeeping timings.
type Config struct {
	VisibleFor     time.Duration
	FadeDuration   time.Duration
	RemoveAfter    time.Duration
	PrivilegedRole string
}

// DefaultConfig mirrors the layout's CSS: 3s visible, 0.5s fade, removal at 600ms.
func DefaultConfig() Config {
	return Config{
		VisibleFor:     3 * time.Second,
		FadeDuration:   500 * time.Millisecond,
		RemoveAfter:    600 * time.Millisecond,
		PrivilegedRole: "1",
	}
}

// Alerter shows a blocking message. It may block until acknowledged.
type Alerter interface {
	Alert(ctx context.Context, message, title string) (bool, error)
}

// Result summarizes what Start did.
type Result struct {
	// Consolidated is the message re-shown in a dialog, empty if none.
	Consolidated string
	// Removed lists blocking banners removed at once.
	Removed []string
	// Fading lists banners scheduled to fade out.
	Fading []string
}

// Housekeeper runs banner housekeeping for one page.
type Housekeeper struct {
	cfg     Config
	sink    dom.Sink
	alerter Alerter
	logger  *logging.Logger

	mu      sync.Mutex
	stopped bool
	timers  []*time.Timer
}

// NewHousekeeper builds a housekeeper. alerter may be nil, in which case
// blocking banners are still removed but not re-shown.
func NewHousekeeper(cfg Config, sink dom.Sink, alerter Alerter, logger *logging.Logger) *Housekeeper {
	if logger == nil {
		logger = logging.Default()
	}
	return &Housekeeper{cfg: cfg, sink: sink, alerter: alerter, logger: logger}
}

// Start processes the banners present at page load.
//
// Only the first blocking banner's text is re-shown; the rest are dropped
// with it. Whether that is intended or loses messages is still open.
func (h *Housekeeper) Start(ctx context.Context, role string, elements []Element) Result {
	var res Result
	removed := map[string]bool{}

	if role != "" && role == h.cfg.PrivilegedRole {
		var blocking []Element
		for _, e := range elements {
			if e.IsBlocking() {
				blocking = append(blocking, e)
			}
		}
		if len(blocking) > 0 {
			msg := strings.TrimSpace(blocking[0].Text)
			cmds := make([]dom.Command, 0, len(blocking))
			for _, e := range blocking {
				cmds = append(cmds, dom.Remove(e.ID))
				removed[e.ID] = true
				res.Removed = append(res.Removed, e.ID)
			}
			if err := h.sink.Send(cmds...); err != nil {
				h.logger.Warn("flash: remove blocking banners failed", "error", err)
			}
			if msg != "" && h.alerter != nil {
				res.Consolidated = msg
				go func() {
					if _, err := h.alerter.Alert(ctx, msg, BlockingTitle); err != nil {
						h.logger.Debug("flash: consolidated alert not acknowledged", "error", err)
					}
				}()
			}
		}
	}

	for _, e := range elements {
		if e.IsFlash() && !removed[e.ID] {
			res.Fading = append(res.Fading, e.ID)
		}
	}
	if len(res.Fading) == 0 {
		return res
	}

	ids := append([]string(nil), res.Fading...)
	h.after(h.cfg.VisibleFor, func() {
		transition := fmt.Sprintf("opacity %gs ease", h.cfg.FadeDuration.Seconds())
		cmds := make([]dom.Command, 0, 2*len(ids))
		for _, id := range ids {
			cmds = append(cmds, dom.SetStyle(id, "transition", transition), dom.SetStyle(id, "opacity", "0"))
		}
		_ = h.sink.Send(cmds...)

		h.after(h.cfg.RemoveAfter, func() {
			cmds := make([]dom.Command, 0, len(ids))
			for _, id := range ids {
				cmds = append(cmds, dom.Remove(id))
			}
			_ = h.sink.Send(cmds...)
		})
	})
	return res
}

// after schedules fn unless the housekeeper has been stopped.
func (h *Housekeeper) after(d time.Duration, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	t := time.AfterFunc(d, func() {
		h.mu.Lock()
		stopped := h.stopped
		h.mu.Unlock()
		if !stopped {
			fn()
		}
	})
	h.timers = append(h.timers, t)
}

// Stop cancels pending fades. It is called when the page goes away.
func (h *Housekeeper) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for _, t := range h.timers {
		t.Stop()
	}
	h.timers = nil
}
