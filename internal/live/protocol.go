package live

import (
	"github.com/veris-salud/agenda-web/internal/dialog"
	"github.com/veris-salud/agenda-web/internal/dom"
	"github.com/veris-salud/agenda-web/internal/flash"
)

// Hello is the first frame a page sends after connecting.
type Hello struct {
	Type         string              `json:"type"`
	Token        string              `json:"token,omitempty"`
	PageID       string              `json:"page_id,omitempty"`
	Role         string              `json:"role,omitempty"`
	Gates        []string            `json:"gates,omitempty"`
	Capabilities dialog.Capabilities `json:"capabilities"`
	Fields       map[string]string   `json:"fields,omitempty"`
	Flashes      []flash.Element     `json:"flashes,omitempty"`
}

// Frame types sent to the page.
const (
	FrameSession  = "session"
	FrameCommands = "commands"
	FramePong     = "pong"
	FrameError    = "error"
)

// Frame is one message to the page.
type Frame struct {
	Type     string        `json:"type"`
	PageID   string        `json:"page_id,omitempty"`
	Backend  string        `json:"backend,omitempty"`
	Commands []dom.Command `json:"commands,omitempty"`
	Error    string        `json:"error,omitempty"`
}
