package traybridge

import (
	"github.com/example/traybridge/internal/checkbox"
	"github.com/example/traybridge/internal/install"
	"github.com/example/traybridge/internal/process"
	"github.com/example/traybridge/internal/protocol"
)

type (
	// MenuItem is a single tray entry. A nil Checked means not checkable.
	MenuItem = protocol.MenuItem
	// Menu is the full tray definition; Icon is base64 image data (.png on
	// posix, .ico on windows).
	Menu = protocol.Menu

	// Event is a message from the renderer.
	Event      = protocol.Event
	ReadyEvent = protocol.ReadyEvent
	ClickEvent = protocol.ClickEvent

	// Action is a message to the renderer.
	Action                  = protocol.Action
	UpdateItemAction        = protocol.UpdateItemAction
	UpdateMenuAction        = protocol.UpdateMenuAction
	UpdateMenuAndItemAction = protocol.UpdateMenuAndItemAction

	ExitStatus     = process.ExitStatus
	SpawnError     = process.SpawnError
	ProtocolError  = protocol.ProtocolError
	EncodingError  = protocol.EncodingError
	InstallOptions = install.Options

	// CheckboxPolicy rewrites items before they are sent to the renderer.
	CheckboxPolicy = checkbox.Policy
)

const (
	CheckedMarker   = checkbox.CheckedMarker
	UncheckedMarker = checkbox.UncheckedMarker
)

// Bool returns a pointer to v, for MenuItem.Checked literals.
func Bool(v bool) *bool {
	return &v
}

// State is the lifecycle stage of the renderer process.
type State int32

const (
	// StateStarting lasts from spawn until the first ready message.
	StateStarting State = iota
	// StateReady means a ready message was received.
	StateReady
	// StateRunning means the initial menu has been written.
	StateRunning
	// StateExiting means Kill was called.
	StateExiting
	// StateExited means the process exited or never started. It is final.
	StateExited
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateExiting:
		return "exiting"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}
