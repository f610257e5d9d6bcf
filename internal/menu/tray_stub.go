//go:build !cgo && !windows
// +build !cgo,!windows

package menu

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/traybridge/internal/protocol"
)

type stubTray struct{}

// NewTray returns a tray whose Run always fails with ErrUnavailable.
func NewTray(_ *zap.Logger) Tray {
	return stubTray{}
}

func (stubTray) Run(context.Context, func()) error { return ErrUnavailable }
func (stubTray) SetMenu(protocol.Menu)              {}
func (stubTray) SetItem(int, protocol.MenuItem)     {}
func (stubTray) Clicks() <-chan int                 { return nil }
func (stubTray) Quit()                              {}
