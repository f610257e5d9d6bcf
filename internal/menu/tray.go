// Package menu implements the renderer side of the tray protocol: it reads
// menu definitions from the host and drives a native system tray.
package menu

import (
	"context"
	"errors"

	"github.com/example/traybridge/internal/protocol"
)

// ErrUnavailable is returned by Run on builds without native tray support.
var ErrUnavailable = errors.New("menu: system tray is unavailable without cgo support")

// Tray is a native tray icon with a flat list of menu entries.
type Tray interface {
	// Run blocks on the platform event loop until Quit is called or ctx is
	// cancelled. ready is invoked once the tray is visible.
	Run(ctx context.Context, ready func()) error
	// SetMenu replaces the icon, title, tooltip and every entry.
	SetMenu(m protocol.Menu)
	// SetItem replaces the entry at index.
	SetItem(index int, item protocol.MenuItem)
	// Clicks yields the index of every clicked entry.
	Clicks() <-chan int
	Quit()
}
