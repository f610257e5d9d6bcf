//go:build cgo || windows
// +build cgo windows

package menu

import (
	"context"
	"sync"

	"github.com/getlantern/systray"
	"go.uber.org/zap"

	"github.com/example/traybridge/internal/protocol"
)

type systrayTray struct {
	logger *zap.Logger
	clicks chan int

	mu      sync.Mutex
	ctx     context.Context
	running bool
	pending *protocol.Menu
	entries []*systray.MenuItem
}

// NewTray returns the native tray.
func NewTray(logger *zap.Logger) Tray {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &systrayTray{
		logger: logger.Named("tray"),
		clicks: make(chan int),
		ctx:    context.Background(),
	}
}

func (t *systrayTray) Run(ctx context.Context, ready func()) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			systray.Quit()
		case <-done:
		}
	}()

	systray.Run(func() {
		t.mu.Lock()
		t.ctx = ctx
		t.running = true
		pending := t.pending
		t.pending = nil
		t.mu.Unlock()

		if pending != nil {
			t.SetMenu(*pending)
		}
		if ready != nil {
			ready()
		}
	}, func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	})
	close(done)

	return ctx.Err()
}

func (t *systrayTray) SetMenu(m protocol.Menu) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		cp := m.Clone()
		t.pending = &cp
		return
	}

	if icon := decodeIcon(m.Icon, t.logger); len(icon) > 0 {
		systray.SetIcon(icon)
		setTemplateIcon(icon)
	}
	systray.SetTitle(m.Title)
	systray.SetTooltip(m.Tooltip)

	for i, item := range m.Items {
		if i >= len(t.entries) {
			t.addEntry(i)
		}
		applyItem(t.entries[i], item)
		t.entries[i].Show()
	}
	// systray cannot remove entries, surplus ones are hidden until reused.
	for i := len(m.Items); i < len(t.entries); i++ {
		t.entries[i].Hide()
	}
	t.logger.Debug("menu rendered", zap.Int("items", len(m.Items)), zap.Int("entries", len(t.entries)))
}

func (t *systrayTray) SetItem(index int, item protocol.MenuItem) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		if t.pending != nil && index >= 0 && index < len(t.pending.Items) {
			t.pending.Items[index] = item
		}
		return
	}
	if index < 0 || index >= len(t.entries) {
		return
	}
	applyItem(t.entries[index], item)
}

func (t *systrayTray) Clicks() <-chan int {
	return t.clicks
}

func (t *systrayTray) Quit() {
	systray.Quit()
}

// addEntry must be called with t.mu held.
func (t *systrayTray) addEntry(index int) {
	mi := systray.AddMenuItem("", "")
	t.entries = append(t.entries, mi)
	go t.forward(t.ctx, index, mi.ClickedCh)
}

func (t *systrayTray) forward(ctx context.Context, index int, ch <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			select {
			case t.clicks <- index:
			case <-ctx.Done():
				return
			}
		}
	}
}

func applyItem(mi *systray.MenuItem, item protocol.MenuItem) {
	mi.SetTitle(item.Title)
	mi.SetTooltip(item.Tooltip)
	if item.Enabled {
		mi.Enable()
	} else {
		mi.Disable()
	}
	if item.Checkable() {
		if item.IsChecked() {
			mi.Check()
		} else {
			mi.Uncheck()
		}
	}
}
