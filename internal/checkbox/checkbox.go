// Package checkbox carries checked state in item titles for renderers that
// cannot draw a native checkbox glyph.
package checkbox

import (
	"runtime"
	"strings"

	"github.com/example/traybridge/internal/protocol"
)

const (
	// CheckedMarker is appended to the title of a checked item.
	CheckedMarker = " 🮱"
	// UncheckedMarker is appended to the title of an unchecked checkable item.
	UncheckedMarker = " 🅇"
)

// Policy rewrites an item for the given platform. It must be pure and
// idempotent.
type Policy func(platform string, item protocol.MenuItem) protocol.MenuItem

// NeedsMarkers reports whether the renderer on platform lacks native checkboxes.
func NeedsMarkers(platform string) bool {
	return platform == "linux"
}

// Default embeds a marker in the title on platforms without native checkboxes
// and leaves the item untouched elsewhere.
func Default(platform string, item protocol.MenuItem) protocol.MenuItem {
	if !NeedsMarkers(platform) {
		return item
	}
	item.Title = Strip(item.Title)
	switch {
	case item.Checked == nil:
	case *item.Checked:
		item.Title += CheckedMarker
	default:
		item.Title += UncheckedMarker
	}
	return item
}

// Strip removes any trailing markers from title.
func Strip(title string) string {
	for {
		switch {
		case strings.HasSuffix(title, CheckedMarker):
			title = strings.TrimSuffix(title, CheckedMarker)
		case strings.HasSuffix(title, UncheckedMarker):
			title = strings.TrimSuffix(title, UncheckedMarker)
		default:
			return title
		}
	}
}

// Encoder applies a Policy to everything that crosses the write boundary.
// It never mutates the values it is given.
type Encoder struct {
	platform string
	policy   Policy
}

// New returns an Encoder for platform using the Default policy. An empty
// platform selects runtime.GOOS.
func New(platform string) *Encoder {
	return NewWithPolicy(platform, Default)
}

// NewWithPolicy returns an Encoder using a custom policy.
func NewWithPolicy(platform string, policy Policy) *Encoder {
	if platform == "" {
		platform = runtime.GOOS
	}
	if policy == nil {
		policy = Default
	}
	return &Encoder{platform: platform, policy: policy}
}

// Platform returns the platform identifier the encoder was built for.
func (e *Encoder) Platform() string {
	return e.platform
}

// Item normalises a single item.
func (e *Encoder) Item(item protocol.MenuItem) protocol.MenuItem {
	return e.policy(e.platform, item)
}

// Menu returns a copy of m with every item normalised.
func (e *Encoder) Menu(m protocol.Menu) protocol.Menu {
	m = m.Clone()
	for i := range m.Items {
		m.Items[i] = e.Item(m.Items[i])
	}
	return m
}

// Message normalises every item and menu payload carried by msg. Messages
// without payloads are returned as is.
func (e *Encoder) Message(msg protocol.Message) protocol.Message {
	switch m := msg.(type) {
	case protocol.InitialMenu:
		m.Menu = e.Menu(m.Menu)
		return m
	case protocol.UpdateItemAction:
		m.Item = e.Item(m.Item)
		return m
	case protocol.UpdateMenuAction:
		m.Menu = e.Menu(m.Menu)
		return m
	case protocol.UpdateMenuAndItemAction:
		m.Menu = e.Menu(m.Menu)
		m.Item = e.Item(m.Item)
		return m
	default:
		return msg
	}
}
