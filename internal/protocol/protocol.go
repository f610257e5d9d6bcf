package protocol

const (
	// TypeReady is sent by the renderer once its tray is ready for a menu.
	TypeReady = "ready"
	// TypeClicked is sent by the renderer when a menu item is clicked.
	TypeClicked = "clicked"

	// TypeUpdateItem replaces a single item identified by its seq_id.
	TypeUpdateItem = "update-item"
	// TypeUpdateMenu replaces the whole menu.
	TypeUpdateMenu = "update-menu"
	// TypeUpdateMenuAndItem replaces the menu and then a single item.
	TypeUpdateMenuAndItem = "update-menu-and-item"
)

// MenuItem is a single tray menu entry. A nil Checked means the item is not
// checkable.
type MenuItem struct {
	Title   string `json:"title"`
	Tooltip string `json:"tooltip"`
	Checked *bool  `json:"checked,omitempty"`
	Enabled bool   `json:"enabled"`
}

// Checkable reports whether the item carries a checked state.
func (i MenuItem) Checkable() bool {
	return i.Checked != nil
}

// IsChecked reports whether the item is checkable and currently checked.
func (i MenuItem) IsChecked() bool {
	return i.Checked != nil && *i.Checked
}

// WithChecked returns a copy of the item with the checked state replaced.
func (i MenuItem) WithChecked(checked bool) MenuItem {
	i.Checked = &checked
	return i
}

// Menu is the full tray definition. Icon holds base64 encoded image data.
type Menu struct {
	Icon    string     `json:"icon"`
	Title   string     `json:"title"`
	Tooltip string     `json:"tooltip"`
	Items   []MenuItem `json:"items"`
}

// Clone returns a copy of the menu that does not share its items slice.
func (m Menu) Clone() Menu {
	if m.Items != nil {
		items := make([]MenuItem, len(m.Items))
		copy(items, m.Items)
		m.Items = items
	}
	return m
}

// Message is anything that travels over the line protocol.
type Message interface {
	// MessageType returns the wire discriminant. The initial menu is the only
	// message with an empty discriminant.
	MessageType() string
}

// Event is a message sent from the renderer to the host.
type Event interface {
	Message
	isEvent()
}

// Action is a message sent from the host to the renderer after the initial menu.
type Action interface {
	Message
	isAction()
}

// ReadyEvent signals that the renderer can accept the initial menu.
type ReadyEvent struct{}

// ClickEvent reports a click on the item at position SeqID.
type ClickEvent struct {
	Item  MenuItem
	SeqID int
}

// UpdateItemAction replaces the item at position SeqID.
type UpdateItemAction struct {
	Item  MenuItem
	SeqID int
}

// UpdateMenuAction replaces the whole menu.
type UpdateMenuAction struct {
	Menu  Menu
	SeqID int
}

// UpdateMenuAndItemAction replaces the menu and then the item at position SeqID.
type UpdateMenuAndItemAction struct {
	Menu  Menu
	Item  MenuItem
	SeqID int
}

// InitialMenu is the first message written to the renderer. Unlike every other
// message it is framed as the bare menu object without a type field; the
// renderer recognises it by shape. Do not copy this framing for new messages.
type InitialMenu struct {
	Menu Menu
}

func (ReadyEvent) MessageType() string              { return TypeReady }
func (ClickEvent) MessageType() string              { return TypeClicked }
func (UpdateItemAction) MessageType() string        { return TypeUpdateItem }
func (UpdateMenuAction) MessageType() string        { return TypeUpdateMenu }
func (UpdateMenuAndItemAction) MessageType() string { return TypeUpdateMenuAndItem }
func (InitialMenu) MessageType() string             { return "" }

func (ReadyEvent) isEvent() {}
func (ClickEvent) isEvent() {}

func (UpdateItemAction) isAction()        {}
func (UpdateMenuAction) isAction()        {}
func (UpdateMenuAndItemAction) isAction() {}
