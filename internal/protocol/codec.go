package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// wireMessage is the tagged shape shared by every message except the initial
// menu.
type wireMessage struct {
	Type  string    `json:"type"`
	Menu  *Menu     `json:"menu,omitempty"`
	Item  *MenuItem `json:"item,omitempty"`
	SeqID *int      `json:"seq_id,omitempty"`
}

type inbound struct {
	Type  *string         `json:"type"`
	Menu  *Menu           `json:"menu"`
	Item  *MenuItem       `json:"item"`
	SeqID int             `json:"seq_id"`
	Items json.RawMessage `json:"items"`
}

// Encode serialises msg as a single line of JSON without a trailing newline.
func Encode(msg Message) ([]byte, error) {
	var payload any
	switch m := msg.(type) {
	case InitialMenu:
		payload = withItems(m.Menu)
	case ReadyEvent:
		payload = wireMessage{Type: TypeReady}
	case ClickEvent:
		payload = wireMessage{Type: TypeClicked, Item: &m.Item, SeqID: &m.SeqID}
	case UpdateItemAction:
		payload = wireMessage{Type: TypeUpdateItem, Item: &m.Item, SeqID: &m.SeqID}
	case UpdateMenuAction:
		menu := withItems(m.Menu)
		payload = wireMessage{Type: TypeUpdateMenu, Menu: &menu, SeqID: &m.SeqID}
	case UpdateMenuAndItemAction:
		menu := withItems(m.Menu)
		payload = wireMessage{Type: TypeUpdateMenuAndItem, Menu: &menu, Item: &m.Item, SeqID: &m.SeqID}
	case nil:
		return nil, &EncodingError{Err: errors.New("nil message")}
	default:
		return nil, &EncodingError{Type: msg.MessageType(), Err: fmt.Errorf("unsupported message %T", msg)}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, &EncodingError{Type: msg.MessageType(), Err: err}
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeEvent parses a line written by the renderer.
func DecodeEvent(line []byte) (Event, error) {
	in, err := decodeInbound(line)
	if err != nil {
		return nil, err
	}
	if in.Type == nil {
		return nil, &ProtocolError{Line: string(line), Err: ErrMissingType}
	}

	switch *in.Type {
	case TypeReady:
		return ReadyEvent{}, nil
	case TypeClicked:
		ev := ClickEvent{SeqID: in.SeqID}
		if in.Item != nil {
			ev.Item = *in.Item
		}
		return ev, nil
	default:
		return nil, &ProtocolError{Line: string(line), Type: *in.Type, Err: ErrUnknownType}
	}
}

// DecodeHostMessage parses a line written by the host: either the untagged
// initial menu or one of the update actions.
func DecodeHostMessage(line []byte) (Message, error) {
	in, err := decodeInbound(line)
	if err != nil {
		return nil, err
	}
	if in.Type == nil {
		if in.Items == nil {
			return nil, &ProtocolError{Line: string(line), Err: ErrMissingType}
		}
		var menu Menu
		if err := json.Unmarshal(line, &menu); err != nil {
			return nil, &ProtocolError{Line: string(line), Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
		}
		return InitialMenu{Menu: menu}, nil
	}

	var item MenuItem
	if in.Item != nil {
		item = *in.Item
	}
	var menu Menu
	if in.Menu != nil {
		menu = *in.Menu
	}

	switch *in.Type {
	case TypeUpdateItem:
		return UpdateItemAction{Item: item, SeqID: in.SeqID}, nil
	case TypeUpdateMenu:
		return UpdateMenuAction{Menu: menu, SeqID: in.SeqID}, nil
	case TypeUpdateMenuAndItem:
		return UpdateMenuAndItemAction{Menu: menu, Item: item, SeqID: in.SeqID}, nil
	default:
		return nil, &ProtocolError{Line: string(line), Type: *in.Type, Err: ErrUnknownType}
	}
}

func decodeInbound(line []byte) (inbound, error) {
	var in inbound
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return in, &ProtocolError{Line: string(line), Err: ErrMalformed}
	}
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return in, &ProtocolError{Line: string(line), Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return in, nil
}

// withItems makes sure an empty menu is written as an empty list rather than
// null, which renderers treat as a missing field.
func withItems(m Menu) Menu {
	if m.Items == nil {
		m.Items = []MenuItem{}
	}
	return m
}
