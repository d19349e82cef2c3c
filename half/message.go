package half

import (
	"fmt"

	"ghanima/protocol"
	"ghanima/role"
)

// Kind tags the variant carried by a Message
type Kind uint8

const (
	KindRole Kind = iota
	KindKey
)

// KeyEvent is a key matrix transition in board coordinates
type KeyEvent struct {
	Pressed bool
	Row     uint8
	Col     uint8
}

func (e KeyEvent) String() string {
	verb := "release"
	if e.Pressed {
		verb = "press"
	}
	return fmt.Sprintf("%s(%d,%d)", verb, e.Row, e.Col)
}

// Message is everything the halves exchange
type Message struct {
	Kind Kind
	Role role.Message
	Key  KeyEvent
}

// RoleMessage wraps a negotiation message
func RoleMessage(m role.Message) Message {
	return Message{Kind: KindRole, Role: m}
}

// KeyMessage wraps a key event
func KeyMessage(e KeyEvent) Message {
	return Message{Kind: KindKey, Key: e}
}

func (m Message) String() string {
	if m.Kind == KindKey {
		return "key " + m.Key.String()
	}
	return "role " + m.Role.String()
}

func (m Message) MarshalTo(out protocol.OutputBuffer) {
	protocol.EncodeVLQUint(out, uint32(m.Kind))
	switch m.Kind {
	case KindRole:
		m.Role.MarshalTo(out)
	case KindKey:
		protocol.EncodeVLQBool(out, m.Key.Pressed)
		protocol.EncodeVLQUint(out, uint32(m.Key.Row))
		protocol.EncodeVLQUint(out, uint32(m.Key.Col))
	}
}

// UnmarshalMessage decodes a Message, rejecting unknown kinds
func UnmarshalMessage(data *[]byte) (Message, error) {
	kind, err := protocol.DecodeVLQUintMax(data, uint32(KindKey))
	if err != nil {
		return Message{}, err
	}

	switch Kind(kind) {
	case KindRole:
		r, err := role.UnmarshalMessage(data)
		if err != nil {
			return Message{}, err
		}
		return RoleMessage(r), nil
	default:
		pressed, err := protocol.DecodeVLQBool(data)
		if err != nil {
			return Message{}, err
		}
		row, err := protocol.DecodeVLQUintMax(data, 0xFF)
		if err != nil {
			return Message{}, err
		}
		col, err := protocol.DecodeVLQUintMax(data, 0xFF)
		if err != nil {
			return Message{}, err
		}
		return KeyMessage(KeyEvent{Pressed: pressed, Row: uint8(row), Col: uint8(col)}), nil
	}
}
