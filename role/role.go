// Package role negotiates which keyboard half owns the USB connection.
//
// Both halves start as slaves. A half that sees USB come up bids for master
// with EstablishMaster and becomes master once the peer acknowledges. Bids
// are retried on timeout; a half whose bids are never answered acts as
// master on its own. When both halves bid at once the right half yields.
package role

import (
	"fmt"
	"strings"

	"ghanima/protocol"
)

// State of the negotiation
type State uint8

const (
	AsSlave State = iota
	WantsMaster
	AsMaster
)

func (s State) String() string {
	switch s {
	case AsSlave:
		return "AsSlave"
	case WantsMaster:
		return "WantsMaster"
	case AsMaster:
		return "AsMaster"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Event drives a transition. UsbOn/UsbOff are local, Timeout is internal,
// the rest arrive from the peer.
type Event uint8

const (
	UsbOn Event = iota
	UsbOff
	EstablishMasterEvent
	ReleaseMasterEvent
	AckEvent
	Timeout
)

func (e Event) String() string {
	switch e {
	case UsbOn:
		return "UsbOn"
	case UsbOff:
		return "UsbOff"
	case EstablishMasterEvent:
		return "EstablishMaster"
	case ReleaseMasterEvent:
		return "ReleaseMaster"
	case AckEvent:
		return "Ack"
	case Timeout:
		return "Timeout"
	}
	return fmt.Sprintf("Event(%d)", uint8(e))
}

// Message is a negotiation message exchanged over the link
type Message uint8

const (
	// EstablishMaster requests the master role; sent when USB comes up
	EstablishMaster Message = iota
	// ReleaseMaster tells the peer USB was lost and master may move
	ReleaseMaster
	// Ack grants the peer's EstablishMaster
	Ack
)

func (m Message) String() string {
	switch m {
	case EstablishMaster:
		return "EstablishMaster"
	case ReleaseMaster:
		return "ReleaseMaster"
	case Ack:
		return "Ack"
	}
	return fmt.Sprintf("Message(%d)", uint8(m))
}

// Event maps a received message to its event
func (m Message) Event() Event {
	switch m {
	case ReleaseMaster:
		return ReleaseMasterEvent
	case Ack:
		return AckEvent
	default:
		return EstablishMasterEvent
	}
}

func (m Message) MarshalTo(out protocol.OutputBuffer) {
	protocol.EncodeVLQUint(out, uint32(m))
}

// UnmarshalMessage decodes a negotiation message, rejecting unknown tags
func UnmarshalMessage(data *[]byte) (Message, error) {
	v, err := protocol.DecodeVLQUintMax(data, uint32(Ack))
	if err != nil {
		return 0, err
	}
	return Message(v), nil
}

// Role is what the rest of the firmware acts on
type Role uint8

const (
	// Slave forwards key events to the master
	Slave Role = iota
	// Master processes key events and serves USB
	Master
)

func (r Role) String() string {
	if r == Master {
		return "master"
	}
	return "slave"
}

// Side is the physical half. It is strapped in hardware and fixed for life.
type Side uint8

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Other returns the peer's side
func (s Side) Other() Side {
	if s == Left {
		return Right
	}
	return Left
}

// Resigns reports whether this side yields when both halves bid at once
func (s Side) Resigns() bool {
	return s == Right
}

// ParseSide parses "left" or "right"
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return Left, fmt.Errorf("unknown side %q", s)
}
