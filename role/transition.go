package role

// Action is the side effect of a transition
type Action uint8

const (
	None Action = iota
	SendEstablishMaster
	SendAck
	SendReleaseMaster
)

func (a Action) String() string {
	switch a {
	case SendEstablishMaster:
		return "send EstablishMaster"
	case SendAck:
		return "send Ack"
	case SendReleaseMaster:
		return "send ReleaseMaster"
	}
	return "none"
}

// Message returns the message an action sends
func (a Action) Message() (Message, bool) {
	switch a {
	case SendEstablishMaster:
		return EstablishMaster, true
	case SendAck:
		return Ack, true
	case SendReleaseMaster:
		return ReleaseMaster, true
	}
	return 0, false
}

// Guards are the per-instance conditions some transitions depend on
type Guards struct {
	// Resign: this half yields to a competing bid
	Resign bool
	// NoUsb: this half's own USB is off
	NoUsb bool
}

// Transition returns the next state and action for event in state.
// Pairs without a transition leave the state unchanged and report false.
func Transition(state State, event Event, g Guards) (State, Action, bool) {
	switch state {
	case AsSlave:
		switch event {
		case UsbOn:
			return WantsMaster, SendEstablishMaster, true
		case EstablishMasterEvent:
			return AsSlave, SendAck, true
		}

	case WantsMaster:
		switch event {
		case UsbOff:
			return AsSlave, None, true
		case AckEvent:
			return AsMaster, None, true
		case Timeout:
			return WantsMaster, SendEstablishMaster, true
		case EstablishMasterEvent:
			if g.Resign {
				return AsSlave, None, true
			}
		case ReleaseMasterEvent:
			return WantsMaster, SendEstablishMaster, true
		}

	case AsMaster:
		switch event {
		case UsbOff:
			// Stay master until the peer takes over
			return AsMaster, SendReleaseMaster, true
		case EstablishMasterEvent:
			if g.NoUsb {
				return AsSlave, SendAck, true
			}
		}
	}
	return state, None, false
}
