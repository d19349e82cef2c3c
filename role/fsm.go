package role

import "ghanima/core"

// Fsm is one half's negotiation state. It is driven by UsbState, OnRx and
// Tick; each call returns at most one message for the caller to transmit.
type Fsm struct {
	state   State
	side    Side
	usbOn   bool
	isAlone bool

	message    Message
	hasMessage bool

	timeout    uint32
	timeoutCnt uint32
	armed      bool

	// OnTransition, when set, observes every handled event
	OnTransition func(from State, event Event, to State)
}

// New creates a negotiation state machine for side that retries a bid
// after timeout ticks without an answer
func New(side Side, timeout uint32) *Fsm {
	return &Fsm{state: AsSlave, side: side, timeout: timeout}
}

// UsbState reports the sampled USB presence; call it every tick.
// Only a change generates an event.
func (f *Fsm) UsbState(on bool) (Message, bool) {
	if f.usbOn != on {
		core.LogInfo(core.ComponentRole, "usb changed", "side", f.side, "on", on)
		if on {
			f.process(UsbOn)
		} else {
			f.process(UsbOff)
		}
	}
	f.usbOn = on
	return f.take()
}

// OnRx handles a message received from the peer
func (f *Fsm) OnRx(msg Message) (Message, bool) {
	// Anything received proves the peer is there
	f.isAlone = false
	f.process(msg.Event())
	return f.take()
}

// Tick advances the bid timeout by one tick
func (f *Fsm) Tick() (Message, bool) {
	if !f.armed {
		return 0, false
	}
	f.armed = false
	if f.timeoutCnt == 0 {
		f.isAlone = true
		core.LogDebug(core.ComponentRole, "bid timed out", "side", f.side)
		f.process(Timeout)
		return f.take()
	}
	f.timeoutCnt--
	f.armed = true
	return 0, false
}

// Role returns the role the firmware should act on. A half still bidding
// acts as master once its bids went unanswered.
func (f *Fsm) Role() Role {
	switch {
	case f.state == AsMaster:
		return Master
	case f.state == WantsMaster && f.isAlone:
		return Master
	}
	return Slave
}

func (f *Fsm) State() State  { return f.state }
func (f *Fsm) Side() Side    { return f.side }
func (f *Fsm) UsbOn() bool   { return f.usbOn }
func (f *Fsm) IsAlone() bool { return f.isAlone }

// TimeoutPending reports whether a bid timeout is armed
func (f *Fsm) TimeoutPending() bool {
	return f.armed
}

func (f *Fsm) process(event Event) {
	g := Guards{Resign: f.side.Resigns(), NoUsb: !f.usbOn}
	next, action, ok := Transition(f.state, event, g)
	if !ok {
		return
	}

	from := f.state
	f.state = next
	if f.OnTransition != nil {
		f.OnTransition(from, event, next)
	}

	if msg, send := action.Message(); send {
		if action == SendEstablishMaster {
			f.timeoutCnt = f.timeout
			f.armed = true
		}
		f.send(msg)
	}
}

func (f *Fsm) send(msg Message) {
	if f.hasMessage {
		panic("role: outbound message " + f.message.String() + " not consumed before " + msg.String())
	}
	f.message = msg
	f.hasMessage = true
}

func (f *Fsm) take() (Message, bool) {
	if !f.hasMessage {
		return 0, false
	}
	f.hasMessage = false
	return f.message, true
}
