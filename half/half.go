// Package half runs one keyboard half: it samples USB, negotiates the role
// with the peer and routes key events to whichever half is master.
package half

import (
	"ghanima/core"
	"ghanima/link"
	"ghanima/protocol"
	"ghanima/role"
)

// Config sizes one half
type Config struct {
	Side         role.Side
	TimeoutTicks uint32 // negotiation retry period
	TxQueue      int
	RxQueue      int
	RxBuffer     int // accumulator capacity in bytes
}

// DefaultConfig returns the firmware defaults for side at a 1 kHz tick
func DefaultConfig(side role.Side) Config {
	return Config{
		Side:         side,
		TimeoutTicks: 1000,
		TxQueue:      4,
		RxQueue:      4,
		RxBuffer:     128,
	}
}

// USBSensor reports whether the host has configured the USB device
type USBSensor interface {
	Configured() bool
}

// USBFunc adapts a function to USBSensor
type USBFunc func() bool

func (f USBFunc) Configured() bool { return f() }

// KeyScanner returns key transitions since the previous scan
type KeyScanner interface {
	Scan() []KeyEvent
}

// KeySink consumes key events on the master. local is false for events
// forwarded by the peer.
type KeySink interface {
	HandleKey(ev KeyEvent, local bool)
}

// Stats combines both directions of the link
type Stats struct {
	Tx link.TxStats
	Rx link.RxStats
}

// Half owns one half's link queues and negotiation state
type Half struct {
	cfg  Config
	port link.Port
	sum  protocol.Checksum
	fsm  *role.Fsm
	tx   *link.Transmitter[Message]
	rx   *link.Receiver[Message]

	usb  USBSensor
	keys KeyScanner
	sink KeySink

	role       role.Role
	usbOn      bool
	lastReport link.RxStats

	// OnRoleChange, when set, is called after the effective role changes
	OnRoleChange func(from, to role.Role)
}

// New creates a half talking over port
func New(cfg Config, port link.Port, sum protocol.Checksum) *Half {
	h := &Half{
		cfg:  cfg,
		port: port,
		sum:  sum,
		fsm:  role.New(cfg.Side, cfg.TimeoutTicks),
		tx:   link.NewTransmitter[Message](port.Tx, cfg.TxQueue),
		rx:   link.NewReceiver(UnmarshalMessage, cfg.RxQueue, cfg.RxBuffer),
		role: role.Slave,
	}
	h.fsm.OnTransition = h.onTransition
	return h
}

// SetUSBSensor sets the USB presence source; without one USB reads as off
func (h *Half) SetUSBSensor(s USBSensor) {
	h.usb = s
}

// SetKeyScanner sets the local key matrix
func (h *Half) SetKeyScanner(k KeyScanner) {
	h.keys = k
}

// SetKeySink sets where the master delivers key events
func (h *Half) SetKeySink(s KeySink) {
	h.sink = s
}

// Tick runs one scheduler period
func (h *Half) Tick() {
	usbOn := h.usb != nil && h.usb.Configured()
	if usbOn != h.usbOn {
		h.usbOn = usbOn
		var v uint32
		if usbOn {
			v = 1
		}
		core.RecordEvent(core.EvtUsb, uint8(h.cfg.Side), v, 0)
	}
	h.sendRole(h.fsm.UsbState(usbOn))

	for {
		msg, ok := h.receive()
		if !ok {
			break
		}
		h.handle(msg)
	}

	h.sendRole(h.fsm.Tick())

	if h.keys != nil {
		for _, ev := range h.keys.Scan() {
			if h.fsm.Role() == role.Master {
				h.deliver(ev, true)
			} else {
				core.LogDebug(core.ComponentHalf, "send key", "side", h.cfg.Side, "key", ev)
				h.send(KeyMessage(ev))
			}
		}
	}

	h.updateRole()
	h.Flush()
}

func (h *Half) handle(msg Message) {
	switch msg.Kind {
	case KindRole:
		core.LogDebug(core.ComponentHalf, "got role message", "side", h.cfg.Side, "msg", msg.Role)
		h.sendRole(h.fsm.OnRx(msg.Role))
		h.updateRole()
	case KindKey:
		// Only the master acts on the peer's keys
		if h.fsm.Role() == role.Master {
			h.deliver(msg.Key, false)
		}
	}
}

func (h *Half) deliver(ev KeyEvent, local bool) {
	if h.sink != nil {
		h.sink.HandleKey(ev, local)
	}
}

func (h *Half) sendRole(msg role.Message, ok bool) {
	if ok {
		h.send(RoleMessage(msg))
	}
}

func (h *Half) send(msg Message) {
	core.Critical(func() {
		h.tx.Push(msg)
	})
}

func (h *Half) receive() (msg Message, ok bool) {
	core.Critical(func() {
		msg, ok = h.rx.Get()
	})
	return msg, ok
}

// Flush starts a transfer if the transport is idle and messages are queued
func (h *Half) Flush() bool {
	var started bool
	core.Critical(func() {
		started = h.tx.Tick(h.sum)
	})
	return started
}

// OnTxInterrupt services a transfer completion and starts the next batch
func (h *Half) OnTxInterrupt() link.InterruptResult {
	var res link.InterruptResult
	core.Critical(func() {
		res = h.tx.OnInterrupt()
		if res == link.Failed {
			core.RecordEvent(core.EvtTransferFailed, uint8(h.cfg.Side), 0, 0)
		}
		if res != link.NotSet {
			h.tx.Tick(h.sum)
		}
	})
	return res
}

// OnRxInterrupt feeds newly received bytes to the receiver
func (h *Half) OnRxInterrupt() link.InterruptResult {
	var res link.InterruptResult
	core.Critical(func() {
		res = h.port.Rx.OnInterrupt(func(data []byte) {
			h.rx.OnInterrupt(h.sum, data)
		})
	})
	return res
}

func (h *Half) onTransition(from role.State, event role.Event, to role.State) {
	core.LogDebug(core.ComponentRole, "transition", "side", h.cfg.Side, "from", from, "event", event, "to", to)
	if event == role.Timeout {
		core.RecordEvent(core.EvtTimeout, uint8(h.cfg.Side), uint32(from), uint32(to))
	}
}

func (h *Half) updateRole() {
	r := h.fsm.Role()
	if r == h.role {
		return
	}
	from := h.role
	h.role = r
	core.LogInfo(core.ComponentHalf, "role changed", "side", h.cfg.Side, "role", r, "state", h.fsm.State())
	core.RecordEvent(core.EvtRoleChange, uint8(h.cfg.Side), uint32(from), uint32(r))
	if h.OnRoleChange != nil {
		h.OnRoleChange(from, r)
	}
}

// Report logs receiver statistics when they changed since the last report
func (h *Half) Report() bool {
	var stats link.RxStats
	core.Critical(func() {
		stats = h.rx.Stats()
	})
	if stats == h.lastReport {
		return false
	}
	if stats.Dropped() != h.lastReport.Dropped() {
		core.RecordEvent(core.EvtFrameDropped, uint8(h.cfg.Side), stats.Dropped(), 0)
	}
	h.lastReport = stats
	core.LogInfo(core.ComponentHalf, "rx stats",
		"side", h.cfg.Side,
		"received", stats.Received,
		"queue_overflows", stats.QueueOverflows,
		"accumulator_overflows", stats.AccumulatorOverflows,
		"framing_errors", stats.FramingErrors,
		"checksum_errors", stats.ChecksumErrors,
		"deserialize_errors", stats.DeserializeErrors,
		"ignored_retransmissions", stats.IgnoredRetransmissions)
	return true
}

// Role returns the effective role
func (h *Half) Role() role.Role {
	return h.fsm.Role()
}

// State returns the negotiation state
func (h *Half) State() role.State {
	return h.fsm.State()
}

// IsAlone reports that bids went unanswered and no peer has been heard since
func (h *Half) IsAlone() bool {
	return h.fsm.IsAlone()
}

// Side returns which half this is
func (h *Half) Side() role.Side {
	return h.cfg.Side
}

// USB returns the last sampled USB presence
func (h *Half) USB() bool {
	return h.usbOn
}

// Stats returns a snapshot of both link directions
func (h *Half) Stats() Stats {
	var s Stats
	core.Critical(func() {
		s = Stats{Tx: h.tx.Stats(), Rx: h.rx.Stats()}
	})
	return s
}
