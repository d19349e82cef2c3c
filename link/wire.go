package link

import "ghanima/protocol"

// WireConfig sizes an in-memory link
type WireConfig struct {
	TransferSize int // transmit buffer per end
	FifoSize     int // receive ring per end, like a circular DMA buffer
	ChunkSize    int // largest run handed to one receive callback; 0 means unlimited
}

// DefaultWireConfig matches the buffer sizes used on hardware
func DefaultWireConfig() WireConfig {
	return WireConfig{TransferSize: 64, FifoSize: 256}
}

// Wire is an in-memory serial link between two ends. A started transfer
// lands in the peer's receive ring at once; completion is reported on the
// next transmit interrupt.
type Wire struct {
	Left  *WireEnd
	Right *WireEnd
}

// NewWire connects two ends
func NewWire(cfg WireConfig) *Wire {
	l := newWireEnd(cfg)
	r := newWireEnd(cfg)
	l.peer, r.peer = r, l
	return &Wire{Left: l, Right: r}
}

// WireEnd is one side of a Wire
type WireEnd struct {
	cfg     WireConfig
	buf     []byte
	n       int
	busy    bool
	started bool
	fail    bool
	filter  func([]byte) []byte
	inbound *protocol.FifoBuffer
	peer    *WireEnd

	overruns uint32
}

func newWireEnd(cfg WireConfig) *WireEnd {
	return &WireEnd{
		cfg:     cfg,
		buf:     make([]byte, cfg.TransferSize),
		inbound: protocol.NewFifoBuffer(cfg.FifoSize),
	}
}

// Port returns the transports of this end
func (e *WireEnd) Port() Port {
	return Port{Tx: wireTx{e}, Rx: wireRx{e}}
}

// SetFilter rewrites every outgoing transfer; returning nil drops it
func (e *WireEnd) SetFilter(f func([]byte) []byte) {
	e.filter = f
}

// SetFail makes transfer completions report Failed
func (e *WireEnd) SetFail(fail bool) {
	e.fail = fail
}

// Overruns counts bytes lost because this end's receive ring was full
func (e *WireEnd) Overruns() uint32 {
	return e.overruns
}

// Inject places raw bytes in this end's receive ring
func (e *WireEnd) Inject(data []byte) {
	n := e.inbound.Write(data)
	e.overruns += uint32(len(data) - n)
}

type wireTx struct{ e *WireEnd }

func (t wireTx) Capacity() int { return len(t.e.buf) }
func (t wireTx) IsReady() bool { return !t.e.busy }

func (t wireTx) Push(fill func(buf []byte) int) error {
	if t.e.busy {
		return ErrTransferOngoing
	}
	n := fill(t.e.buf)
	t.e.n = min(n, len(t.e.buf))
	return nil
}

func (t wireTx) Start() error {
	e := t.e
	if e.busy {
		return ErrTransferOngoing
	}
	e.busy = true
	e.started = true

	data := e.buf[:e.n]
	if e.filter != nil {
		data = e.filter(append([]byte(nil), data...))
	}
	e.peer.Inject(data)
	return nil
}

func (t wireTx) OnInterrupt() InterruptResult {
	e := t.e
	if !e.started {
		return NotSet
	}
	e.started = false
	e.busy = false
	e.n = 0
	if e.fail {
		return Failed
	}
	return Done
}

type wireRx struct{ e *WireEnd }

func (r wireRx) OnInterrupt(read func(data []byte)) InterruptResult {
	in := r.e.inbound
	if in.IsEmpty() {
		return NotSet
	}
	for !in.IsEmpty() {
		seg := in.Segment()
		if c := r.e.cfg.ChunkSize; c > 0 && len(seg) > c {
			seg = seg[:c]
		}
		read(seg)
		in.Pop(len(seg))
	}
	return Done
}
