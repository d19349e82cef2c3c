// Package sim runs both halves of the keyboard in one process over an
// in-memory wire, driven by a deterministic tick clock.
package sim

import (
	"ghanima/config"
	"ghanima/core"
	"ghanima/half"
	"ghanima/link"
	"ghanima/role"
)

var sides = [2]role.Side{role.Left, role.Right}

// Change is one recorded role change
type Change struct {
	Tick uint32
	Side role.Side
	From role.Role
	To   role.Role
}

// Delivery is a key event that reached a master's sink
type Delivery struct {
	Tick  uint32
	Side  role.Side
	Key   half.KeyEvent
	Local bool
}

// Status is a snapshot of one half
type Status struct {
	Side  role.Side
	State role.State
	Role  role.Role
	USB   bool
	Alone bool
	Stats half.Stats
}

// Simulator owns two halves, the wire between them and a scheduler that
// ticks them in a fixed order: left then right.
type Simulator struct {
	cfg    *config.Config
	wire   *link.Wire
	ends   [2]*link.WireEnd
	halves [2]*half.Half
	sched  core.Scheduler
	now    uint32

	usb  [2]bool
	keys [2][]half.KeyEvent

	drop    [2]int
	corrupt [2]bool

	changes    []Change
	deliveries []Delivery
}

// New builds a simulator from cfg. Both halves use the same settings and
// differ only in side.
func New(cfg *config.Config) *Simulator {
	s := &Simulator{cfg: cfg, wire: link.NewWire(cfg.WireConfig())}
	s.ends = [2]*link.WireEnd{s.wire.Left, s.wire.Right}

	for i, side := range sides {
		h := half.New(cfg.HalfConfigFor(side), s.ends[i].Port(), cfg.NewChecksum())
		h.SetUSBSensor(half.USBFunc(func() bool { return s.usb[side] }))
		h.SetKeyScanner(scanner{s, side})
		h.SetKeySink(sink{s, side})
		h.OnRoleChange = func(from, to role.Role) {
			s.changes = append(s.changes, Change{Tick: s.now, Side: side, From: from, To: to})
			core.LogInfo(core.ComponentSim, "role change", "tick", s.now, "side", side, "role", to)
		}
		s.ends[i].SetFilter(s.filter(side))
		s.halves[i] = h

		s.sched.Schedule(core.Every(1, 1, func() {
			h.OnRxInterrupt()
			h.Tick()
			h.OnTxInterrupt()
		}))
	}

	report := cfg.ReportTicks()
	s.sched.Schedule(core.Every(report, report, func() {
		for _, h := range s.halves {
			h.Report()
		}
	}))
	return s
}

type scanner struct {
	s    *Simulator
	side role.Side
}

func (k scanner) Scan() []half.KeyEvent {
	ev := k.s.keys[k.side]
	k.s.keys[k.side] = nil
	return ev
}

type sink struct {
	s    *Simulator
	side role.Side
}

func (k sink) HandleKey(ev half.KeyEvent, local bool) {
	k.s.deliveries = append(k.s.deliveries, Delivery{Tick: k.s.now, Side: k.side, Key: ev, Local: local})
}

// filter applies the fault injection configured for transfers sent by side
func (s *Simulator) filter(side role.Side) func([]byte) []byte {
	return func(data []byte) []byte {
		if s.drop[side] > 0 {
			s.drop[side]--
			core.LogDebug(core.ComponentSim, "dropping transfer", "side", side, "bytes", len(data))
			return nil
		}
		if s.corrupt[side] && len(data) > 1 {
			i := len(data) / 2
			flip := byte(0x40)
			if data[i] == flip {
				flip = 0x20
			}
			data[i] ^= flip
		}
		return data
	}
}

// SetUSB sets whether side's USB is configured by a host
func (s *Simulator) SetUSB(side role.Side, on bool) {
	s.usb[side] = on
}

// PressKey queues a key event for side's next scan
func (s *Simulator) PressKey(side role.Side, ev half.KeyEvent) {
	s.keys[side] = append(s.keys[side], ev)
}

// DropNext discards the next n transfers sent by side
func (s *Simulator) DropNext(side role.Side, n int) {
	s.drop[side] = n
}

// SetCorrupt flips a bit in every transfer sent by side while on is set
func (s *Simulator) SetCorrupt(side role.Side, on bool) {
	s.corrupt[side] = on
}

// SetFail makes side's transfer completions report failure
func (s *Simulator) SetFail(side role.Side, on bool) {
	s.ends[side].SetFail(on)
}

// Step advances the clock by one tick
func (s *Simulator) Step() {
	s.now++
	s.sched.Dispatch(s.now)
}

// Run advances n ticks
func (s *Simulator) Run(n int) {
	for range n {
		s.Step()
	}
}

// RunUntil steps until cond holds or limit ticks passed and reports
// whether cond held
func (s *Simulator) RunUntil(cond func(*Simulator) bool, limit int) bool {
	for range limit {
		if cond(s) {
			return true
		}
		s.Step()
	}
	return cond(s)
}

// Settled reports that exactly one half acts as master
func Settled(s *Simulator) bool {
	r := s.Roles()
	return r[0] != r[1]
}

// Now returns the current tick
func (s *Simulator) Now() uint32 {
	return s.now
}

// Half returns the half on side
func (s *Simulator) Half(side role.Side) *half.Half {
	return s.halves[side]
}

// Roles returns the effective roles, left first
func (s *Simulator) Roles() [2]role.Role {
	return [2]role.Role{s.halves[0].Role(), s.halves[1].Role()}
}

// Status returns a snapshot of both halves, left first
func (s *Simulator) Status() [2]Status {
	var st [2]Status
	for i, h := range s.halves {
		st[i] = Status{
			Side:  h.Side(),
			State: h.State(),
			Role:  h.Role(),
			USB:   h.USB(),
			Alone: h.IsAlone(),
			Stats: h.Stats(),
		}
	}
	return st
}

// Changes returns the recorded role changes
func (s *Simulator) Changes() []Change {
	return s.changes
}

// Deliveries returns the key events delivered so far
func (s *Simulator) Deliveries() []Delivery {
	return s.deliveries
}

// Overruns returns bytes lost to full receive rings, left first
func (s *Simulator) Overruns() [2]uint32 {
	return [2]uint32{s.ends[0].Overruns(), s.ends[1].Overruns()}
}
