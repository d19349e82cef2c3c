package half

import (
	"testing"

	"ghanima/link"
	"ghanima/protocol"
	"ghanima/role"
)

type usbSwitch struct{ on bool }

func (u *usbSwitch) Configured() bool { return u.on }

type keyQueue struct{ pending []KeyEvent }

func (k *keyQueue) Scan() []KeyEvent {
	ev := k.pending
	k.pending = nil
	return ev
}

type delivered struct {
	ev    KeyEvent
	local bool
}

type keyLog struct{ got []delivered }

func (k *keyLog) HandleKey(ev KeyEvent, local bool) {
	k.got = append(k.got, delivered{ev, local})
}

type rig struct {
	wire   *link.Wire
	halves [2]*Half
	usb    [2]*usbSwitch
	keys   [2]*keyQueue
	sinks  [2]*keyLog
}

func newRig(timeout uint32) *rig {
	r := &rig{wire: link.NewWire(link.DefaultWireConfig())}
	ends := [2]*link.WireEnd{r.wire.Left, r.wire.Right}
	for i, side := range []role.Side{role.Left, role.Right} {
		cfg := DefaultConfig(side)
		cfg.TimeoutTicks = timeout
		h := New(cfg, ends[i].Port(), protocol.NewCRC32())
		r.usb[i] = &usbSwitch{}
		r.keys[i] = &keyQueue{}
		r.sinks[i] = &keyLog{}
		h.SetUSBSensor(r.usb[i])
		h.SetKeyScanner(r.keys[i])
		h.SetKeySink(r.sinks[i])
		r.halves[i] = h
	}
	return r
}

func stepHalf(h *Half) {
	h.OnRxInterrupt()
	h.Tick()
	h.OnTxInterrupt()
}

func (r *rig) step(n int) {
	for range n {
		stepHalf(r.halves[0])
		stepHalf(r.halves[1])
	}
}

func TestUsbHalfBecomesMaster(t *testing.T) {
	r := newRig(10)
	r.usb[role.Left].on = true
	r.step(2)

	if r.halves[0].State() != role.AsMaster {
		t.Errorf("Expected left AsMaster, got %s", r.halves[0].State())
	}
	if r.halves[1].State() != role.AsSlave {
		t.Errorf("Expected right AsSlave, got %s", r.halves[1].State())
	}
	if r.halves[0].Role() != role.Master || r.halves[1].Role() != role.Slave {
		t.Errorf("Expected left master and right slave, got %s and %s", r.halves[0].Role(), r.halves[1].Role())
	}
	if r.halves[0].IsAlone() {
		t.Error("Expected left to have heard the peer")
	}
	if !r.halves[0].USB() {
		t.Error("Expected left USB sampled as on")
	}
}

func TestKeysRouteToMaster(t *testing.T) {
	r := newRig(10)
	r.usb[role.Left].on = true
	r.step(2)

	remote := KeyEvent{Pressed: true, Row: 2, Col: 5}
	local := KeyEvent{Pressed: true, Row: 0, Col: 1}
	r.keys[role.Right].pending = []KeyEvent{remote}
	r.keys[role.Left].pending = []KeyEvent{local}
	r.step(2)

	got := r.sinks[role.Left].got
	if len(got) != 2 {
		t.Fatalf("Expected 2 keys on the master, got %d", len(got))
	}
	if got[0] != (delivered{local, true}) {
		t.Errorf("Expected local %s first, got %+v", local, got[0])
	}
	if got[1] != (delivered{remote, false}) {
		t.Errorf("Expected forwarded %s second, got %+v", remote, got[1])
	}
	if n := len(r.sinks[role.Right].got); n != 0 {
		t.Errorf("Expected no keys on the slave, got %d", n)
	}
}

func TestSlaveIgnoresForwardedKeys(t *testing.T) {
	r := newRig(10)
	// Nobody is master; both sides forward and drop what they receive
	r.keys[role.Left].pending = []KeyEvent{{Pressed: true, Row: 1, Col: 1}}
	r.step(2)

	if n := len(r.sinks[role.Right].got); n != 0 {
		t.Errorf("Expected slave to drop forwarded key, got %d", n)
	}
	if s := r.halves[1].Stats(); s.Rx.Received != 1 {
		t.Errorf("Expected right to receive 1 message, got %d", s.Rx.Received)
	}
}

func TestStandaloneAfterTimeout(t *testing.T) {
	r := newRig(3)
	r.wire.Left.SetFilter(func([]byte) []byte { return nil })
	r.usb[role.Left].on = true

	var changes []role.Role
	r.halves[0].OnRoleChange = func(from, to role.Role) {
		changes = append(changes, to)
	}

	// Bid on tick 1, the counter reaches zero on tick 3 and expires on tick 4
	r.step(3)
	if r.halves[0].Role() != role.Slave {
		t.Fatalf("Expected slave before the timeout, got %s", r.halves[0].Role())
	}
	r.step(1)
	if r.halves[0].State() != role.WantsMaster {
		t.Errorf("Expected WantsMaster, got %s", r.halves[0].State())
	}
	if !r.halves[0].IsAlone() {
		t.Error("Expected left to be alone")
	}
	if r.halves[0].Role() != role.Master {
		t.Errorf("Expected standalone master, got %s", r.halves[0].Role())
	}
	if len(changes) != 1 || changes[0] != role.Master {
		t.Errorf("Expected one change to Master, got %v", changes)
	}
	if s := r.halves[0].Stats(); s.Tx.Frames != 2 {
		t.Errorf("Expected 2 bids sent, got %d", s.Tx.Frames)
	}
}

func TestTieBreakLeftWins(t *testing.T) {
	r := newRig(5)
	r.usb[role.Left].on = true
	r.usb[role.Right].on = true
	r.step(20)

	if r.halves[0].State() != role.AsMaster {
		t.Errorf("Expected left AsMaster, got %s", r.halves[0].State())
	}
	if r.halves[1].State() != role.AsSlave {
		t.Errorf("Expected right AsSlave, got %s", r.halves[1].State())
	}
}

func TestMasterHandsOverOnUsbLoss(t *testing.T) {
	r := newRig(10)
	r.usb[role.Left].on = true
	r.step(2)

	r.usb[role.Left].on = false
	r.usb[role.Right].on = true
	r.step(4)

	if r.halves[1].State() != role.AsMaster {
		t.Errorf("Expected right AsMaster, got %s", r.halves[1].State())
	}
	if r.halves[0].State() != role.AsSlave {
		t.Errorf("Expected left AsSlave, got %s", r.halves[0].State())
	}
}

func TestReportOnlyOnChange(t *testing.T) {
	r := newRig(10)
	h := r.halves[0]
	if h.Report() {
		t.Error("Expected no report without traffic")
	}

	// Code byte promises four bytes but only one follows
	r.wire.Left.Inject([]byte{0x05, 0xAA, 0x00})
	r.step(1)

	if !h.Report() {
		t.Error("Expected a report after a framing error")
	}
	if s := h.Stats(); s.Rx.FramingErrors != 1 {
		t.Errorf("Expected 1 framing error, got %d", s.Rx.FramingErrors)
	}
	if h.Report() {
		t.Error("Expected no second report without new errors")
	}
}

func TestTransferFailureCounted(t *testing.T) {
	r := newRig(10)
	r.wire.Left.SetFail(true)
	r.usb[role.Left].on = true
	r.step(1)

	if s := r.halves[0].Stats(); s.Tx.TransferErrors != 1 {
		t.Errorf("Expected 1 transfer error, got %d", s.Tx.TransferErrors)
	}
}
