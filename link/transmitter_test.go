package link

import (
	"bytes"
	"errors"
	"testing"

	"ghanima/protocol"
)

func TestFixedMsgFrameSize(t *testing.T) {
	env := protocol.Envelope[fixedMsg]{ID: 0, Payload: fixedMsg{1, 2, 3, 4}}
	n, err := protocol.Encode(env, protocol.NewCRC32(), make([]byte, 32))
	if err != nil || n != 11 {
		t.Errorf("Expected 11-byte frame, got %d (err %v)", n, err)
	}
}

func TestTransmitterSendsAsMuchAsPossible(t *testing.T) {
	sum := protocol.NewCRC32()
	tx := newMockTx(30)
	tr := NewTransmitter[fixedMsg](tx, 8)

	for i := byte(0); i < 3; i++ {
		tr.Push(fixedMsg{i, i, i, i})
	}

	if !tr.Tick(sum) {
		t.Fatal("Expected first tick to start a transfer")
	}
	if len(tx.transfers[0]) != 22 {
		t.Errorf("Expected 22 bytes in first transfer, got %d", len(tx.transfers[0]))
	}
	if tr.Pending() != 1 {
		t.Errorf("Expected 1 pending message, got %d", tr.Pending())
	}

	if tr.Tick(sum) {
		t.Error("Tick must not start while a transfer is in flight")
	}

	if res := tr.OnInterrupt(); res != Done {
		t.Errorf("Expected Done, got %v", res)
	}
	if !tr.Tick(sum) {
		t.Fatal("Expected second tick to start a transfer")
	}
	if len(tx.transfers[1]) != 11 {
		t.Errorf("Expected 11 bytes in second transfer, got %d", len(tx.transfers[1]))
	}
	if tr.Pending() != 0 {
		t.Errorf("Expected empty queue, got %d", tr.Pending())
	}

	tr.OnInterrupt()
	if tr.Tick(sum) {
		t.Error("Tick with an empty queue must not start a transfer")
	}

	// Each transfer holds only whole frames
	for i, data := range tx.transfers {
		if data[len(data)-1] != protocol.Delimiter {
			t.Errorf("Transfer %d does not end on a frame boundary", i)
		}
	}

	stats := tr.Stats()
	if stats.Frames != 3 || stats.Transfers != 2 || stats.Bytes != 33 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestTransmitterIDsIncrement(t *testing.T) {
	sum := protocol.NewCRC32()
	tx := newMockTx(64)
	tr := NewTransmitter[fixedMsg](tx, 8)

	for i := byte(0); i < 3; i++ {
		tr.Push(fixedMsg{i})
	}
	tr.Tick(sum)

	acc := protocol.NewAccumulator(64)
	unmarshal := protocol.UnmarshalEnvelope(unmarshalFixed)
	var ids []uint16
	for env, err := range protocol.Frames(acc, sum, tx.transfers[0], unmarshal) {
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		ids = append(ids, env.ID)
		if env.Payload[0] != byte(env.ID) {
			t.Errorf("Payload %v out of order for id %d", env.Payload, env.ID)
		}
	}
	if len(ids) != 3 || ids[0] != 0 || ids[2] != 2 {
		t.Errorf("Expected ids [0 1 2], got %v", ids)
	}
	if tr.NextID() != 3 {
		t.Errorf("Expected next id 3, got %d", tr.NextID())
	}
}

func TestTransmitterDropsOversizedMessage(t *testing.T) {
	tx := newMockTx(8)
	tr := NewTransmitter[fixedMsg](tx, 4)
	tr.Push(fixedMsg{1, 2, 3, 4})

	if tr.Tick(protocol.NewCRC32()) {
		t.Error("Expected no transfer for a message that can never fit")
	}
	if tr.Pending() != 0 {
		t.Errorf("Expected oversized message to be dropped, %d pending", tr.Pending())
	}
	if tr.Stats().Dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", tr.Stats().Dropped)
	}
	if tr.NextID() != 0 {
		t.Errorf("Id must not advance on failed encode, got %d", tr.NextID())
	}
	if len(tx.transfers) != 0 {
		t.Errorf("Expected no transfers, got %d", len(tx.transfers))
	}
}

func TestTransmitterQueueModes(t *testing.T) {
	tr := NewTransmitter[fixedMsg](newMockTx(64), 2)

	if err := tr.TryPush(fixedMsg{1}); err != nil {
		t.Fatalf("TryPush failed: %v", err)
	}
	tr.Push(fixedMsg{2})
	if err := tr.TryPush(fixedMsg{3}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}

	tr.Push(fixedMsg{4})
	if tr.Stats().Overwritten != 1 {
		t.Errorf("Expected 1 overwritten, got %d", tr.Stats().Overwritten)
	}
	if tr.Pending() != 2 {
		t.Errorf("Expected 2 pending, got %d", tr.Pending())
	}
}

func TestTransmitterTransferFailure(t *testing.T) {
	wire := NewWire(DefaultWireConfig())
	wire.Left.SetFail(true)

	tr := NewTransmitter[fixedMsg](wire.Left.Port().Tx, 4)
	tr.Push(fixedMsg{9})
	tr.Tick(protocol.NewCRC32())

	if res := tr.OnInterrupt(); res != Failed {
		t.Errorf("Expected Failed, got %v", res)
	}
	if tr.Stats().TransferErrors != 1 {
		t.Errorf("Expected 1 transfer error, got %d", tr.Stats().TransferErrors)
	}
	if res := tr.OnInterrupt(); res != NotSet {
		t.Errorf("Expected NotSet with nothing in flight, got %v", res)
	}
}

func TestTransmitterPushWhileBusyPanics(t *testing.T) {
	tx := newMockTx(64)
	tr := NewTransmitter[fixedMsg](&lyingTx{tx}, 4)
	tr.Push(fixedMsg{1})

	defer func() {
		if recover() == nil {
			t.Error("Expected panic when transport rejects push after ready")
		}
	}()
	tx.busy = true
	tr.Tick(protocol.NewCRC32())
}

// lyingTx claims readiness regardless of state
type lyingTx struct{ *mockTx }

func (l *lyingTx) IsReady() bool { return true }

func TestTransmitterOverWire(t *testing.T) {
	sum := protocol.NewCRC32()
	wire := NewWire(WireConfig{TransferSize: 30, FifoSize: 128, ChunkSize: 5})
	tr := NewTransmitter[fixedMsg](wire.Left.Port().Tx, 16)
	rx := NewReceiver[fixedMsg](unmarshalFixed, 16, 32)
	rxPort := wire.Right.Port().Rx

	var sent []fixedMsg
	for i := byte(1); i <= 10; i++ {
		msg := fixedMsg{i, 0, i, 0}
		sent = append(sent, msg)
		tr.Push(msg)
	}

	for i := 0; i < 10 && tr.Pending() > 0; i++ {
		tr.OnInterrupt()
		tr.Tick(sum)
		rxPort.OnInterrupt(func(data []byte) { rx.OnInterrupt(sum, data) })
	}

	for i, want := range sent {
		got, ok := rx.Get()
		if !ok {
			t.Fatalf("Message %d missing", i)
		}
		if !bytes.Equal(got[:], want[:]) {
			t.Errorf("Message %d: expected %v, got %v", i, want, got)
		}
	}
	if rx.Stats().Dropped() != 0 {
		t.Errorf("Expected no dropped frames, got %+v", rx.Stats())
	}
}
