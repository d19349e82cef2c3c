package link

import (
	"ghanima/protocol"
)

// fixedMsg frames to exactly 11 bytes with a 32-bit checksum and an id below 96
type fixedMsg [4]byte

func (m fixedMsg) MarshalTo(out protocol.OutputBuffer) {
	out.Output(m[:])
}

func unmarshalFixed(data *[]byte) (fixedMsg, error) {
	var m fixedMsg
	if len(*data) < len(m) {
		return m, protocol.ErrTruncated
	}
	copy(m[:], *data)
	*data = (*data)[len(m):]
	return m, nil
}

// mockTx records transfers and completes them on demand
type mockTx struct {
	buf       []byte
	n         int
	busy      bool
	transfers [][]byte
}

func newMockTx(capacity int) *mockTx {
	return &mockTx{buf: make([]byte, capacity)}
}

func (m *mockTx) Capacity() int { return len(m.buf) }
func (m *mockTx) IsReady() bool { return !m.busy }

func (m *mockTx) Push(fill func([]byte) int) error {
	if m.busy {
		return ErrTransferOngoing
	}
	m.n = fill(m.buf)
	return nil
}

func (m *mockTx) Start() error {
	if m.busy {
		return ErrTransferOngoing
	}
	m.busy = true
	m.transfers = append(m.transfers, append([]byte(nil), m.buf[:m.n]...))
	return nil
}

func (m *mockTx) OnInterrupt() InterruptResult {
	if !m.busy {
		return NotSet
	}
	m.busy = false
	return Done
}
