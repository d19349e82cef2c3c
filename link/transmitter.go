package link

import (
	"errors"

	"ghanima/core"
	"ghanima/protocol"
)

// TxStats counts transmitter activity
type TxStats struct {
	Frames         uint32 // messages encoded into a transfer
	Transfers      uint32 // transfers started
	Bytes          uint32 // frame bytes handed to the transport
	Overwritten    uint32 // messages lost to Push on a full queue
	Dropped        uint32 // messages that could not be encoded
	TransferErrors uint32 // completions reporting failure
}

// Transmitter queues outgoing messages and batches as many whole frames as
// fit into each transport transfer. Each frame carries the next envelope id.
type Transmitter[M protocol.Packet] struct {
	tx     TxTransport
	queue  *Ring[M]
	nextID uint16
	stats  TxStats
}

// NewTransmitter creates a transmitter with a queue of queueSize messages
func NewTransmitter[M protocol.Packet](tx TxTransport, queueSize int) *Transmitter[M] {
	return &Transmitter[M]{
		tx:    tx,
		queue: NewRing[M](queueSize),
	}
}

// Push queues msg, overwriting the oldest pending message when full
func (t *Transmitter[M]) Push(msg M) {
	if t.queue.Push(msg) {
		t.stats.Overwritten++
		core.LogDebug(core.ComponentLink, "tx queue full, oldest message overwritten")
	}
}

// TryPush queues msg or returns ErrQueueFull
func (t *Transmitter[M]) TryPush(msg M) error {
	return t.queue.TryPush(msg)
}

// Tick starts a transfer when the transport is idle and messages are pending.
// It reports whether a transfer was started.
func (t *Transmitter[M]) Tick(sum protocol.Checksum) bool {
	if !t.tx.IsReady() || t.queue.IsEmpty() {
		return false
	}

	written := 0
	err := t.tx.Push(func(buf []byte) int {
		written = t.fill(sum, buf)
		return written
	})
	if err != nil {
		panic("link: push on ready transport failed: " + err.Error())
	}
	if written == 0 {
		// Everything queued was undeliverable and got dropped
		return false
	}
	if err := t.tx.Start(); err != nil {
		panic("link: start on ready transport failed: " + err.Error())
	}

	t.stats.Transfers++
	t.stats.Bytes += uint32(written)
	return true
}

// fill encodes queued messages into buf until the next one does not fit
func (t *Transmitter[M]) fill(sum protocol.Checksum, buf []byte) int {
	n := 0
	for {
		msg, ok := t.queue.Peek()
		if !ok {
			return n
		}

		env := protocol.Envelope[M]{ID: t.nextID, Payload: msg}
		size, err := protocol.Encode(env, sum, buf[n:])
		switch {
		case err == nil:
			n += size
			t.nextID++
			t.stats.Frames++
			t.queue.Skip()
		case errors.Is(err, protocol.ErrBufferTooSmall) && n > 0:
			// Retried whole in the next transfer
			return n
		default:
			// Would never fit, even into an empty transfer buffer
			t.stats.Dropped++
			core.LogWarn(core.ComponentLink, "dropping unencodable message", "err", err)
			t.queue.Skip()
		}
	}
}

// OnInterrupt services the transport completion interrupt
func (t *Transmitter[M]) OnInterrupt() InterruptResult {
	res := t.tx.OnInterrupt()
	if res == Failed {
		t.stats.TransferErrors++
		core.LogWarn(core.ComponentLink, "transfer failed")
	}
	return res
}

// Pending returns the number of queued messages
func (t *Transmitter[M]) Pending() int {
	return t.queue.Len()
}

// NextID returns the id the next encoded message will carry
func (t *Transmitter[M]) NextID() uint16 {
	return t.nextID
}

// Stats returns a snapshot of the counters
func (t *Transmitter[M]) Stats() TxStats {
	return t.stats
}
