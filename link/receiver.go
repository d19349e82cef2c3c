package link

import (
	"errors"

	"ghanima/core"
	"ghanima/protocol"
)

// RxStats counts receiver activity and dropped frames by cause
type RxStats struct {
	Received               uint32
	QueueOverflows         uint32
	AccumulatorOverflows   uint32
	FramingErrors          uint32
	ChecksumErrors         uint32
	DeserializeErrors      uint32
	IgnoredRetransmissions uint32
}

// Dropped returns the number of frames lost on the wire side
func (s RxStats) Dropped() uint32 {
	return s.AccumulatorOverflows + s.FramingErrors + s.ChecksumErrors + s.DeserializeErrors
}

// Receiver turns raw transport bytes into a queue of accepted messages.
// An envelope repeating the id of the last accepted one is discarded.
type Receiver[M protocol.Packet] struct {
	acc       *protocol.Accumulator
	queue     *Ring[M]
	unmarshal protocol.UnmarshalFunc[protocol.Envelope[M]]
	lastID    uint16
	hasLastID bool
	stats     RxStats
}

// NewReceiver creates a receiver with a queue of queueSize messages and an
// accumulator of bufferSize bytes
func NewReceiver[M protocol.Packet](unmarshal protocol.UnmarshalFunc[M], queueSize, bufferSize int) *Receiver[M] {
	return &Receiver[M]{
		acc:       protocol.NewAccumulator(bufferSize),
		queue:     NewRing[M](queueSize),
		unmarshal: protocol.UnmarshalEnvelope(unmarshal),
	}
}

// OnInterrupt feeds newly received bytes through the accumulator
func (r *Receiver[M]) OnInterrupt(sum protocol.Checksum, data []byte) {
	for env, err := range protocol.Frames(r.acc, sum, data, r.unmarshal) {
		if err != nil {
			r.countError(err)
			continue
		}
		r.accept(env)
	}
}

func (r *Receiver[M]) accept(env protocol.Envelope[M]) {
	if r.hasLastID && env.ID == r.lastID {
		r.stats.IgnoredRetransmissions++
		core.LogDebug(core.ComponentLink, "ignoring retransmission", "id", env.ID)
		return
	}
	r.lastID = env.ID
	r.hasLastID = true

	r.stats.Received++
	if r.queue.Push(env.Payload) {
		r.stats.QueueOverflows++
	}
}

func (r *Receiver[M]) countError(err error) {
	switch {
	case errors.Is(err, protocol.ErrOverflow):
		r.stats.AccumulatorOverflows++
	case errors.Is(err, protocol.ErrFraming):
		r.stats.FramingErrors++
	case errors.Is(err, protocol.ErrChecksum):
		r.stats.ChecksumErrors++
	case errors.Is(err, protocol.ErrDeserialize):
		r.stats.DeserializeErrors++
		// Valid checksum with an unknown layout: the peer runs other firmware
		core.LogWarn(core.ComponentLink, "frame dropped", "err", err)
		return
	}
	core.LogDebug(core.ComponentLink, "frame dropped", "err", err)
}

// Get dequeues the next accepted message
func (r *Receiver[M]) Get() (M, bool) {
	return r.queue.Pop()
}

// Pending returns the number of queued messages
func (r *Receiver[M]) Pending() int {
	return r.queue.Len()
}

// Stats returns a snapshot of the counters
func (r *Receiver[M]) Stats() RxStats {
	return r.stats
}
