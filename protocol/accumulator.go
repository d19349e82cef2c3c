package protocol

import (
	"bytes"
	"iter"
)

// Accumulator collects chunks of a byte stream until a delimiter completes a
// frame. Its capacity is fixed; a frame longer than that is dropped and the
// stream resynchronizes on the next delimiter.
type Accumulator struct {
	buf  []byte
	head int
}

// NewAccumulator creates an accumulator holding up to capacity escaped bytes
func NewAccumulator(capacity int) *Accumulator {
	if capacity <= 0 {
		panic("protocol: accumulator capacity must be positive")
	}
	return &Accumulator{buf: make([]byte, capacity)}
}

// Len returns the number of buffered bytes of the current partial frame
func (a *Accumulator) Len() int {
	return a.head
}

// Cap returns the accumulator capacity
func (a *Accumulator) Cap() int {
	return len(a.buf)
}

// Reset drops any partial frame
func (a *Accumulator) Reset() {
	a.head = 0
}

// FeedResult is the outcome of one Feed step. With Ok unset and Err nil the
// chunk was absorbed into a partial frame.
type FeedResult[M any] struct {
	Msg       M
	Ok        bool
	Err       error
	Remaining []byte
}

// Pending reports that the chunk was consumed without completing a frame
func (r FeedResult[M]) Pending() bool {
	return !r.Ok && r.Err == nil
}

// Feed consumes chunk up to and including the first delimiter.
// Callers keep feeding Remaining until it is empty. Frames are decoded in
// place, so unmarshal must copy anything it keeps from the payload.
func Feed[M any](a *Accumulator, sum Checksum, chunk []byte, unmarshal UnmarshalFunc[M]) FeedResult[M] {
	var res FeedResult[M]
	if len(chunk) == 0 {
		return res
	}

	n := bytes.IndexByte(chunk, Delimiter)
	if n < 0 {
		if a.head+len(chunk) <= len(a.buf) {
			a.head += copy(a.buf[a.head:], chunk)
			return res
		}
		// No delimiter anywhere in the chunk, so its tail belongs to the
		// frame being dropped as well
		a.head = 0
		res.Err = ErrOverflow
		return res
	}

	res.Remaining = chunk[n+1:]
	if a.head+n > len(a.buf) {
		a.head = 0
		res.Err = ErrOverflow
		return res
	}

	copy(a.buf[a.head:], chunk[:n])
	frame := a.buf[:a.head+n]
	a.head = 0

	size, err := DecodeCOBS(frame, frame)
	if err != nil {
		res.Err = ErrFraming
		return res
	}
	msg, err := decodeRaw(frame[:size], sum, unmarshal)
	if err != nil {
		res.Err = err
		return res
	}
	res.Msg = msg
	res.Ok = true
	return res
}

// Frames yields one (message, error) pair per completed or dropped frame in
// chunk. A trailing partial frame stays buffered for the next call.
func Frames[M any](a *Accumulator, sum Checksum, chunk []byte, unmarshal UnmarshalFunc[M]) iter.Seq2[M, error] {
	return func(yield func(M, error) bool) {
		for len(chunk) > 0 {
			res := Feed(a, sum, chunk, unmarshal)
			chunk = res.Remaining
			if res.Pending() {
				continue
			}
			if !yield(res.Msg, res.Err) {
				return
			}
		}
	}
}
