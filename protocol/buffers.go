package protocol

// OutputBuffer is the sink message fields are serialized into
type OutputBuffer interface {
	// Output writes data to the buffer
	Output(data []byte)

	// CurPosition returns the current write position
	CurPosition() int
}

// ScratchOutput implements OutputBuffer using a fixed-size scratch buffer.
// Writes past MessageMax are truncated and latch Overflowed.
type ScratchOutput struct {
	buf      [MessageMax]byte
	pos      int
	overflow bool
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
	if n < len(data) {
		s.overflow = true
	}
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

// Overflowed reports whether any write was truncated since the last Reset
func (s *ScratchOutput) Overflowed() bool {
	return s.overflow
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
	s.overflow = false
}

// FifoBuffer is a circular byte buffer. One slot is kept free to tell
// full from empty, so it holds capacity-1 bytes.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends as much of data as fits and returns the count written
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			break
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// Read reads up to len(data) bytes from the FIFO buffer
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			break
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// Segment returns the contiguous readable run starting at the read position.
// Like a circular DMA buffer, a wrapped FIFO is exposed in two segments.
func (f *FifoBuffer) Segment() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	return f.buf[f.read:]
}

// Pop removes n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	avail := f.Available()
	if n > avail {
		n = avail
	}
	f.read = (f.read + n) % f.size
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
