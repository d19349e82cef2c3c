package protocol

import "testing"

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()

	scratch.Output([]byte{1, 2, 3})
	if scratch.CurPosition() != 3 {
		t.Errorf("Expected position 3, got %d", scratch.CurPosition())
	}

	scratch.Output([]byte{4, 5})
	result := scratch.Result()
	if len(result) != 5 || result[4] != 5 {
		t.Errorf("Expected [1 2 3 4 5], got %v", result)
	}
	if scratch.Overflowed() {
		t.Error("Scratch should not report overflow")
	}

	scratch.Reset()
	if scratch.CurPosition() != 0 {
		t.Errorf("After reset, expected position 0, got %d", scratch.CurPosition())
	}
}

func TestScratchOutputOverflow(t *testing.T) {
	scratch := NewScratchOutput()

	scratch.Output(make([]byte, MessageMax-1))
	scratch.Output([]byte{1, 2})

	if !scratch.Overflowed() {
		t.Error("Expected overflow after writing past MessageMax")
	}
	if scratch.CurPosition() != MessageMax {
		t.Errorf("Expected position %d, got %d", MessageMax, scratch.CurPosition())
	}

	scratch.Reset()
	if scratch.Overflowed() {
		t.Error("Reset should clear overflow")
	}
}

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)

	if !fifo.IsEmpty() {
		t.Error("New FIFO should be empty")
	}

	if fifo.Available() != 0 {
		t.Errorf("Empty FIFO should have 0 available, got %d", fifo.Available())
	}

	// Write some data
	data := []byte{1, 2, 3, 4, 5}
	written := fifo.Write(data)

	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}

	if fifo.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", fifo.Available())
	}

	// Read some data
	readBuf := make([]byte, 3)
	read := fifo.Read(readBuf)

	if read != 3 {
		t.Errorf("Expected to read 3 bytes, read %d", read)
	}

	if readBuf[0] != 1 || readBuf[1] != 2 || readBuf[2] != 3 {
		t.Errorf("Read data mismatch: got %v", readBuf)
	}

	if fifo.Available() != 2 {
		t.Errorf("After reading 3, expected 2 available, got %d", fifo.Available())
	}

	// Test Pop
	fifo.Pop(1)
	if fifo.Available() != 1 {
		t.Errorf("After popping 1, expected 1 available, got %d", fifo.Available())
	}

	// Test wrap-around
	fifo.Reset()
	bigData := make([]byte, 12)
	for i := range bigData {
		bigData[i] = byte(i)
	}
	written = fifo.Write(bigData)
	if written != 9 { // Buffer size is 10, can only store 9 (one slot reserved)
		t.Errorf("Expected to write 9 bytes to size-10 FIFO, wrote %d", written)
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(5)

	// Fill buffer
	fifo.Write([]byte{1, 2, 3, 4})

	// Read some
	readBuf := make([]byte, 2)
	fifo.Read(readBuf)

	// Write more (will wrap around)
	written := fifo.Write([]byte{5, 6})
	if written != 2 {
		t.Errorf("Expected to write 2 bytes, wrote %d", written)
	}

	// Verify order
	allData := make([]byte, 4)
	read := fifo.Read(allData)
	if read != 4 {
		t.Errorf("Expected to read 4 bytes, read %d", read)
	}
	if allData[0] != 3 || allData[1] != 4 || allData[2] != 5 || allData[3] != 6 {
		t.Errorf("Wrap-around data mismatch: got %v", allData)
	}
}

func TestFifoBufferSegment(t *testing.T) {
	fifo := NewFifoBuffer(6)

	fifo.Write([]byte{1, 2, 3, 4})
	fifo.Pop(3)
	fifo.Write([]byte{5, 6, 7})

	first := fifo.Segment()
	if len(first) != 3 || first[0] != 4 || first[2] != 6 {
		t.Errorf("Expected first segment [4 5 6], got %v", first)
	}
	fifo.Pop(len(first))

	second := fifo.Segment()
	if len(second) != 1 || second[0] != 7 {
		t.Errorf("Expected second segment [7], got %v", second)
	}
	fifo.Pop(10)
	if !fifo.IsEmpty() {
		t.Errorf("Expected empty FIFO, %d bytes left", fifo.Available())
	}
}
