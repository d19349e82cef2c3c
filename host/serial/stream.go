package serial

import (
	"errors"
	"io"
	"sync"

	"ghanima/core"
	"ghanima/link"
)

// ErrClosed is returned for transfers after the stream was closed
var ErrClosed = errors.New("serial: stream closed")

// Stream runs the link transports over a byte stream. A writer goroutine
// carries out started transfers and a reader goroutine collects incoming
// bytes; the transport interrupts poll both without blocking.
type Stream struct {
	port io.ReadWriteCloser

	txBuf   []byte
	txN     int
	busy    bool
	started bool

	writeChan  chan []byte
	resultChan chan error
	readChan   chan []byte

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu      sync.Mutex
	readErr error
}

// NewStream starts the reader and writer for port. transferSize bounds
// one transmit batch.
func NewStream(port io.ReadWriteCloser, transferSize int) *Stream {
	s := &Stream{
		port:       port,
		txBuf:      make([]byte, transferSize),
		writeChan:  make(chan []byte, 1),
		resultChan: make(chan error, 1),
		readChan:   make(chan []byte, 16),
		stopChan:   make(chan struct{}),
	}
	s.wg.Add(2)
	go s.writeLoop()
	go s.readLoop()
	return s
}

// Port returns the link transports backed by this stream
func (s *Stream) Port() link.Port {
	return link.Port{Tx: streamTx{s}, Rx: streamRx{s}}
}

// Close stops both goroutines and closes the underlying port
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)
		err = s.port.Close()
		s.wg.Wait()
	})
	return err
}

// Err returns the error that stopped the reader, if any
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

func (s *Stream) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case data := <-s.writeChan:
			_, err := s.port.Write(data)
			if err != nil {
				core.LogWarn(core.ComponentSerial, "write failed", "err", err)
			}
			s.resultChan <- err
		case <-s.stopChan:
			return
		}
	}
}

func (s *Stream) readLoop() {
	defer s.wg.Done()
	buffer := make([]byte, 256)

	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		n, err := s.port.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			select {
			case s.readChan <- chunk:
			case <-s.stopChan:
				return
			}
		}
		if err != nil {
			select {
			case <-s.stopChan:
			default:
				if !errors.Is(err, io.EOF) {
					core.LogWarn(core.ComponentSerial, "read failed", "err", err)
				}
				s.mu.Lock()
				s.readErr = err
				s.mu.Unlock()
			}
			return
		}
	}
}

type streamTx struct{ s *Stream }

func (t streamTx) Capacity() int { return len(t.s.txBuf) }
func (t streamTx) IsReady() bool { return !t.s.busy }

func (t streamTx) Push(fill func(buf []byte) int) error {
	if t.s.busy {
		return link.ErrTransferOngoing
	}
	t.s.txN = min(fill(t.s.txBuf), len(t.s.txBuf))
	return nil
}

func (t streamTx) Start() error {
	s := t.s
	if s.busy {
		return link.ErrTransferOngoing
	}
	data := make([]byte, s.txN)
	copy(data, s.txBuf[:s.txN])
	s.busy = true
	s.started = true

	select {
	case <-s.stopChan:
		s.resultChan <- ErrClosed
	default:
		s.writeChan <- data
	}
	return nil
}

func (t streamTx) OnInterrupt() link.InterruptResult {
	s := t.s
	if !s.started {
		return link.NotSet
	}
	select {
	case err := <-s.resultChan:
		s.started = false
		s.busy = false
		s.txN = 0
		if err != nil {
			return link.Failed
		}
		return link.Done
	default:
		return link.NotSet
	}
}

type streamRx struct{ s *Stream }

func (r streamRx) OnInterrupt(read func(data []byte)) link.InterruptResult {
	res := link.NotSet
	for {
		select {
		case chunk := <-r.s.readChan:
			read(chunk)
			res = link.Done
		default:
			return res
		}
	}
}
