//go:build rp2040

package main

import (
	"machine"

	"ghanima/link"
)

// uartPort carries the link over a hardware UART. TinyGo's UART write
// blocks until the bytes are in the TX FIFO, so a started transfer is
// complete on return and reported on the next transmit poll.
type uartPort struct {
	uart    *machine.UART
	buf     []byte
	n       int
	started bool
	chunk   [64]byte
}

func newUARTPort(uart *machine.UART, transferSize int) *uartPort {
	return &uartPort{uart: uart, buf: make([]byte, transferSize)}
}

func (p *uartPort) Port() link.Port {
	return link.Port{Tx: uartTx{p}, Rx: uartRx{p}}
}

type uartTx struct{ p *uartPort }

func (t uartTx) Capacity() int { return len(t.p.buf) }
func (t uartTx) IsReady() bool { return !t.p.started }

func (t uartTx) Push(fill func(buf []byte) int) error {
	if t.p.started {
		return link.ErrTransferOngoing
	}
	t.p.n = min(fill(t.p.buf), len(t.p.buf))
	return nil
}

func (t uartTx) Start() error {
	p := t.p
	if p.started {
		return link.ErrTransferOngoing
	}
	p.started = true
	p.uart.Write(p.buf[:p.n])
	return nil
}

func (t uartTx) OnInterrupt() link.InterruptResult {
	if !t.p.started {
		return link.NotSet
	}
	t.p.started = false
	t.p.n = 0
	return link.Done
}

type uartRx struct{ p *uartPort }

// OnInterrupt drains the UART's interrupt-filled ring buffer
func (r uartRx) OnInterrupt(read func(data []byte)) link.InterruptResult {
	p := r.p
	res := link.NotSet
	for p.uart.Buffered() > 0 {
		n, err := p.uart.Read(p.chunk[:])
		if err != nil || n == 0 {
			break
		}
		read(p.chunk[:n])
		res = link.Done
	}
	return res
}
