//go:build rp2040

package main

import (
	"machine"
	"time"

	"ghanima/half"
)

// matrix scans a row-driven key matrix with pulled-up column inputs
type matrix struct {
	rows   []machine.Pin
	cols   []machine.Pin
	state  []bool
	events []half.KeyEvent
}

func newMatrix(rows, cols []machine.Pin) *matrix {
	for _, r := range rows {
		r.Configure(machine.PinConfig{Mode: machine.PinOutput})
		r.High()
	}
	for _, c := range cols {
		c.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	return &matrix{
		rows:   rows,
		cols:   cols,
		state:  make([]bool, len(rows)*len(cols)),
		events: make([]half.KeyEvent, 0, 8),
	}
}

// Scan returns the keys that changed since the previous scan
func (m *matrix) Scan() []half.KeyEvent {
	m.events = m.events[:0]
	for i, r := range m.rows {
		r.Low()
		// Let the column lines settle
		time.Sleep(time.Microsecond)
		for j, c := range m.cols {
			pressed := !c.Get()
			k := i*len(m.cols) + j
			if pressed != m.state[k] {
				m.state[k] = pressed
				m.events = append(m.events, half.KeyEvent{Pressed: pressed, Row: uint8(i), Col: uint8(j)})
			}
		}
		r.High()
	}
	return m.events
}
