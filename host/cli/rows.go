package cli

import (
	"ghanima/host/sim"
)

// StatusRow is one half in a status table
type StatusRow struct {
	Side     string `json:"side" yaml:"side"`
	State    string `json:"state" yaml:"state"`
	Role     string `json:"role" yaml:"role"`
	USB      bool   `json:"usb" yaml:"usb"`
	Alone    bool   `json:"alone" yaml:"alone"`
	Sent     uint32 `json:"sent" yaml:"sent"`
	Received uint32 `json:"received" yaml:"received"`
	Dropped  uint32 `json:"dropped" yaml:"dropped"`
}

// ChangeRow is one role change
type ChangeRow struct {
	Tick uint32 `json:"tick" yaml:"tick"`
	Side string `json:"side" yaml:"side"`
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// KeyRow is a key event delivered to a master
type KeyRow struct {
	Tick   uint32 `json:"tick" yaml:"tick"`
	Master string `json:"master" yaml:"master"`
	Key    string `json:"key" yaml:"key"`
	Local  bool   `json:"local" yaml:"local"`
}

func statusRows(st [2]sim.Status) []StatusRow {
	rows := make([]StatusRow, 0, len(st))
	for _, s := range st {
		rows = append(rows, StatusRow{
			Side:     s.Side.String(),
			State:    s.State.String(),
			Role:     s.Role.String(),
			USB:      s.USB,
			Alone:    s.Alone,
			Sent:     s.Stats.Tx.Frames,
			Received: s.Stats.Rx.Received,
			Dropped:  s.Stats.Rx.Dropped(),
		})
	}
	return rows
}

func changeRows(changes []sim.Change) []ChangeRow {
	rows := make([]ChangeRow, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, ChangeRow{Tick: c.Tick, Side: c.Side.String(), From: c.From.String(), To: c.To.String()})
	}
	return rows
}

func keyRows(ds []sim.Delivery) []KeyRow {
	rows := make([]KeyRow, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, KeyRow{Tick: d.Tick, Master: d.Side.String(), Key: d.Key.String(), Local: d.Local})
	}
	return rows
}
