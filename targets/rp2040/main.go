//go:build rp2040

package main

import (
	"machine"
	"time"

	"ghanima/core"
	"ghanima/half"
	"ghanima/protocol"
	"ghanima/role"
)

// Board wiring
const (
	linkBaud     = 460800
	transferSize = 64
	reportTicks  = 1000

	linkTX  = machine.GPIO0
	linkRX  = machine.GPIO1
	sidePin = machine.GPIO15 // tied to ground on the right half
	vbusPin = machine.GPIO24 // VBUS sense
	ledPin  = machine.GPIO16
)

var (
	rowPins = []machine.Pin{machine.GPIO2, machine.GPIO3, machine.GPIO4, machine.GPIO5}
	colPins = []machine.Pin{machine.GPIO6, machine.GPIO7, machine.GPIO10, machine.GPIO11, machine.GPIO12, machine.GPIO13}

	kbd    *half.Half
	led    *roleLED
	panics uint32
)

type vbusSensor struct{ pin machine.Pin }

func (v vbusSensor) Configured() bool { return v.pin.Get() }

type debugSink struct{}

// TODO: send to the USB HID keyboard once a keymap exists
func (debugSink) HandleKey(ev half.KeyEvent, local bool) {
	DebugPrintln("key " + ev.String())
}

func readSide() role.Side {
	sidePin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	time.Sleep(time.Millisecond)
	if sidePin.Get() {
		return role.Left
	}
	return role.Right
}

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitDebugUART()
	core.SetDebugWriter(DebugPrintln)

	side := readSide()
	DebugPrintln("ghanima " + side.String() + " half, link " + protocol.Version)

	uart := machine.UART0
	if err := uart.Configure(machine.UARTConfig{BaudRate: linkBaud, TX: linkTX, RX: linkRX}); err != nil {
		DebugPrintln("link uart: " + err.Error())
		return
	}
	vbusPin.Configure(machine.PinConfig{Mode: machine.PinInput})

	port := newUARTPort(uart, transferSize)
	kbd = half.New(half.DefaultConfig(side), port.Port(), protocol.NewCRC32())
	kbd.SetUSBSensor(vbusSensor{vbusPin})
	kbd.SetKeyScanner(newMatrix(rowPins, colPins))
	kbd.SetKeySink(debugSink{})

	led = newRoleLED(ledPin)
	kbd.OnRoleChange = func(from, to role.Role) {
		led.Show(to)
		DebugPrintln("role " + from.String() + " -> " + to.String())
	}

	UpdateSystemTime()
	start := core.GetTime() + 1

	var sched core.Scheduler
	sched.Schedule(core.Every(start, 1, kbd.Tick))
	var lastDropped uint32
	sched.Schedule(core.Every(start+reportTicks, reportTicks, func() {
		kbd.Report()
		if d := kbd.Stats().Rx.Dropped(); d != lastDropped {
			lastDropped = d
			led.Error(core.GetTime())
		}
	}))
	sched.Schedule(core.Every(start, 10, func() {
		led.Update(core.GetTime())
	}))

	// Main loop
	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					panics++
					core.RecordEvent(core.EvtPanic, uint8(side), panics, 0)
					core.DumpTrace()
				}
			}()

			UpdateSystemTime()
			kbd.OnRxInterrupt()
			kbd.OnTxInterrupt()
			sched.Dispatch(core.GetTime())
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}
