//go:build rp2040

package main

import "machine"

var (
	debugUART    *machine.UART
	debugEnabled bool
)

// InitDebugUART initializes UART1 on GPIO8 (TX) and GPIO9 (RX) at 115200 baud
func InitDebugUART() {
	debugUART = machine.UART1

	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO8,
		RX:       machine.GPIO9,
	})
	if err != nil {
		debugEnabled = false
		return
	}
	debugEnabled = true
}

// DebugPrintln writes a line to the debug UART
func DebugPrintln(s string) {
	if !debugEnabled {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
