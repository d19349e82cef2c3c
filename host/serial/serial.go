// Package serial carries the inter-half link over a host serial port or any
// other byte stream.
package serial

import (
	"io"
)

// Port represents a serial port interface. The native implementation uses
// github.com/tarm/serial; tests use in-memory pipes.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the inter-half UART
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the link's UART settings for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        460800,
		ReadTimeout: 10,
	}
}
