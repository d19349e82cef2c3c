package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	"ghanima/core"
)

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens a native serial port
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	core.LogInfo(core.ComponentSerial, "opened port", "device", cfg.Device, "baud", cfg.Baud)

	return &NativePort{
		port: port,
		cfg:  cfg,
	}, nil
}

// Read reads from the port. A read timeout returns no data and no error.
func (p *NativePort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	// tarm/serial surfaces an expired VTIME read as a zero-length EOF
	if n == 0 && errors.Is(err, io.EOF) && p.cfg.ReadTimeout > 0 {
		return 0, nil
	}
	return n, err
}

func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush discards unread input
func (p *NativePort) Flush() error {
	return p.port.Flush()
}
