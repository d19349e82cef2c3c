// Package config loads the link configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ghanima/core"
	"ghanima/half"
	"ghanima/link"
	"ghanima/protocol"
	"ghanima/role"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds everything needed to run one half or a simulation
type Config struct {
	SideName             string `yaml:"side" json:"side"`
	TickHz               uint32 `yaml:"tick_hz" json:"tick_hz"`
	NegotiationTimeoutMs uint32 `yaml:"negotiation_timeout_ms" json:"negotiation_timeout_ms"`
	ReportIntervalMs     uint32 `yaml:"report_interval_ms" json:"report_interval_ms"`

	Link   LinkConfig   `yaml:"link" json:"link"`
	Serial SerialConfig `yaml:"serial" json:"serial"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// LinkConfig sizes the queues and picks the checksum
type LinkConfig struct {
	Checksum     string `yaml:"checksum" json:"checksum"`
	TxQueue      int    `yaml:"tx_queue" json:"tx_queue"`
	RxQueue      int    `yaml:"rx_queue" json:"rx_queue"`
	RxBuffer     int    `yaml:"rx_buffer" json:"rx_buffer"`
	TransferSize int    `yaml:"transfer_size" json:"transfer_size"`
}

type SerialConfig struct {
	Device        string `yaml:"device" json:"device"`
	Baud          int    `yaml:"baud" json:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms" json:"read_timeout_ms"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the firmware defaults
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the configuration from the given YAML file path.
// If the file does not exist, it returns the defaults with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document, fills in defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.SideName == "" {
		cfg.SideName = "left"
	}
	if cfg.TickHz == 0 {
		cfg.TickHz = core.TickHz
	}
	if cfg.NegotiationTimeoutMs == 0 {
		cfg.NegotiationTimeoutMs = 1000
	}
	if cfg.ReportIntervalMs == 0 {
		cfg.ReportIntervalMs = 1000
	}

	if cfg.Link.Checksum == "" {
		cfg.Link.Checksum = "crc32"
	}
	if cfg.Link.TxQueue == 0 {
		cfg.Link.TxQueue = 4
	}
	if cfg.Link.RxQueue == 0 {
		cfg.Link.RxQueue = 4
	}
	if cfg.Link.RxBuffer == 0 {
		cfg.Link.RxBuffer = 128
	}
	if cfg.Link.TransferSize == 0 {
		cfg.Link.TransferSize = 64
	}

	if cfg.Serial.Device == "" {
		cfg.Serial.Device = "/dev/ttyUSB0"
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 460800
	}
	if cfg.Serial.ReadTimeoutMs == 0 {
		cfg.Serial.ReadTimeoutMs = 10
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate checks value ranges and names
func (c *Config) Validate() error {
	if _, err := role.ParseSide(c.SideName); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch strings.ToLower(c.Link.Checksum) {
	case "crc32", "crc16":
	default:
		return fmt.Errorf("%w: unknown checksum %q", ErrInvalid, c.Link.Checksum)
	}
	if c.Link.TxQueue < 0 || c.Link.RxQueue < 0 || c.Link.RxBuffer < 0 {
		return fmt.Errorf("%w: queue sizes must be positive", ErrInvalid)
	}
	// One frame must always fit in a transfer
	if limit := protocol.MaxEncodedLen(protocol.MessageMax); c.Link.TransferSize < 16 || c.Link.TransferSize > limit {
		return fmt.Errorf("%w: transfer_size %d outside [16, %d]", ErrInvalid, c.Link.TransferSize, limit)
	}
	if c.TickHz > 100000 {
		return fmt.Errorf("%w: tick_hz %d too high", ErrInvalid, c.TickHz)
	}
	if c.Serial.Baud < 0 || c.Serial.ReadTimeoutMs < 0 {
		return fmt.Errorf("%w: serial values must be positive", ErrInvalid)
	}
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := core.ParseLogFormat(c.Log.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Side returns the parsed board side
func (c *Config) Side() role.Side {
	s, _ := role.ParseSide(c.SideName)
	return s
}

// TimeoutTicks converts the negotiation timeout to scheduler ticks
func (c *Config) TimeoutTicks() uint32 {
	return core.TicksFromMS(c.NegotiationTimeoutMs, c.TickHz)
}

// ReportTicks converts the stats report interval to scheduler ticks
func (c *Config) ReportTicks() uint32 {
	return max(core.TicksFromMS(c.ReportIntervalMs, c.TickHz), 1)
}

// NewChecksum returns a fresh engine of the configured kind
func (c *Config) NewChecksum() protocol.Checksum {
	if strings.EqualFold(c.Link.Checksum, "crc16") {
		return protocol.NewCRC16()
	}
	return protocol.NewCRC32()
}

// WireConfig sizes an in-memory link like the configured hardware link
func (c *Config) WireConfig() link.WireConfig {
	w := link.DefaultWireConfig()
	w.TransferSize = c.Link.TransferSize
	return w
}

// HalfConfig returns the settings for the configured side
func (c *Config) HalfConfig() half.Config {
	return c.HalfConfigFor(c.Side())
}

// HalfConfigFor returns the settings for side, used when simulating both halves
func (c *Config) HalfConfigFor(side role.Side) half.Config {
	return half.Config{
		Side:         side,
		TimeoutTicks: c.TimeoutTicks(),
		TxQueue:      c.Link.TxQueue,
		RxQueue:      c.Link.RxQueue,
		RxBuffer:     c.Link.RxBuffer,
	}
}

// Apply configures the global logger
func (c *Config) Apply() {
	level, _ := core.ParseLogLevel(c.Log.Level)
	format, _ := core.ParseLogFormat(c.Log.Format)
	core.SetLogLevel(level)
	core.SetLogFormat(format)
}
