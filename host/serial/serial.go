// Package serial opens the link between the host and the flat panel.
package serial

import (
	"io"
)

// Port is the host side of the panel link. Implementations:
// - Native serial (github.com/tarm/serial)
// - The in-process emulator (host/emulator)
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string `yaml:"device"`

	// Baud rate (USB CDC ignores it, the panel firmware runs at 115200)
	Baud int `yaml:"baud"`

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int `yaml:"read_timeout_ms"`
}

// Serial defaults of the flat panel
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100
)

// DefaultConfig returns the panel's default configuration for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}
