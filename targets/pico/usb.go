//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"
)

// InitUSB initializes USB serial communication
// On RP2040/RP2350, machine.Serial is USB CDC-ACM set up by TinyGo's runtime.
// No newline translation is applied, the protocol expects bare '\n'.
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// usbPort adapts machine.Serial to core.SerialPort
type usbPort struct{}

// ReadByteTimeout polls the CDC receive buffer until a byte arrives or the
// timeout elapses
func (usbPort) ReadByteTimeout(timeout time.Duration) (byte, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if machine.Serial.Buffered() > 0 {
			b, err := machine.Serial.ReadByte()
			if err == nil {
				return b, true
			}
		}
		if !time.Now().Before(deadline) {
			return 0, false
		}
	}
}

// Write writes all of data to USB, handling partial writes
func (usbPort) Write(data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := machine.Serial.Write(data[written:])
		if err != nil {
			return written, err
		}
		if n == 0 {
			// No progress - likely disconnected
			return written, errUSBStalled
		}
		written += n
	}
	return written, nil
}
