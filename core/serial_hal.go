package core

import "time"

// SerialPort is the byte transport the command loop reads from and
// acknowledges to. On hardware this is USB CDC.
type SerialPort interface {
	// ReadByteTimeout waits at most timeout for one byte.
	// ok is false when nothing arrived; that is not an error.
	ReadByteTimeout(timeout time.Duration) (b byte, ok bool)

	// Write sends data to the host
	Write(data []byte) (int, error)
}
