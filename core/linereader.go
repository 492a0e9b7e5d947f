package core

import (
	"time"

	"flatpanel/protocol"
)

// LineReader collects one read cycle worth of bytes from the serial port.
//
// It is not a blocking readline: it polls for one byte at a time and stops
// as soon as a poll times out or the buffer is full. A newline does not end
// the read, so the captured bytes may be empty, a partial line, a complete
// line, or several lines that the dispatcher will reject.
type LineReader struct {
	port    SerialPort
	buf     [protocol.RxBufferLength]byte
	n       int
	timeout time.Duration
	delay   time.Duration
	sleep   func(time.Duration)
}

// NewLineReader creates a reader that polls port with the loop's timing
func NewLineReader(port SerialPort, cfg LoopConfig) *LineReader {
	cfg = cfg.withDefaults()
	return &LineReader{
		port:    port,
		timeout: cfg.ReadTimeout,
		delay:   cfg.PollDelay,
		sleep:   cfg.Sleep,
	}
}

// ReadLine captures bytes until the poll times out or the buffer fills.
// The returned slice aliases the reader's buffer and is only valid until
// Reset.
func (r *LineReader) ReadLine() []byte {
	for r.n < len(r.buf) {
		b, ok := r.port.ReadByteTimeout(r.timeout)
		if !ok {
			break
		}
		r.buf[r.n] = b
		r.n++

		// Give a slow producer time to deliver the next byte
		r.sleep(r.delay)
	}
	return r.buf[:r.n]
}

// Reset zero-fills the buffer for the next cycle
func (r *LineReader) Reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.n = 0
}
