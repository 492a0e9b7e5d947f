// Package protocol implements the flat panel's line protocol: newline terminated
// ASCII commands answered by a one character acknowledgment line.
package protocol

import "errors"

// Protocol constants shared by the firmware and the host
const (
	LineTerminator byte = '\n'
	ArgDelimiter   byte = ' '

	AckSuccess byte = '#'
	AckFailure byte = '!'

	RxBufferLength = 128 // Bytes captured per read cycle
	TxBufferLength = 128
	MaxArgs        = 16

	// MaxLineLength is the longest command that still fits the receive
	// buffer together with its terminator
	MaxLineLength = RxBufferLength - 1
)

// Command names understood by the firmware
const (
	CmdOn  = "on"
	CmdOff = "off"
	CmdSet = "set"
)

var (
	ErrLineTooLong = errors.New("command line exceeds receive buffer")
	ErrBadLine     = errors.New("command contains a line terminator")
	ErrBadAck      = errors.New("malformed acknowledgment")
)

// Tokenize splits a line (without terminator) on the argument delimiter.
// Runs of delimiters collapse and at most MaxArgs tokens are returned; the
// remainder is dropped. Tokens are copies and stay valid after the line
// buffer is reused.
func Tokenize(line []byte) []string {
	args := make([]string, 0, MaxArgs)
	i := 0
	for i < len(line) && len(args) < MaxArgs {
		// Skip delimiters
		for i < len(line) && line[i] == ArgDelimiter {
			i++
		}
		if i >= len(line) {
			break
		}

		start := i
		for i < len(line) && line[i] != ArgDelimiter {
			i++
		}
		args = append(args, string(line[start:i]))
	}
	return args
}

// Ack returns the acknowledgment line for a dispatch result
func Ack(ok bool) []byte {
	if ok {
		return []byte{AckSuccess, LineTerminator}
	}
	return []byte{AckFailure, LineTerminator}
}

// WriteAck writes the acknowledgment line into an output buffer
func WriteAck(out OutputBuffer, ok bool) {
	out.Output(Ack(ok))
}

// EncodeCommand joins args into a single terminated command line
func EncodeCommand(args ...string) ([]byte, error) {
	n := 0
	for i, a := range args {
		if i > 0 {
			n++
		}
		n += len(a)
	}
	if n > MaxLineLength {
		return nil, ErrLineTooLong
	}

	line := make([]byte, 0, n+1)
	for i, a := range args {
		if i > 0 {
			line = append(line, ArgDelimiter)
		}
		for j := 0; j < len(a); j++ {
			if a[j] == LineTerminator {
				return nil, ErrBadLine
			}
		}
		line = append(line, a...)
	}
	return append(line, LineTerminator), nil
}

// DecodeAck interprets a received acknowledgment line. Any bytes before the
// status character are ignored so that stale noise on the link does not
// hide the answer.
func DecodeAck(line []byte) (bool, error) {
	if n := len(line); n > 0 && line[n-1] == LineTerminator {
		line = line[:n-1]
	}
	if len(line) == 0 {
		return false, ErrBadAck
	}
	switch line[len(line)-1] {
	case AckSuccess:
		return true, nil
	case AckFailure:
		return false, nil
	default:
		return false, ErrBadAck
	}
}
