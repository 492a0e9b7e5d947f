package panel

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is returned when the firmware answers with a failure ack
	ErrRejected = errors.New("command rejected by panel")

	// ErrNoAck is returned when no acknowledgment arrives in time
	ErrNoAck = errors.New("no acknowledgment from panel")

	// ErrNotConnected is returned by commands issued before Connect
	ErrNotConnected = errors.New("panel not connected")
)

// InvalidValueError reports an argument outside its valid range
type InvalidValueError struct {
	Op    string
	Value int
	Min   int
	Max   int
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: invalid value %d, expected %d-%d", e.Op, e.Value, e.Min, e.Max)
}
