package panel

// State is the calibrator state reported to clients
type State int

const (
	StateUnknown  State = iota // Not connected
	StateOff                   // Backlight switched off
	StateNotReady              // A brightness change is in progress
	StateReady                 // Backlight lit at the requested brightness
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateNotReady:
		return "not ready"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}
