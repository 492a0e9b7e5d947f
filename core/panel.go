// Package core holds the flat panel firmware: the backlight model, the command
// dispatcher, and the polling loop that reads command lines from the host.
package core

import "errors"

// Panel hardware defaults (board wiring)
const (
	DefaultPanelPin PWMPin = 22
	PanelFrequency         = 10000 // Hz
	MaxBrightness   Level  = 1000  // Also the PWM wrap value
)

// Dispatch errors. All of them are reported to the host as a failure ack.
var (
	ErrNoCommand      = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrArgCount       = errors.New("wrong argument count")
	ErrInvalidNumber  = errors.New("invalid number")
)

// Level is a backlight brightness in [0, MaxBrightness]
type Level uint16

// ClampLevel converts any integer into a valid Level
func ClampLevel(v int) Level {
	if v < 0 {
		return 0
	}
	if v > int(MaxBrightness) {
		return MaxBrightness
	}
	return Level(v)
}

// PanelOption configures a Panel
type PanelOption func(*Panel)

// WithPin drives the backlight from a different PWM pin
func WithPin(pin PWMPin) PanelOption {
	return func(p *Panel) {
		p.pin = pin
	}
}

// WithLenientNumbers makes `set` accept malformed numbers the way C's strtol
// does (numeric prefix, or 0 when there is none) instead of failing.
func WithLenientNumbers() PanelOption {
	return func(p *Panel) {
		p.lenient = true
	}
}

// Panel owns the backlight state: the stored brightness and the level
// currently driven on the PWM output. It is not safe for concurrent use;
// the firmware loop is its only caller.
type Panel struct {
	pwm        PWMDriver
	pin        PWMPin
	brightness Level // Stored by `set`, reapplied by `on`
	output     Level // Last level written to the PWM
	lenient    bool
	commands   *CommandRegistry
}

// NewPanel configures the PWM output and returns a panel that is switched
// off with a stored brightness of 0
func NewPanel(pwm PWMDriver, opts ...PanelOption) (*Panel, error) {
	p := &Panel{
		pwm:      pwm,
		pin:      DefaultPanelPin,
		commands: NewCommandRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := pwm.ConfigureHardwarePWM(p.pin, PanelFrequency, uint32(MaxBrightness)); err != nil {
		return nil, err
	}
	if err := p.apply(0); err != nil {
		return nil, err
	}

	p.registerCommands()
	return p, nil
}

// Brightness returns the stored brightness
func (p *Panel) Brightness() Level {
	return p.brightness
}

// Output returns the level currently driven on the PWM pin
func (p *Panel) Output() Level {
	return p.output
}

// On drives the stored brightness
func (p *Panel) On() error {
	return p.apply(p.brightness)
}

// Off drives the output to 0 and keeps the stored brightness
func (p *Panel) Off() error {
	return p.apply(0)
}

// Set clamps v, stores it as the brightness and drives it
func (p *Panel) Set(v int) error {
	p.brightness = ClampLevel(v)
	return p.apply(p.brightness)
}

// Dispatch runs one tokenized command line
func (p *Panel) Dispatch(args []string) error {
	return p.commands.Dispatch(args)
}

// Commands returns the panel's command registry
func (p *Panel) Commands() *CommandRegistry {
	return p.commands
}

func (p *Panel) apply(level Level) error {
	if err := p.pwm.SetDutyCycle(p.pin, PWMValue(level)); err != nil {
		return err
	}
	p.output = level
	return nil
}
