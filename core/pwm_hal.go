package core

// PWMPin identifies a hardware pin capable of PWM output
type PWMPin uint32

// PWMValue is the duty cycle value (0 to the configured wrap)
type PWMValue uint32

// PWMDriver is the abstract PWM interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type PWMDriver interface {
	// ConfigureHardwarePWM configures a pin for hardware PWM output
	// frequency: PWM frequency in Hz
	// wrap: counter top; SetDutyCycle accepts 0 (off) to wrap (fully on)
	ConfigureHardwarePWM(pin PWMPin, frequency uint32, wrap uint32) error

	// SetDutyCycle sets the PWM duty level for a pin.
	// Takes effect on the next PWM cycle.
	SetDutyCycle(pin PWMPin, value PWMValue) error
}
