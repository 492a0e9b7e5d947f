//go:build rp2040 || rp2350

package main

import (
	"errors"

	"flatpanel/core"
	"machine"
)

var errBadFrequency = errors.New("pwm frequency must be positive")

// pwmPeripheral is an interface for PWM hardware peripherals
// This abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// pwmOutput is a configured pin: its slice, channel and logical wrap
type pwmOutput struct {
	slice   pwmPeripheral
	channel uint8
	wrap    uint32
}

// PicoPWMDriver implements core.PWMDriver on the RP2040/RP2350 PWM slices
// (8 slices with 2 channels each)
type PicoPWMDriver struct {
	// Key: slice number (0-7)
	peripherals map[uint8]pwmPeripheral

	// Key: pin number
	outputs map[uint32]*pwmOutput
}

// NewPicoPWMDriver creates a new PWM driver
func NewPicoPWMDriver() *PicoPWMDriver {
	return &PicoPWMDriver{
		peripherals: make(map[uint8]pwmPeripheral),
		outputs:     make(map[uint32]*pwmOutput),
	}
}

// ConfigureHardwarePWM configures a pin for hardware PWM output.
// TinyGo picks the slice's hardware top from the period; levels in
// 0..wrap are scaled onto it in SetDutyCycle.
func (d *PicoPWMDriver) ConfigureHardwarePWM(pin core.PWMPin, frequency uint32, wrap uint32) error {
	if frequency == 0 {
		return errBadFrequency
	}
	pinNum := uint32(pin)

	// RP2040: GPIO pin N maps to:
	//   Slice: (N >> 1) & 0x7  (divide by 2, mod 8)
	//   Channel: N & 1          (even=A, odd=B)
	sliceNum := uint8((pinNum >> 1) & 0x7)

	pwm, exists := d.peripherals[sliceNum]
	if !exists {
		pwm = getPWMPeripheral(sliceNum)
		d.peripherals[sliceNum] = pwm
	}

	// 10 kHz -> 100000 ns
	period := uint64(1000000000) / uint64(frequency)
	if err := pwm.Configure(machine.PWMConfig{Period: period}); err != nil {
		return err
	}

	channel, err := pwm.Channel(machine.Pin(pinNum))
	if err != nil {
		return err
	}

	d.outputs[pinNum] = &pwmOutput{
		slice:   pwm,
		channel: channel,
		wrap:    wrap,
	}
	return nil
}

// SetDutyCycle sets the duty level of a pin, 0 to the configured wrap
func (d *PicoPWMDriver) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	out, exists := d.outputs[uint32(pin)]
	if !exists {
		// Pin not configured
		return nil
	}

	level := uint32(value)
	if level > out.wrap {
		level = out.wrap
	}
	if out.wrap == 0 {
		out.slice.Set(out.channel, 0)
		return nil
	}

	// Use 64-bit math: top can be up to 65535
	duty := uint32(uint64(level) * uint64(out.slice.Top()) / uint64(out.wrap))
	out.slice.Set(out.channel, duty)
	return nil
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
// TinyGo defines PWM0-PWM7 as global variables of type *pwmGroup
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	default:
		// Should never happen with proper masking
		return machine.PWM0
	}
}
