//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"
	"time"

	"flatpanel/core"
)

// debugUART routes core debug output to UART0 (GP0/GP1). USB carries the
// command protocol and must stay clean.
const debugUART = false

var errUSBStalled = errors.New("usb write made no progress")

func main() {
	// Initialize USB CDC immediately
	InitUSB()

	if debugUART {
		initDebugUART()
	}

	// Status LED on the board shows the firmware is running
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// 10 kHz PWM on the panel pin, levels 0-1000
	panel, err := core.NewPanel(NewPicoPWMDriver())
	if err != nil {
		// Flash LED rapidly to indicate error
		for {
			led.High()
			time.Sleep(100 * time.Millisecond)
			led.Low()
			time.Sleep(100 * time.Millisecond)
		}
	}
	led.High()

	core.DebugPrintln("flat panel ready, commands:\n" + panel.Commands().GetDictionary())

	loop := core.NewLoop(usbPort{}, panel, core.DefaultLoopConfig())

	// Main loop
	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					// Clear buffers and continue
					loop.Reset()
					core.DebugPrintln("loop recovered; " + loop.Stats().String())
				}
			}()

			loop.Step()
		}()
	}
}

// initDebugUART sends core debug messages to UART0
func initDebugUART() {
	uart := machine.UART0
	err := uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	if err != nil {
		return
	}

	core.SetDebugWriter(func(msg string) {
		uart.Write([]byte(msg))
		uart.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
}
