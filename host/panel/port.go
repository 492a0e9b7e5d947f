package panel

import (
	"time"

	"flatpanel/host/emulator"
	"flatpanel/host/serial"
)

// OpenPort opens the configured device. The device name "emulator" starts an
// in-process firmware instead of opening a serial port.
func OpenPort(portCfg *serial.Config, emuCfg emulator.Config) (serial.Port, error) {
	if portCfg != nil && portCfg.Device == emulator.DeviceName {
		if emuCfg.ReadTimeout == 0 {
			emuCfg.ReadTimeout = time.Duration(portCfg.ReadTimeout) * time.Millisecond
		}
		emu, err := emulator.New(emuCfg)
		if err != nil {
			return nil, err
		}
		return emu, nil
	}

	port, err := serial.Open(portCfg)
	if err != nil {
		return nil, err
	}
	return port, nil
}
