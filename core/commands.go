package core

import "flatpanel/protocol"

// registerCommands wires the protocol commands to the panel
func (p *Panel) registerCommands() {
	// on/off never look at their arguments
	p.commands.Register(protocol.CmdOn, "", AnyArgs, p.handleOn)
	p.commands.Register(protocol.CmdOff, "", AnyArgs, p.handleOff)
	p.commands.Register(protocol.CmdSet, "value=%d", 1, p.handleSet)
}

// handleOn applies the stored brightness
// Format: on
func (p *Panel) handleOn(args []string) error {
	return p.On()
}

// handleOff forces the output to 0
// Format: off
func (p *Panel) handleOff(args []string) error {
	return p.Off()
}

// handleSet stores and applies a new brightness
// Format: set value=%d
func (p *Panel) handleSet(args []string) error {
	value, ok := parseInt(args[0], p.lenient)
	if !ok {
		return ErrInvalidNumber
	}
	return p.Set(int(value))
}
