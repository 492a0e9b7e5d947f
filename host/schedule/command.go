package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/shlex"

	"flatpanel/host/panel"
)

var errBadCommand = errors.New("invalid scheduled command")

// ScriptRunner runs a named calibration script
type ScriptRunner interface {
	RunFile(ctx context.Context, name string) error
}

// action is a parsed scheduled command
type action func(ctx context.Context, dev panel.Device, scripts ScriptRunner) error

// parseCommand accepts "on", "off", "set N" and "run SCRIPT". Arguments may be
// quoted the way a shell would.
func parseCommand(command string) (action, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadCommand, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty", errBadCommand)
	}

	switch args[0] {
	case "on":
		if len(args) != 1 {
			break
		}
		return func(ctx context.Context, dev panel.Device, _ ScriptRunner) error {
			return dev.On(ctx)
		}, nil

	case "off":
		if len(args) != 1 {
			break
		}
		return func(ctx context.Context, dev panel.Device, _ ScriptRunner) error {
			return dev.Off(ctx)
		}, nil

	case "set":
		if len(args) != 2 {
			break
		}
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("%w: brightness %q", errBadCommand, args[1])
		}
		return func(ctx context.Context, dev panel.Device, _ ScriptRunner) error {
			return dev.SetBrightness(ctx, level)
		}, nil

	case "run":
		if len(args) != 2 {
			break
		}
		name := args[1]
		return func(ctx context.Context, _ panel.Device, scripts ScriptRunner) error {
			if scripts == nil {
				return errors.New("scripts are not available")
			}
			return scripts.RunFile(ctx, name)
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown command %q", errBadCommand, args[0])
	}

	return nil, fmt.Errorf("%w: wrong argument count for %q", errBadCommand, args[0])
}
