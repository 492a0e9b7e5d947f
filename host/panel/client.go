// Package panel is the host driver of the flat panel: it sends line commands
// over a serial port and tracks the calibrator state.
package panel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"

	"flatpanel/core"
	"flatpanel/host/emulator"
	"flatpanel/host/serial"
	"flatpanel/protocol"
)

// Client defaults
const (
	DefaultAckTimeout   = time.Second
	DefaultCommandRate  = 20 // Commands per second
	DefaultCommandBurst = 1
)

// Config holds the client's settings
type Config struct {
	// AckTimeout bounds the wait for each acknowledgment
	AckTimeout time.Duration `yaml:"ack_timeout"`

	// CommandRate limits commands per second (0 disables the limit)
	CommandRate float64 `yaml:"command_rate"`

	// CommandBurst is the number of commands sent back to back
	CommandBurst int `yaml:"command_burst"`
}

// DefaultConfig returns the client defaults
func DefaultConfig() Config {
	return Config{
		AckTimeout:   DefaultAckTimeout,
		CommandRate:  DefaultCommandRate,
		CommandBurst: DefaultCommandBurst,
	}
}

// Device is the panel as seen by scripts, schedules and the MQTT bridge
type Device interface {
	On(ctx context.Context) error
	Off(ctx context.Context) error
	SetBrightness(ctx context.Context, level int) error
	Brightness() int
	State() State
}

// Client drives one panel. It is safe for concurrent use; commands are
// serialized on the link.
type Client struct {
	mu      sync.Mutex
	port    serial.Port
	limiter *rate.Limiter
	timeout time.Duration

	connected  bool
	state      State
	brightness int // Reported brightness, 0 while off
	stored     int // Last brightness sent with `set`, restored by `on`
}

var _ Device = (*Client)(nil)

// New wraps an open port. Call Connect before issuing commands.
func New(port serial.Port, cfg Config) *Client {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	limit := rate.Inf
	if cfg.CommandRate > 0 {
		limit = rate.Limit(cfg.CommandRate)
	}
	if cfg.CommandBurst <= 0 {
		cfg.CommandBurst = DefaultCommandBurst
	}

	return &Client{
		port:    port,
		limiter: rate.NewLimiter(limit, cfg.CommandBurst),
		timeout: cfg.AckTimeout,
	}
}

// Open opens the device (the emulator for "emulator") and connects to it
func Open(ctx context.Context, portCfg *serial.Config, emuCfg emulator.Config, cfg Config) (*Client, error) {
	port, err := OpenPort(portCfg, emuCfg)
	if err != nil {
		return nil, err
	}

	c := New(port, cfg)
	if err := c.Connect(ctx); err != nil {
		port.Close()
		return nil, err
	}
	return c, nil
}

// Connect switches the panel off so that it starts from a known state
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = true
	c.state = StateNotReady
	c.mu.Unlock()

	if err := c.Off(ctx); err != nil {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		return fmt.Errorf("connect: %w", err)
	}
	glog.Info("panel connected")
	return nil
}

// Close switches the panel off and closes the port
func (c *Client) Close(ctx context.Context) error {
	var offErr error
	if c.Connected() {
		offErr = c.Off(ctx)
	}

	c.mu.Lock()
	c.connected = false
	c.state = StateUnknown
	err := c.port.Close()
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if offErr != nil {
		return fmt.Errorf("switch off: %w", offErr)
	}
	glog.Info("panel disconnected")
	return nil
}

// Connected reports whether Connect succeeded and Close was not called
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Ping sends an empty line, which the firmware always acknowledges
func (c *Client) Ping(ctx context.Context) error {
	return c.Exec(ctx)
}

// On lights the panel at the brightness last set
func (c *Client) On(ctx context.Context) error {
	if err := c.Exec(ctx, protocol.CmdOn); err != nil {
		return err
	}

	c.mu.Lock()
	c.brightness = c.stored
	c.state = StateReady
	c.mu.Unlock()
	return nil
}

// Off switches the backlight off, keeping the firmware's stored brightness
func (c *Client) Off(ctx context.Context) error {
	if err := c.Exec(ctx, protocol.CmdOff); err != nil {
		return err
	}

	c.mu.Lock()
	c.brightness = 0
	c.state = StateOff
	c.mu.Unlock()
	return nil
}

// SetBrightness lights the panel at level, 0 to MaxBrightness
func (c *Client) SetBrightness(ctx context.Context, level int) error {
	if level < 0 || level > c.MaxBrightness() {
		return &InvalidValueError{Op: "set brightness", Value: level, Min: 0, Max: c.MaxBrightness()}
	}
	if !c.Connected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.state = StateNotReady
	c.mu.Unlock()

	if err := c.Exec(ctx, protocol.CmdSet, fmt.Sprint(level)); err != nil {
		return err
	}

	c.mu.Lock()
	c.brightness = level
	c.stored = level
	c.state = StateReady
	c.mu.Unlock()
	return nil
}

// Brightness returns the current brightness, 0 while the panel is off
func (c *Client) Brightness() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brightness
}

// State returns the calibrator state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return StateUnknown
	}
	return c.state
}

// MaxBrightness is the highest accepted brightness
func (c *Client) MaxBrightness() int {
	return int(core.MaxBrightness)
}

// Exec sends one command line and waits for its acknowledgment
func (c *Client) Exec(ctx context.Context, args ...string) error {
	line, err := protocol.EncodeCommand(args...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	// Drop leftovers from earlier commands
	if err := c.port.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	glog.V(2).Infof("TX %q", line)
	if _, err := c.port.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	ack, err := c.readAck(ctx)
	if err != nil {
		return err
	}
	glog.V(2).Infof("RX %q", ack)

	ok, err := protocol.DecodeAck(ack)
	if err != nil {
		return fmt.Errorf("%w: %q", err, ack)
	}
	if !ok {
		return ErrRejected
	}
	return nil
}

// readAck reads until a line terminator or the ack timeout
func (c *Client) readAck(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(c.timeout)
	var line []byte
	buf := make([]byte, protocol.TxBufferLength)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, ErrNoAck
		}

		n, err := c.port.Read(buf)
		if n > 0 {
			line = append(line, buf[:n]...)
			if i := bytes.IndexByte(line, protocol.LineTerminator); i >= 0 {
				return line[:i+1], nil
			}
		}
		// Serial read timeouts surface as 0 bytes or io.EOF
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read: %w", err)
		}
	}
}
