// Package emulator runs the flat panel firmware in-process and exposes it as
// a serial port, so the host tools can be used and tested without hardware.
package emulator

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"flatpanel/core"
	"flatpanel/protocol"
)

// DeviceName selects the emulator wherever a serial device path is expected
const DeviceName = "emulator"

// linkBufferLength is the capacity of each direction of the emulated link
const linkBufferLength = 4 * protocol.RxBufferLength

var errOutputFull = errors.New("emulator output buffer full")

// Config holds the emulated firmware's settings
type Config struct {
	// PollDelay replaces the firmware's 5 ms poll delay (0 keeps it)
	PollDelay time.Duration `yaml:"poll_delay"`

	// Lenient parses `set` arguments like strtol
	Lenient bool `yaml:"lenient"`

	// ReadTimeout bounds host side reads, like a serial read timeout
	// (0 blocks until data arrives)
	ReadTimeout time.Duration `yaml:"-"`
}

// Emulator is a running firmware instance behind a serial.Port
type Emulator struct {
	mu sync.Mutex
	rx *protocol.FifoBuffer // Host to firmware
	tx *protocol.FifoBuffer // Firmware to host

	rxReady chan struct{}
	txReady chan struct{}
	closed  chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
	once    sync.Once

	readTimeout time.Duration

	// Firmware state, owned by the loop goroutine
	panel *core.Panel
	loop  *core.Loop

	// Snapshots published after every cycle
	output     atomic.Uint32
	brightness atomic.Uint32
	stats      atomic.Pointer[core.Stats]
}

// New starts an emulated panel
func New(cfg Config) (*Emulator, error) {
	e := &Emulator{
		rx:          protocol.NewFifoBuffer(linkBufferLength),
		tx:          protocol.NewFifoBuffer(linkBufferLength),
		rxReady:     make(chan struct{}, 1),
		txReady:     make(chan struct{}, 1),
		closed:      make(chan struct{}),
		done:        make(chan struct{}),
		readTimeout: cfg.ReadTimeout,
	}
	e.stats.Store(&core.Stats{})

	if glog.V(3) {
		core.SetDebugWriter(func(msg string) { glog.Infof("firmware: %s", msg) })
		core.SetDebugEnabled(true)
	}

	var opts []core.PanelOption
	if cfg.Lenient {
		opts = append(opts, core.WithLenientNumbers())
	}
	panel, err := core.NewPanel(pwmRecorder{level: &e.output}, opts...)
	if err != nil {
		return nil, err
	}
	e.panel = panel

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	loopCfg := core.DefaultLoopConfig()
	if cfg.PollDelay > 0 {
		loopCfg.PollDelay = cfg.PollDelay
	}
	loopCfg.Sleep = func(d time.Duration) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
	}
	e.loop = core.NewLoop(firmwarePort{e}, panel, loopCfg)

	go e.run(ctx)
	glog.V(1).Infof("emulator started, poll delay %v", loopCfg.PollDelay)
	return e, nil
}

func (e *Emulator) run(ctx context.Context) {
	defer close(e.done)
	for ctx.Err() == nil {
		cycle := e.loop.Step()
		if cycle != core.CycleIdle {
			glog.V(2).Infof("emulator cycle: %v", cycle)
		}

		e.brightness.Store(uint32(e.panel.Brightness()))
		stats := e.loop.Stats()
		e.stats.Store(&stats)
	}
}

// Output returns the level driven on the emulated PWM pin
func (e *Emulator) Output() core.Level {
	return core.Level(e.output.Load())
}

// Brightness returns the firmware's stored brightness
func (e *Emulator) Brightness() core.Level {
	return core.Level(e.brightness.Load())
}

// Stats returns the firmware loop counters
func (e *Emulator) Stats() core.Stats {
	return *e.stats.Load()
}

// Read returns bytes sent by the firmware. It waits up to the read timeout
// and returns 0, nil when nothing arrived.
func (e *Emulator) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	var timeout <-chan time.Time
	if e.readTimeout > 0 {
		t := time.NewTimer(e.readTimeout)
		defer t.Stop()
		timeout = t.C
	}

	for {
		e.mu.Lock()
		n := e.tx.Read(b)
		e.mu.Unlock()
		if n > 0 {
			return n, nil
		}

		select {
		case <-e.txReady:
		case <-e.closed:
			return 0, os.ErrClosed
		case <-timeout:
			return 0, nil
		}
	}
}

// Write queues a chunk for the firmware. A chunk is delivered whole or not
// at all.
func (e *Emulator) Write(b []byte) (int, error) {
	select {
	case <-e.closed:
		return 0, os.ErrClosed
	default:
	}

	e.mu.Lock()
	if e.rx.Free() < len(b) {
		e.mu.Unlock()
		return 0, io.ErrShortWrite
	}
	n := e.rx.Write(b)
	e.mu.Unlock()

	notify(e.rxReady)
	return n, nil
}

// Flush discards firmware output not yet read
func (e *Emulator) Flush() error {
	e.mu.Lock()
	e.tx.Reset()
	e.mu.Unlock()
	return nil
}

// Close stops the firmware loop
func (e *Emulator) Close() error {
	e.once.Do(func() {
		close(e.closed)
		e.cancel()
		<-e.done
		glog.V(1).Infof("emulator stopped: %s", e.Stats())
	})
	return nil
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// firmwarePort is the firmware's side of the link
type firmwarePort struct {
	e *Emulator
}

func (p firmwarePort) ReadByteTimeout(timeout time.Duration) (byte, bool) {
	e := p.e
	e.mu.Lock()
	b, ok := e.rx.PopByte()
	e.mu.Unlock()
	if ok {
		return b, true
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-e.rxReady:
	case <-t.C:
	case <-e.closed:
		return 0, false
	}

	e.mu.Lock()
	b, ok = e.rx.PopByte()
	e.mu.Unlock()
	return b, ok
}

func (p firmwarePort) Write(data []byte) (int, error) {
	e := p.e
	e.mu.Lock()
	n := e.tx.Write(data)
	e.mu.Unlock()

	notify(e.txReady)
	if n < len(data) {
		return n, errOutputFull
	}
	return n, nil
}

// pwmRecorder stands in for the PWM hardware and records the driven level
type pwmRecorder struct {
	level *atomic.Uint32
}

func (r pwmRecorder) ConfigureHardwarePWM(pin core.PWMPin, frequency uint32, wrap uint32) error {
	glog.V(1).Infof("emulated pwm on pin %d: %d Hz, wrap %d", pin, frequency, wrap)
	return nil
}

func (r pwmRecorder) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	r.level.Store(uint32(value))
	return nil
}
