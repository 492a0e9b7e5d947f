package core

import (
	"context"
	"time"

	"flatpanel/protocol"
)

// Default loop timing of the panel firmware
const (
	DefaultReadTimeout = time.Microsecond
	DefaultPollDelay   = 5 * time.Millisecond
)

// LoopConfig holds the polling cadence of the command loop
type LoopConfig struct {
	// ReadTimeout bounds each single-byte poll
	ReadTimeout time.Duration

	// PollDelay is slept after every captured byte and after every cycle
	PollDelay time.Duration

	// Sleep is used for all delays (time.Sleep when nil)
	Sleep func(time.Duration)
}

// DefaultLoopConfig returns the firmware's timing
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		ReadTimeout: DefaultReadTimeout,
		PollDelay:   DefaultPollDelay,
		Sleep:       time.Sleep,
	}
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	return c
}

// Cycle reports what one pass of the loop did
type Cycle uint8

const (
	CycleIdle    Cycle = iota // Nothing was read
	CycleEmpty                // Empty line, acknowledged as success
	CycleSuccess              // Command dispatched successfully
	CycleFailure              // Command rejected
	CycleDropped              // Unterminated bytes discarded without ack
)

var cycleNames = [...]string{"idle", "empty", "success", "failure", "dropped"}

func (c Cycle) String() string {
	if int(c) < len(cycleNames) {
		return cycleNames[c]
	}
	return "cycle(" + itoa(int(c)) + ")"
}

// Stats counts loop activity since boot
type Stats struct {
	Lines       uint32 // Terminated lines, including empty ones
	Failures    uint32 // Lines answered with a failure ack
	Dropped     uint32 // Unterminated reads discarded
	WriteErrors uint32 // Acks the transport refused
}

func (s Stats) String() string {
	return "lines=" + utoa(s.Lines) + " failures=" + utoa(s.Failures) +
		" dropped=" + utoa(s.Dropped) + " write_errors=" + utoa(s.WriteErrors)
}

// Loop is the firmware's command loop: read a line, dispatch it, acknowledge,
// clear the buffer, sleep, repeat.
type Loop struct {
	port   SerialPort
	panel  *Panel
	reader *LineReader
	tx     *protocol.ScratchOutput
	cfg    LoopConfig
	stats  Stats
}

// NewLoop creates a command loop reading from port and driving panel
func NewLoop(port SerialPort, panel *Panel, cfg LoopConfig) *Loop {
	cfg = cfg.withDefaults()
	return &Loop{
		port:   port,
		panel:  panel,
		reader: NewLineReader(port, cfg),
		tx:     protocol.NewScratchOutput(),
		cfg:    cfg,
	}
}

// Stats returns the loop counters
func (l *Loop) Stats() Stats {
	return l.stats
}

// Step runs one read cycle
func (l *Loop) Step() Cycle {
	line := l.reader.ReadLine()
	result := l.process(line)

	l.reader.Reset()
	l.cfg.Sleep(l.cfg.PollDelay)
	return result
}

// Run steps until ctx is cancelled. On hardware ctx is never cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.Step()
	}
}

func (l *Loop) process(line []byte) Cycle {
	n := len(line)
	switch {
	case n == 0:
		return CycleIdle

	case n == 1 && line[0] == protocol.LineTerminator:
		l.stats.Lines++
		l.acknowledge(true)
		return CycleEmpty

	case line[n-1] == protocol.LineTerminator:
		l.stats.Lines++
		args := protocol.Tokenize(line[:n-1])
		if err := l.panel.Dispatch(args); err != nil {
			l.stats.Failures++
			DebugPrintln("command rejected: " + err.Error())
			l.acknowledge(false)
			return CycleFailure
		}
		l.acknowledge(true)
		return CycleSuccess

	default:
		// Buffer filled, or the sender paused longer than a poll
		l.stats.Dropped++
		DebugPrintln("dropped unterminated input: " + itoa(n) + " bytes")
		return CycleDropped
	}
}

func (l *Loop) acknowledge(ok bool) {
	l.tx.Reset()
	protocol.WriteAck(l.tx, ok)
	if _, err := l.port.Write(l.tx.Result()); err != nil {
		l.stats.WriteErrors++
		DebugPrintln("ack write failed: " + err.Error())
	}
}

// Reset discards any partially processed cycle
func (l *Loop) Reset() {
	l.reader.Reset()
	l.tx.Reset()
}
