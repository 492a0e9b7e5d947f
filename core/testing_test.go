package core

import (
	"errors"
	"time"
)

// MockPWMDriver records every duty cycle written per pin
type MockPWMDriver struct {
	configured map[PWMPin][2]uint32 // frequency, wrap
	levels     map[PWMPin]PWMValue
	writes     int
	failWith   error
}

func NewMockPWMDriver() *MockPWMDriver {
	return &MockPWMDriver{
		configured: make(map[PWMPin][2]uint32),
		levels:     make(map[PWMPin]PWMValue),
	}
}

func (m *MockPWMDriver) ConfigureHardwarePWM(pin PWMPin, frequency uint32, wrap uint32) error {
	m.configured[pin] = [2]uint32{frequency, wrap}
	return nil
}

func (m *MockPWMDriver) SetDutyCycle(pin PWMPin, value PWMValue) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.configured[pin]; !ok {
		return errors.New("pin not configured")
	}
	m.levels[pin] = value
	m.writes++
	return nil
}

// scriptedPort delivers bursts of bytes. Each burst ends with one poll
// timeout, the way a host write looks to the polling reader.
type scriptedPort struct {
	bursts [][]byte
	out    []byte
	polls  int
}

func (p *scriptedPort) send(s string) {
	p.bursts = append(p.bursts, []byte(s))
}

func (p *scriptedPort) ReadByteTimeout(timeout time.Duration) (byte, bool) {
	p.polls++
	if len(p.bursts) == 0 {
		return 0, false
	}
	burst := p.bursts[0]
	if len(burst) == 0 {
		p.bursts = p.bursts[1:]
		return 0, false
	}
	p.bursts[0] = burst[1:]
	return burst[0], true
}

func (p *scriptedPort) Write(data []byte) (int, error) {
	p.out = append(p.out, data...)
	return len(data), nil
}

// takeOutput returns and clears everything the loop wrote
func (p *scriptedPort) takeOutput() string {
	out := string(p.out)
	p.out = nil
	return out
}

// noSleep returns a LoopConfig that never sleeps and counts requested delays
func noSleep(slept *time.Duration) LoopConfig {
	cfg := DefaultLoopConfig()
	cfg.Sleep = func(d time.Duration) {
		if slept != nil {
			*slept += d
		}
	}
	return cfg
}

func newTestLoop(opts ...PanelOption) (*Loop, *Panel, *scriptedPort, *MockPWMDriver) {
	pwm := NewMockPWMDriver()
	panel, err := NewPanel(pwm, opts...)
	if err != nil {
		panic(err)
	}
	port := &scriptedPort{}
	return NewLoop(port, panel, noSleep(nil)), panel, port, pwm
}
