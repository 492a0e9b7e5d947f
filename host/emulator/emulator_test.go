package emulator

import (
	"bufio"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flatpanel/core"
)

func newTestEmulator(t *testing.T, cfg Config) *Emulator {
	if cfg.PollDelay == 0 {
		cfg.PollDelay = time.Millisecond
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = time.Second
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func roundTrip(t *testing.T, e *Emulator, r *bufio.Reader, line string) string {
	_, err := e.Write([]byte(line))
	require.NoError(t, err)
	ack, err := r.ReadString('\n')
	require.NoError(t, err)
	return ack
}

func TestEmulatorCommands(t *testing.T) {
	e := newTestEmulator(t, Config{})
	r := bufio.NewReader(e)

	require.Equal(t, "#\n", roundTrip(t, e, r, "set 500\n"))
	require.Equal(t, core.Level(500), e.Output())

	require.Equal(t, "#\n", roundTrip(t, e, r, "off\n"))
	require.Equal(t, core.Level(0), e.Output())

	require.Equal(t, "#\n", roundTrip(t, e, r, "on\n"))
	require.Equal(t, core.Level(500), e.Output())

	require.Equal(t, "!\n", roundTrip(t, e, r, "blink\n"))
	require.Equal(t, "#\n", roundTrip(t, e, r, "\n"))
	require.Equal(t, "#\n", roundTrip(t, e, r, "set 5000\n"))
	require.Equal(t, core.Level(1000), e.Output())

	require.Eventually(t, func() bool {
		s := e.Stats()
		return s.Lines == 6 && s.Failures == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, core.Level(1000), e.Brightness())
}

func TestEmulatorStrictAndLenient(t *testing.T) {
	strict := newTestEmulator(t, Config{})
	require.Equal(t, "!\n", roundTrip(t, strict, bufio.NewReader(strict), "set abc\n"))

	lenient := newTestEmulator(t, Config{Lenient: true})
	r := bufio.NewReader(lenient)
	require.Equal(t, "#\n", roundTrip(t, lenient, r, "set 300\n"))
	require.Equal(t, "#\n", roundTrip(t, lenient, r, "set abc\n"))
	require.Equal(t, core.Level(0), lenient.Output())
}

func TestEmulatorReadTimeout(t *testing.T) {
	e := newTestEmulator(t, Config{ReadTimeout: 10 * time.Millisecond})
	buf := make([]byte, 8)
	n, err := e.Read(buf)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestEmulatorFlush(t *testing.T) {
	e := newTestEmulator(t, Config{ReadTimeout: 20 * time.Millisecond})
	_, err := e.Write([]byte("on\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return e.Stats().Lines == 1 }, time.Second, time.Millisecond)

	require.NoError(t, e.Flush())
	n, err := e.Read(make([]byte, 8))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestEmulatorClose(t *testing.T) {
	e := newTestEmulator(t, Config{})
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err := e.Write([]byte("on\n"))
	require.ErrorIs(t, err, os.ErrClosed)
	_, err = e.Read(make([]byte, 1))
	require.ErrorIs(t, err, os.ErrClosed)
}
