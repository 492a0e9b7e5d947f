package panel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flatpanel/core"
	"flatpanel/host/emulator"
	"flatpanel/host/serial"
)

func newEmulatedClient(t *testing.T) (*Client, *emulator.Emulator) {
	emu, err := emulator.New(emulator.Config{
		PollDelay:   time.Millisecond,
		ReadTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	c := New(emu, Config{AckTimeout: time.Second})
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { c.Close(context.Background()) })
	return c, emu
}

// replyPort answers every write with a fixed reply
type replyPort struct {
	mu      sync.Mutex
	reply   []byte
	pending []byte
	writes  []string
	closed  bool
}

func (p *replyPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	if n == 0 {
		time.Sleep(time.Millisecond)
	}
	return n, nil
}

func (p *replyPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, string(b))
	p.pending = append(p.pending, p.reply...)
	return len(b), nil
}

func (p *replyPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
	return nil
}

func (p *replyPort) Close() error {
	p.closed = true
	return nil
}

var _ serial.Port = (*replyPort)(nil)

func TestClientConnectSwitchesOff(t *testing.T) {
	c, emu := newEmulatedClient(t)
	require.Equal(t, StateOff, c.State())
	require.Equal(t, 0, c.Brightness())
	require.Equal(t, core.Level(0), emu.Output())
	require.Eventually(t, func() bool { return emu.Stats().Lines == 1 }, time.Second, time.Millisecond)
}

func TestClientBrightness(t *testing.T) {
	ctx := context.Background()
	c, emu := newEmulatedClient(t)

	require.NoError(t, c.SetBrightness(ctx, 500))
	require.Equal(t, StateReady, c.State())
	require.Equal(t, 500, c.Brightness())
	require.Equal(t, core.Level(500), emu.Output())

	require.NoError(t, c.Off(ctx))
	require.Equal(t, StateOff, c.State())
	require.Equal(t, 0, c.Brightness())
	require.Equal(t, core.Level(0), emu.Output())

	require.NoError(t, c.On(ctx))
	require.Equal(t, StateReady, c.State())
	require.Equal(t, 500, c.Brightness())
	require.Equal(t, core.Level(500), emu.Output())

	require.NoError(t, c.Ping(ctx))
	require.Equal(t, 1000, c.MaxBrightness())
}

func TestClientRejectsOutOfRange(t *testing.T) {
	c, emu := newEmulatedClient(t)

	for _, level := range []int{-1, 1001} {
		err := c.SetBrightness(context.Background(), level)
		var invalid *InvalidValueError
		require.True(t, errors.As(err, &invalid))
		require.Equal(t, level, invalid.Value)
		require.Equal(t, 1000, invalid.Max)
	}
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 1, emu.Stats().Lines)
}

func TestClientFailureAck(t *testing.T) {
	c, _ := newEmulatedClient(t)
	require.ErrorIs(t, c.Exec(context.Background(), "blink"), ErrRejected)
	require.ErrorIs(t, c.Exec(context.Background(), "set", "1", "2"), ErrRejected)
}

func TestClientNotConnected(t *testing.T) {
	port := &replyPort{reply: []byte("#\n")}
	c := New(port, DefaultConfig())
	require.Equal(t, StateUnknown, c.State())
	require.ErrorIs(t, c.On(context.Background()), ErrNotConnected)
	require.ErrorIs(t, c.SetBrightness(context.Background(), 10), ErrNotConnected)
	require.Empty(t, port.writes)
}

func TestClientNoAck(t *testing.T) {
	port := &replyPort{}
	c := New(port, Config{AckTimeout: 20 * time.Millisecond})
	require.ErrorIs(t, c.Connect(context.Background()), ErrNoAck)
	require.False(t, c.Connected())
	require.Equal(t, []string{"off\n"}, port.writes)
}

func TestClientIgnoresNoiseBeforeAck(t *testing.T) {
	port := &replyPort{reply: []byte("xx#\n")}
	c := New(port, DefaultConfig())
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.SetBrightness(context.Background(), 42))
	require.Equal(t, []string{"off\n", "set 42\n"}, port.writes)
}

func TestClientBadAck(t *testing.T) {
	port := &replyPort{reply: []byte("?\n")}
	c := New(port, DefaultConfig())
	require.Error(t, c.Connect(context.Background()))
}

func TestClientLineTooLong(t *testing.T) {
	port := &replyPort{reply: []byte("#\n")}
	c := New(port, DefaultConfig())
	require.NoError(t, c.Connect(context.Background()))

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	require.Error(t, c.Exec(context.Background(), string(long)))
	require.Len(t, port.writes, 1)
}

func TestClientCloseSwitchesOff(t *testing.T) {
	port := &replyPort{reply: []byte("#\n")}
	c := New(port, DefaultConfig())
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close(context.Background()))

	require.True(t, port.closed)
	require.Equal(t, []string{"off\n", "off\n"}, port.writes)
	require.Equal(t, StateUnknown, c.State())
}

func TestClientContextCancel(t *testing.T) {
	port := &replyPort{}
	c := New(port, Config{AckTimeout: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Connect(ctx), context.DeadlineExceeded)
}

func TestOpenEmulator(t *testing.T) {
	cfg := serial.DefaultConfig(emulator.DeviceName)
	c, err := Open(context.Background(), cfg, emulator.Config{PollDelay: time.Millisecond}, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, StateOff, c.State())
	require.NoError(t, c.Close(context.Background()))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "ready", StateReady.String())
	require.Equal(t, "unknown", State(42).String())
}
