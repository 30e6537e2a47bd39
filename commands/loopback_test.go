package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialtool/serial"
)

// echoPort feeds every write back into its own receive buffer
type echoPort struct {
	*serial.MockPort
	mangle bool
}

func (p *echoPort) Write(data []byte) (int, error) {
	n, err := p.MockPort.Write(data)
	if err != nil {
		return n, err
	}
	echo := append([]byte(nil), data...)
	if p.mangle {
		echo[0] ^= 0xFF
	}
	p.Inject(echo)
	return n, nil
}

func echoOpener(mangle bool) serial.Opener {
	return func(cfg serial.PortConfig) (serial.Port, error) {
		return &echoPort{MockPort: serial.NewMockPort(cfg.Device, cfg.BaudRate), mangle: mangle}, nil
	}
}

func newLoopbackTest() loopbackTest {
	return loopbackTest{
		Port:    serial.PortConfig{Device: "COM1", BaudRate: 9600},
		Message: "TEST",
		Count:   3,
		Wait:    200 * time.Millisecond,
	}
}

func TestLoopback_EchoSucceeds(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, newLoopbackTest().Run(context.Background(), echoOpener(false), &out))

	assert.Contains(t, out.String(), "OK   TEST-1")
	assert.Contains(t, out.String(), "OK   TEST-3")
	assert.Contains(t, out.String(), "Loopback OK: 3 messages")
}

func TestLoopback_MismatchFails(t *testing.T) {
	var out bytes.Buffer
	err := newLoopbackTest().Run(context.Background(), echoOpener(true), &out)
	assert.EqualError(t, err, "loopback failed: 3 of 3 messages did not echo")
	assert.Contains(t, out.String(), "received different")
}

func TestLoopback_SilentPortFails(t *testing.T) {
	bus := serial.NewMockBus("COM1")
	test := newLoopbackTest()
	test.Count = 1
	test.Wait = 30 * time.Millisecond

	var out bytes.Buffer
	err := test.Run(context.Background(), bus.Open, &out)
	assert.EqualError(t, err, "loopback failed: 1 of 1 messages did not echo")
	assert.Contains(t, out.String(), "timeout")
	assert.False(t, bus.Port("COM1").IsOpen())
}

func TestLoopback_OpenError(t *testing.T) {
	failing := func(serial.PortConfig) (serial.Port, error) {
		return nil, errors.New("access denied")
	}
	err := newLoopbackTest().Run(context.Background(), failing, &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to open port: access denied")
}
