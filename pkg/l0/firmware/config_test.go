package firmware

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
)

type closeRecorder struct {
	io.ReadWriter
	closed chan struct{}
}

func (c *closeRecorder) Close() error {
	close(c.closed)
	return nil
}

func fakeUART(t *testing.T, port io.ReadWriteCloser) {
	orig := openUART
	openUART = func(name string, baud int) (io.ReadWriteCloser, error) {
		require.Equal(t, "ttyFAKE", name)
		return port, nil
	}
	t.Cleanup(func() { openUART = orig })
}

func TestNewEmulator(t *testing.T) {
	boardSide, hostSide := net.Pipe()
	defer hostSide.Close()
	fakeUART(t, boardSide)
	conf := &Config{UARTPort: "ttyFAKE", USBListen: "127.0.0.1:0", Motors: 2, I2C: true}
	emu, err := conf.NewEmulator()
	require.NoError(t, err)
	require.Len(t, emu.Sims, 2)
	require.NotNil(t, emu.I2C)

	ctx := runBoard(t, emu.Board)
	client := runClient(t, ctx, hostSide)
	reqCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, client.Ping(reqCtx, 5))
}

func TestNewEmulatorInvalid(t *testing.T) {
	_, err := (&Config{Motors: comm.MotorCount + 1}).NewEmulator()
	require.Error(t, err)
}

func TestNewEmulatorClosesUARTOnError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	port := &closeRecorder{ReadWriter: &failingPort{}, closed: make(chan struct{})}
	fakeUART(t, port)
	conf := &Config{UARTPort: "ttyFAKE", USBListen: l.Addr().String()}
	_, err = conf.NewEmulator()
	require.Error(t, err)
	select {
	case <-port.closed:
	default:
		t.Fatal("uart left open")
	}
}
