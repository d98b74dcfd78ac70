package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	l1comm "github.com/robotalks/dcmotor.go/pkg/l1/comm"
	"github.com/robotalks/dcmotor.go/pkg/l1/comm/stream"
	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().String()
}

func dialRetry(t *testing.T, addr string) net.Conn {
	deadline := time.Now().Add(time.Second)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial %s: %v", addr, err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDaemon(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sims, hostSide := startBoard(t, ctx)
	sims[0].SetFault(true)

	conf := NewConfig()
	conf.Info.Ref.ID = "test"
	conf.MQTTBrokerURL = ""
	conf.StreamListen = freeAddr(t)
	conf.Stream = StreamConfig{Mask: 0x1, IntervalMs: 10}
	d := NewDaemonWith(conf, hostSide)
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	conn := l1comm.NewBridgeConn(stream.New(dialRetry(t, conf.StreamListen)))
	go conn.Run(ctx)
	res := do(t, conn, &msgs.MotorPing{Id: 3})
	require.NoError(t, res.Err)

	msg := nextEvent(t, conn, func(msg msgs.Message) bool {
		_, ok := msg.(*msgs.MotorStatus)
		return ok
	})
	require.Equal(t, &msgs.MotorStatus{MotorId: 0, Current: -1, Fault: true}, msg)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon didn't stop")
	}
}

func TestDaemonStopsOnBoardLoss(t *testing.T) {
	boardSide, hostSide := net.Pipe()
	go func() {
		// swallow the probe and the stream request, then disconnect
		buf := make([]byte, 64)
		boardSide.Read(buf)
		boardSide.Read(buf)
		boardSide.Close()
	}()
	conf := NewConfig()
	conf.Info.Ref.ID = "test"
	conf.MQTTBrokerURL = ""
	conf.StreamListen = freeAddr(t)
	conf.Timeout = 20 * time.Millisecond
	d := NewDaemonWith(conf, hostSide)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon didn't stop")
	}
}
