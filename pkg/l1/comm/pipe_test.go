package comm

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

type chanReadWriter struct {
	in  <-chan []byte
	out chan<- []byte

	closed    chan struct{}
	closeOnce sync.Once
}

func newPacketPair() (*chanReadWriter, *chanReadWriter) {
	ab, ba := make(chan []byte, 8), make(chan []byte, 8)
	return &chanReadWriter{in: ba, out: ab, closed: make(chan struct{})},
		&chanReadWriter{in: ab, out: ba, closed: make(chan struct{})}
}

func (rw *chanReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-rw.in:
		return pkt, nil
	case <-rw.closed:
		return nil, io.EOF
	}
}

func (rw *chanReadWriter) WritePacket(pkt []byte) error {
	select {
	case rw.out <- pkt:
		return nil
	case <-rw.closed:
		return io.ErrClosedPipe
	}
}

func (rw *chanReadWriter) Close() error {
	rw.closeOnce.Do(func() { close(rw.closed) })
	return nil
}

func (rw *chanReadWriter) writeTyped(t *testing.T, typed *msgs.Typed) {
	pkt, err := typed.Encode()
	require.NoError(t, err)
	require.NoError(t, rw.WritePacket(pkt))
}

func (rw *chanReadWriter) writeMsg(t *testing.T, msg msgs.Message, seq uint32) {
	typed, err := msgs.TypedFrom(msg)
	require.NoError(t, err)
	typed.Sequence = seq
	rw.writeTyped(t, typed)
}

func (rw *chanReadWriter) readTyped(t *testing.T) (*msgs.Typed, msgs.Message) {
	select {
	case pkt := <-rw.in:
		typed, err := msgs.DecodeTyped(pkt)
		require.NoError(t, err)
		msg, err := typed.Decode()
		require.NoError(t, err)
		return typed, msg
	case <-time.After(time.Second):
		t.Fatal("no packet")
	}
	return nil, nil
}

func TestPipeRepliesUnknownCommand(t *testing.T) {
	local, remote := newPacketPair()
	pipe := NewPipe(local)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pipe.Run(ctx)

	remote.writeTyped(t, &msgs.Typed{TypeId: 0x7f000001, Sequence: 5})
	typed, msg := remote.readTyped(t)
	require.Equal(t, msgs.CommandErrTypeID, typed.TypeId)
	require.Equal(t, uint32(5), typed.Sequence)
	require.Equal(t, "unknown type: 7f000001", msg.(*msgs.CommandErr).Message)
}

func TestPipeHandler(t *testing.T) {
	local, remote := newPacketPair()
	pipe := NewPipe(local)
	stop := errors.New("stop")
	received := make(chan msgs.Message, 2)
	pipe.Handler = msgs.HandleTypedMsgFunc(func(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
		received <- msg
		if typed.IsReply() {
			return stop
		}
		return nil
	})
	errCh := make(chan error, 1)
	go func() { errCh <- pipe.Run(context.Background()) }()

	require.NoError(t, remote.WritePacket([]byte{0xff, 0xff}))
	remote.writeMsg(t, &msgs.MotorStatus{MotorId: 1, Speed: 0.5}, 0)
	remote.writeMsg(t, &msgs.MotorPong{Id: 2}, 9)
	require.Equal(t, stop, <-errCh)
	require.Equal(t, &msgs.MotorStatus{MotorId: 1, Speed: 0.5}, <-received)
	require.Equal(t, &msgs.MotorPong{Id: 2}, <-received)

	_, err := local.ReadPacket()
	require.Equal(t, io.EOF, err, "closed when Run returns")
}

func TestPipeSendKinds(t *testing.T) {
	local, _ := newPacketPair()
	pipe := NewPipe(local)
	require.Equal(t, ErrNotEvent, pipe.SendEventMsg(&msgs.MotorPing{Id: 1}))
	require.Equal(t, ErrNotCommand, pipe.SendCommandMsg(&msgs.MotorStatus{}, 1))
	require.NoError(t, pipe.SendEventMsg(&msgs.MotorFault{Message: "x"}))
}

func TestBridgeConnCommands(t *testing.T) {
	local, remote := newPacketPair()
	conn := NewBridgeConn(local)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()

	f := conn.DoCommand(&msgs.MotorPing{Id: 3})
	typed, msg := remote.readTyped(t)
	require.Equal(t, &msgs.MotorPing{Id: 3}, msg)
	remote.writeMsg(t, &msgs.MotorPong{Id: 3}, typed.Sequence)
	res := <-f.ResultChan()
	require.NoError(t, res.Err)
	require.Equal(t, &msgs.MotorPong{Id: 3}, res.Msg)

	f = conn.DoCommand(&msgs.MotorReset{})
	typed, _ = remote.readTyped(t)
	remote.writeMsg(t, msgs.NewCommandErrFromMsg("denied"), typed.Sequence+100)
	remote.writeMsg(t, msgs.NewCommandErrFromMsg("denied"), typed.Sequence)
	res = <-f.ResultChan()
	require.Error(t, res.Err)
	require.Equal(t, "denied", res.Err.Error())

	remote.writeMsg(t, &msgs.MotorStatus{MotorId: 2}, 0)
	select {
	case ev := <-conn.Events():
		require.Equal(t, &msgs.MotorStatus{MotorId: 2}, ev)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	f = conn.DoCommand(&msgs.MotorInfoQuery{})
	remote.readTyped(t)
	cancel()
	res = <-f.ResultChan()
	require.Equal(t, context.DeadlineExceeded, res.Err)
	<-done
	_, ok := <-conn.Events()
	require.False(t, ok, "events closed when Run returns")
}

func TestBridgeConnExpiration(t *testing.T) {
	local, remote := newPacketPair()
	conn := NewBridgeConn(local)
	conn.Expiration = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	f := conn.DoCommand(&msgs.MotorVersionQuery{})
	remote.readTyped(t)
	select {
	case res := <-f.ResultChan():
		require.Equal(t, context.DeadlineExceeded, res.Err)
	case <-time.After(time.Second):
		t.Fatal("command not expired")
	}
}
