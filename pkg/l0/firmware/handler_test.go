package firmware

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l0/motor"
)

type handlerTestEnv struct {
	t       *testing.T
	ctx     context.Context
	sims    []*motor.Sim
	handler *Handler
	dc      *Context
}

func newHandlerTestEnv(t *testing.T, installed bool) *handlerTestEnv {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	bank := &motor.Bank{}
	env := &handlerTestEnv{
		t:       t,
		ctx:     ctx,
		sims:    motor.NewSims(comm.MotorCount),
		handler: &Handler{Motors: bank, Watchdog: NewWatchdog(bank)},
		dc:      NewContext("test"),
	}
	if installed {
		bank.Install(motor.Motors(env.sims)...)
	}
	return env
}

func (e *handlerTestEnv) handle(pkts ...comm.HostPacket) {
	for _, p := range pkts {
		require.NoError(e.t, e.handler.HandlePacket(e.ctx, e.dc, p))
	}
}

func (e *handlerTestEnv) expect(pkts ...comm.DevicePacket) {
	for i, want := range pkts {
		select {
		case got := <-e.dc.Outbound():
			require.Equalf(e.t, want, got, "packet[%d] mismatch", i)
		case <-time.After(500 * time.Millisecond):
			e.t.Fatalf("packet[%d]: timeout", i)
		}
	}
}

func (e *handlerTestEnv) expectEmpty() {
	select {
	case pkt := <-e.dc.Outbound():
		e.t.Fatalf("unexpected packet %s", comm.Describe(pkt))
	default:
	}
}

func TestHandlerReplies(t *testing.T) {
	env := newHandlerTestEnv(t, true)
	env.handle(
		comm.Ping{ID: 3},
		comm.ReadProtocolVersion{},
		comm.ReadSoftwareInfo{},
	)
	env.expect(
		comm.Pong{ID: 3},
		comm.ProtocolVersionResponse{Version: comm.ProtocolVersion},
		comm.ErrorPacket{Kind: comm.ErrorUnimplemented},
	)
	env.expectEmpty()
}

func TestHandlerSetSpeed(t *testing.T) {
	env := newHandlerTestEnv(t, true)
	env.handle(comm.SetSpeed{Motors: comm.MaskOf(1, 3), Speed: 16384})
	env.expectEmpty()
	for id, s := range env.sims {
		if id == 1 || id == 3 {
			require.InDelta(t, 0.5, s.LastSpeed(), 1e-4)
		} else {
			require.Equal(t, float32(0), s.LastSpeed())
		}
	}
}

func TestHandlerUninitialized(t *testing.T) {
	env := newHandlerTestEnv(t, false)
	env.handle(comm.SetSpeed{Motors: comm.AllMotors, Speed: 100})
	env.expectEmpty()
	for _, s := range env.sims {
		require.Equal(t, float32(0), s.LastSpeed())
	}
}

func TestHandlerSetArmed(t *testing.T) {
	env := newHandlerTestEnv(t, true)
	env.handle(comm.ArmFor(100))
	dl, ok := env.handler.Watchdog.deadline.TryTake()
	require.True(t, ok)
	require.False(t, dl.disabled)
	require.WithinDuration(t, time.Now().Add(100*time.Millisecond), dl.at, 20*time.Millisecond)

	env.handle(comm.Disarm())
	dl, ok = env.handler.Watchdog.deadline.TryTake()
	require.True(t, ok)
	require.True(t, dl.disabled)
	env.expectEmpty()
}

func TestHandlerStartStream(t *testing.T) {
	env := newHandlerTestEnv(t, true)
	env.handle(
		comm.StartStream{Motors: comm.MaskOf(0), Interval: 10},
		comm.StartStream{Motors: 0xf5, Interval: 50},
	)
	config, ok := env.dc.Streams.TryTake()
	require.True(t, ok)
	require.Equal(t, StreamConfig{Motors: comm.MaskOf(0, 2), Interval: 50 * time.Millisecond}, config)
	_, ok = env.dc.Streams.TryTake()
	require.False(t, ok)
}

func TestHandlerReset(t *testing.T) {
	env := newHandlerTestEnv(t, true)
	env.handle(comm.ResetToBootloader{})
	reset := 0
	env.handler.Reset = func() { reset++ }
	env.handle(comm.ResetToBootloader{})
	require.Equal(t, 1, reset)
	env.expectEmpty()
}

func TestHandlerFeedAll(t *testing.T) {
	env := newHandlerTestEnv(t, true)
	decoder := comm.NewHostDecoder(16)

	var stream []byte
	stream = comm.AppendHostFrame(stream, comm.Ping{ID: 1})
	stream = append(stream, 0x03, 0x11, 0x22, 0x00)
	stream = append(stream, bytes.Repeat([]byte{0x55}, 20)...)
	stream = append(stream, comm.Delimiter)
	stream = comm.AppendHostFrame(stream, comm.Ping{ID: 2})

	require.NoError(t, env.handler.FeedAll(env.ctx, env.dc, decoder, stream))
	env.expect(
		comm.Pong{ID: 1},
		comm.ErrorPacket{Kind: comm.ErrorDecoding},
		comm.ErrorPacket{Kind: comm.ErrorBufferOverflow},
		comm.Pong{ID: 2},
	)
	env.expectEmpty()
}

func TestOutboundBackPressure(t *testing.T) {
	env := newHandlerTestEnv(t, true)
	const count = OutboundCapacity + 4

	sent := make(chan int, count)
	go func() {
		for id := 0; id < count; id++ {
			require.NoError(t, env.handler.HandlePacket(env.ctx, env.dc, comm.Ping{ID: uint8(id)}))
			sent <- id
		}
	}()

	waitFor(t, time.Second, "queue full", func() bool { return len(sent) == OutboundCapacity })
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, OutboundCapacity, len(sent), "producer didn't block")

	for id := 0; id < count; id++ {
		env.expect(comm.Pong{ID: uint8(id)})
	}
	env.expectEmpty()
}

func TestContextClear(t *testing.T) {
	dc := NewContext("test")
	ctx := context.Background()
	require.NoError(t, dc.Send(ctx, comm.Pong{ID: 1}))
	require.NoError(t, dc.Send(ctx, comm.Pong{ID: 2}))
	dc.Clear()
	require.Len(t, dc.Outbound(), 0)

	full, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	for i := 0; i < OutboundCapacity; i++ {
		require.NoError(t, dc.Send(full, comm.Pong{}))
	}
	require.Equal(t, context.DeadlineExceeded, dc.Send(full, comm.Pong{}))
}
