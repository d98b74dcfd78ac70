package firmware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l0/motor"
)

func runStream(t *testing.T, installed bool) (*Context, []*motor.Sim) {
	sims := motor.NewSims(comm.MotorCount)
	bank := &motor.Bank{}
	if installed {
		bank.Install(motor.Motors(sims)...)
	}
	dc := NewContext("test")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go (&StreamTask{Context: dc, Motors: bank}).Run(ctx)
	return dc, sims
}

func collect(dc *Context, d time.Duration) (states []comm.MotorState) {
	timeout := time.After(d)
	for {
		select {
		case pkt := <-dc.Outbound():
			states = append(states, pkt.(comm.MotorState))
		case <-timeout:
			return
		}
	}
}

func TestStreamOrder(t *testing.T) {
	dc, sims := runStream(t, true)
	sims[2].SetFault(true)
	sims[0].SetArmed(true)
	sims[0].SetSpeed(-1)

	dc.Streams.Signal(StreamConfig{Motors: comm.MaskOf(2, 0), Interval: 50 * time.Millisecond})
	states := collect(dc, 180*time.Millisecond)
	require.True(t, len(states) >= 4, "got %d states", len(states))
	require.True(t, len(states) <= 6, "got %d states", len(states))
	for n, s := range states {
		if n%2 == 0 {
			require.Equal(t, comm.MotorState{
				MotorID:     0,
				LastSpeed:   -32767,
				CurrentDraw: comm.CurrentUnknown,
				IsEnabled:   true,
			}, s)
		} else {
			require.Equal(t, comm.MotorState{
				MotorID:     2,
				CurrentDraw: comm.CurrentUnknown,
				IsFault:     true,
			}, s)
		}
	}
}

func TestStreamReplace(t *testing.T) {
	dc, _ := runStream(t, true)
	dc.Streams.Signal(StreamConfig{Motors: comm.MaskOf(1), Interval: 50 * time.Millisecond})
	time.Sleep(10 * time.Millisecond)
	dc.Streams.Signal(StreamConfig{Motors: comm.MaskOf(3), Interval: 30 * time.Millisecond})

	states := collect(dc, 100*time.Millisecond)
	require.NotEmpty(t, states)
	for _, s := range states {
		require.Equal(t, uint8(3), s.MotorID)
	}
}

func TestStreamStop(t *testing.T) {
	dc, _ := runStream(t, true)
	dc.Streams.Signal(StreamConfig{Motors: comm.MaskOf(1), Interval: 10 * time.Millisecond})
	require.NotEmpty(t, collect(dc, 30*time.Millisecond))

	dc.Streams.Signal(StreamConfig{Motors: comm.MaskOf(1)})
	collect(dc, 20*time.Millisecond)
	require.Empty(t, collect(dc, 40*time.Millisecond))

	dc.Streams.Signal(StreamConfig{Interval: 10 * time.Millisecond})
	collect(dc, 20*time.Millisecond)
	require.Empty(t, collect(dc, 40*time.Millisecond))
}

func TestStreamUninitialized(t *testing.T) {
	dc, _ := runStream(t, false)
	dc.Streams.Signal(StreamConfig{Motors: comm.AllMotors, Interval: 10 * time.Millisecond})
	require.Empty(t, collect(dc, 50*time.Millisecond))
}
