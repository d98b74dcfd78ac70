package firmware

import (
	"context"
	"time"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l0/motor"
)

// StreamTask periodically queues MotorState for the configured motors.
type StreamTask struct {
	Context *Context
	Motors  *motor.Bank
}

// Name implements framework.Named.
func (s *StreamTask) Name() string {
	return s.Context.Name + "-stream"
}

// Run implements framework.Runnable.
func (s *StreamTask) Run(ctx context.Context) error {
	var (
		config StreamConfig
		timer  *time.Timer
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
	}
	defer stop()

	for {
		var tick <-chan time.Time
		if timer != nil {
			tick = timer.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Context.Streams.Ready():
			next, ok := s.Context.Streams.TryTake()
			if !ok {
				continue
			}
			config = next
			stop()
			if config.Active() {
				timer = time.NewTimer(config.Interval)
			}
		case <-tick:
			if err := s.emit(ctx, config.Motors); err != nil {
				return err
			}
			timer.Reset(config.Interval)
		}
	}
}

func (s *StreamTask) emit(ctx context.Context, motors comm.MotorMask) error {
	for _, id := range motors.IDs() {
		state, ok := s.Motors.Snapshot(id)
		if !ok {
			return nil
		}
		if err := s.Context.Send(ctx, MotorStatePacket(state)); err != nil {
			return err
		}
	}
	return nil
}

// MotorStatePacket converts a motor snapshot to its wire form.
func MotorStatePacket(s motor.State) comm.MotorState {
	return comm.MotorState{
		MotorID:     uint8(s.ID),
		LastSpeed:   comm.SpeedFromFloat(s.Speed),
		CurrentDraw: comm.CurrentFromAmps(s.CurrentDraw),
		IsFault:     s.Fault,
		IsEnabled:   s.Armed,
	}
}
