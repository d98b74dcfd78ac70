package firmware

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l0/motor"
)

// Handler executes host packets against the board.
// It is shared by all transports.
type Handler struct {
	Motors   *motor.Bank
	Watchdog *Watchdog
	// Reset reboots into the bootloader. Nil on platforms without one.
	Reset func()
}

// HandlePacket executes one packet. Replies are queued on dc.
// Only a cancelled ctx makes it fail.
func (h *Handler) HandlePacket(ctx context.Context, dc *Context, pkt comm.HostPacket) error {
	glog.V(4).Infof("%s: handle %s", dc.Name, comm.Describe(pkt))
	switch p := pkt.(type) {
	case comm.StartStream:
		dc.Streams.Signal(StreamConfig{Motors: p.Motors.Truncate(), Interval: p.Interval.Duration()})
	case comm.SetSpeed:
		h.SetSpeed(p.Motors, p.Speed)
	case comm.Ping:
		return dc.Send(ctx, comm.Pong{ID: p.ID})
	case comm.SetArmed:
		if p.Armed {
			h.Watchdog.Feed(p.Duration.Duration())
		} else {
			h.Watchdog.Disable()
		}
	case comm.ResetToBootloader:
		if h.Reset == nil {
			glog.Warningf("%s: reset to bootloader not supported", dc.Name)
			return nil
		}
		h.Reset()
	case comm.ReadProtocolVersion:
		return dc.Send(ctx, comm.ProtocolVersionResponse{Version: comm.ProtocolVersion})
	case comm.ReadSoftwareInfo:
		return dc.Send(ctx, comm.ErrorPacket{Kind: comm.ErrorUnimplemented})
	default:
		glog.Warningf("%s: unexpected packet %s", dc.Name, comm.Describe(pkt))
	}
	return nil
}

// SetSpeed applies speed to the motors in ascending id order.
// It is a no-op while motors are uninitialized.
func (h *Handler) SetSpeed(motors comm.MotorMask, speed comm.Speed) {
	h.Motors.Do(func(ms []motor.Motor) {
		for _, id := range motors.IDs() {
			if id < len(ms) {
				ms[id].SetSpeed(speed.Float())
			}
		}
	})
}

// Arm feeds the watchdog, or disables it for a zero duration.
func (h *Handler) Arm(d comm.Interval) {
	if d == 0 {
		h.Watchdog.Disable()
		return
	}
	h.Watchdog.Feed(d.Duration())
}

// FeedAll decodes data and handles every complete frame.
// Decoding failures are reported to the host as Error packets.
func (h *Handler) FeedAll(ctx context.Context, dc *Context, decoder *comm.Decoder[comm.HostPacket], data []byte) error {
	for len(data) > 0 {
		res := decoder.Feed(data)
		data = res.Remaining
		var err error
		switch res.Kind {
		case comm.Consumed:
			return nil
		case comm.Success:
			err = h.HandlePacket(ctx, dc, res.Value)
		case comm.DecodeError:
			glog.V(2).Infof("%s: decode error: %v", dc.Name, res.Err)
			err = dc.Send(ctx, comm.ErrorPacket{Kind: comm.ErrorDecoding})
		case comm.Overfull:
			glog.V(2).Infof("%s: %v", dc.Name, res.Err)
			err = dc.Send(ctx, comm.ErrorPacket{Kind: comm.ErrorBufferOverflow})
		}
		if err != nil {
			return err
		}
	}
	return nil
}
