package firmware

import (
	"context"
	"time"

	"github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
)

// OutboundCapacity is the depth of the outbound queue of each transport.
const OutboundCapacity = 8

// StreamConfig selects the motors to report and how often.
// An empty mask or zero interval disables the stream.
type StreamConfig struct {
	Motors   comm.MotorMask
	Interval time.Duration
}

// Active reports whether the stream ever fires.
func (c StreamConfig) Active() bool {
	return c.Motors.Truncate() != 0 && c.Interval > 0
}

// Context is the state shared by the tasks of one framed transport.
type Context struct {
	Name    string
	Streams framework.Signal[StreamConfig]

	outbound chan comm.DevicePacket
}

// NewContext creates a transport context.
func NewContext(name string) *Context {
	return &Context{
		Name:     name,
		outbound: make(chan comm.DevicePacket, OutboundCapacity),
	}
}

// Send queues a packet, blocking while the queue is full.
func (c *Context) Send(ctx context.Context, pkt comm.DevicePacket) error {
	select {
	case c.outbound <- pkt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive takes the next queued packet.
func (c *Context) Receive(ctx context.Context) (comm.DevicePacket, error) {
	select {
	case pkt := <-c.outbound:
		return pkt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Outbound exposes the queue for select.
func (c *Context) Outbound() <-chan comm.DevicePacket {
	return c.outbound
}

// Clear drops queued packets.
func (c *Context) Clear() {
	for {
		select {
		case <-c.outbound:
		default:
			return
		}
	}
}
