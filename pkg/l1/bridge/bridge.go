// Package bridge exposes a motor board to remote tools.
//
// A Bridge owns the host side client of one board. Remote peers attach
// through packet pipes (MQTT, websocket or length-prefixed TCP streams),
// send bridge commands and receive board telemetry as events.
package bridge

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	l1comm "github.com/robotalks/dcmotor.go/pkg/l1/comm"
	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

// Bridge translates bridge commands to board packets.
type Bridge struct {
	Client  *comm.Client
	Timeout time.Duration

	lock  sync.RWMutex
	pipes map[*l1comm.Pipe]struct{}
	subs  map[chan msgs.Message]struct{}
}

// DefaultTimeout is the default time to wait for a board reply.
const DefaultTimeout = 500 * time.Millisecond

// New creates a Bridge.
func New(client *comm.Client) *Bridge {
	return &Bridge{
		Client:  client,
		Timeout: DefaultTimeout,
		pipes:   make(map[*l1comm.Pipe]struct{}),
		subs:    make(map[chan msgs.Message]struct{}),
	}
}

// Name implements Named.
func (b *Bridge) Name() string {
	return "bridge"
}

// Run forwards board events to all attached peers.
// Subscriptions are closed when Run returns.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.closeSubs()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pkt := <-b.Client.EventChan():
			switch p := pkt.(type) {
			case comm.MotorState:
				b.Broadcast(msgs.MotorStatusFrom(p))
			case comm.ErrorPacket:
				b.Broadcast(msgs.MotorFaultFrom(p))
			default:
				glog.Warningf("unexpected event %s", comm.Describe(pkt))
			}
		}
	}
}

// Broadcast sends an event to all attached peers and subscribers.
// A subscriber not keeping up misses events.
func (b *Bridge) Broadcast(msg msgs.Message) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	for pipe := range b.pipes {
		if err := pipe.SendEventMsg(msg); err != nil {
			glog.V(2).Infof("send event error: %v", err)
		}
	}
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribe receives events in process until cancel is called or Run returns,
// either closes the channel.
func (b *Bridge) Subscribe(size int) (events <-chan msgs.Message, cancel func()) {
	ch := make(chan msgs.Message, size)
	b.lock.Lock()
	b.subs[ch] = struct{}{}
	b.lock.Unlock()
	return ch, func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

func (b *Bridge) closeSubs() {
	b.lock.Lock()
	defer b.lock.Unlock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Serve attaches a peer and serves its commands until the pipe breaks or ctx is done.
func (b *Bridge) Serve(ctx context.Context, rw l1comm.PacketReadWriter) error {
	pipe := l1comm.NewPipe(rw)
	pipe.Handler = msgs.HandleTypedMsgFunc(func(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
		if !typed.IsCommand() || typed.IsReply() {
			return nil
		}
		reply := b.Execute(ctx, msg)
		glog.V(2).Infof("command %s -> %s", msg.String(), reply.String())
		return pipe.SendCommandMsg(reply, typed.Sequence)
	})
	b.lock.Lock()
	b.pipes[pipe] = struct{}{}
	b.lock.Unlock()
	defer func() {
		b.lock.Lock()
		delete(b.pipes, pipe)
		b.lock.Unlock()
	}()
	return pipe.Run(ctx)
}

// Peers returns the number of attached peers.
func (b *Bridge) Peers() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.pipes)
}

// Execute runs a command against the board and returns the reply.
func (b *Bridge) Execute(ctx context.Context, msg msgs.Message) msgs.Message {
	reply, err := b.execute(ctx, msg)
	if err != nil {
		return msgs.NewCommandErr(err)
	}
	return reply
}

func (b *Bridge) execute(ctx context.Context, msg msgs.Message) (msgs.Message, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch m := msg.(type) {
	case *msgs.MotorPing:
		if m.Id > math.MaxUint8 {
			return nil, fmt.Errorf("ping id %d out of range", m.Id)
		}
		if err := b.Client.Ping(ctx, uint8(m.Id)); err != nil {
			return nil, err
		}
		return &msgs.MotorPong{Id: m.Id}, nil
	case *msgs.MotorVersionQuery:
		version, err := b.Client.ProtocolVersion(ctx)
		if err != nil {
			return nil, err
		}
		return &msgs.MotorVersion{Protocol: uint32(version)}, nil
	case *msgs.MotorInfoQuery:
		version, err := b.Client.SoftwareInfo(ctx)
		if err != nil {
			return nil, err
		}
		return &msgs.MotorInfo{Software: uint32(version)}, nil
	case *msgs.MotorSetSpeed:
		mask, err := motorMask(m.Mask)
		if err != nil {
			return nil, err
		}
		return b.send(comm.SetSpeed{Motors: mask, Speed: comm.SpeedFromFloat(m.Speed)})
	case *msgs.MotorArm:
		if m.TimeoutMs == 0 {
			return b.send(comm.Disarm())
		}
		interval, err := interval(m.TimeoutMs)
		if err != nil {
			return nil, err
		}
		return b.send(comm.ArmFor(interval))
	case *msgs.MotorStream:
		mask, err := motorMask(m.Mask)
		if err != nil {
			return nil, err
		}
		interval, err := interval(m.IntervalMs)
		if err != nil {
			return nil, err
		}
		return b.send(comm.StartStream{Motors: mask, Interval: interval})
	case *msgs.MotorReset:
		return b.send(comm.ResetToBootloader{})
	}
	return nil, msgs.ErrUnsupportedCommand
}

func (b *Bridge) send(pkt comm.HostPacket) (msgs.Message, error) {
	if err := b.Client.Send(pkt); err != nil {
		return nil, err
	}
	return msgs.NewCommandOK(), nil
}

func motorMask(mask uint32) (comm.MotorMask, error) {
	if mask > math.MaxUint8 {
		return 0, fmt.Errorf("invalid motor mask %#x", mask)
	}
	return comm.MotorMask(mask), nil
}

func interval(ms uint32) (comm.Interval, error) {
	if ms > math.MaxUint16 {
		return 0, fmt.Errorf("interval %dms out of range", ms)
	}
	return comm.Interval(ms), nil
}
