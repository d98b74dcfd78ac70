package comm

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

// PacketReader reads whole bridge packets.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes whole bridge packets.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
// Implementations may also be io.Closer, which unblocks ReadPacket.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

var (
	// ErrNotCommand is returned when sending a non-command as a command or reply.
	ErrNotCommand = errors.New("message is not a command")
	// ErrNotEvent is returned when sending a non-event as an event.
	ErrNotEvent = errors.New("message is not an event")
)

// Pipe exchanges typed messages over a PacketReadWriter.
// Received messages go to Handler, sending is safe from any goroutine.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    msgs.TypedMsgHandler

	sendLock sync.Mutex
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// SendCommandMsg sends a command or a reply carrying the sequence of the command.
func (p *Pipe) SendCommandMsg(msg msgs.Message, seq uint32) error {
	return p.sendMsg(msg, seq, msgs.IsCommand, ErrNotCommand)
}

// SendEventMsg sends an event.
func (p *Pipe) SendEventMsg(msg msgs.Message) error {
	return p.sendMsg(msg, 0, msgs.IsEvent, ErrNotEvent)
}

func (p *Pipe) sendMsg(msg msgs.Message, seq uint32, accept func(uint32) bool, rejected error) error {
	if !accept(msg.TypeID()) {
		return rejected
	}
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	typed.Sequence = seq
	return p.SendTyped(typed)
}

// SendTyped sends a Typed message as one packet.
func (p *Pipe) SendTyped(typed *msgs.Typed) error {
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	return p.ReadWriter.WritePacket(pkt)
}

// Run receives until the ReadWriter fails or the Handler returns an error.
// The ReadWriter is closed when ctx is cancelled to unblock ReadPacket.
func (p *Pipe) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, p, func() error {
		for {
			pkt, err := p.ReadWriter.ReadPacket()
			if err != nil {
				return err
			}
			if err := p.receive(ctx, pkt); err != nil {
				return err
			}
		}
	})
}

func (p *Pipe) receive(ctx context.Context, pkt []byte) error {
	typed, err := msgs.DecodeTyped(pkt)
	if err != nil {
		glog.Warningf("pipe: bad packet: %v", err)
		return nil
	}
	msg, err := typed.Decode()
	if err != nil {
		if typed.IsCommand() && !typed.IsReply() {
			return p.SendCommandMsg(msgs.NewCommandErr(err), typed.Sequence)
		}
		glog.V(2).Infof("pipe: dropped message %x: %v", typed.TypeId, err)
		return nil
	}
	if h := p.Handler; h != nil {
		return h.HandleTypedMsg(ctx, msg, typed)
	}
	return nil
}

// Close implements io.Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
