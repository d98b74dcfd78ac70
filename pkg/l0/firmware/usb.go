package firmware

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
)

// PacketEndpoint is a packet oriented link with a host that may come and go,
// like a USB CDC bulk endpoint pair.
type PacketEndpoint interface {
	// WaitConnection blocks until a host is connected.
	WaitConnection(ctx context.Context) error
	// ReadPacket reads at most one packet into buf.
	ReadPacket(ctx context.Context, buf []byte) (int, error)
	// WritePacket writes one packet no longer than MaxPacketSize.
	WritePacket(ctx context.Context, data []byte) error
	MaxPacketSize() int
}

// USB serves the framed protocol over a PacketEndpoint.
type USB struct {
	Endpoint PacketEndpoint
	Handler  *Handler
	Context  *Context
}

// NewUSB creates a USB transport with its own context.
func NewUSB(name string, ep PacketEndpoint, h *Handler) *USB {
	return &USB{Endpoint: ep, Handler: h, Context: NewContext(name)}
}

// Tasks returns the read half, write half and telemetry stream.
func (u *USB) Tasks() []framework.Runnable {
	name := u.Context.Name
	tasks := []framework.Runnable{
		framework.NamedRun(name+"-read", framework.RunFunc(u.ReadHalf)),
		framework.NamedRun(name+"-write", framework.RunFunc(u.WriteHalf)),
		&StreamTask{Context: u.Context, Motors: u.Handler.Motors},
	}
	if r, ok := u.Endpoint.(framework.Runnable); ok {
		tasks = append(tasks, framework.NamedRun(name+"-endpoint", r))
	}
	return tasks
}

// ReadHalf feeds received packets to the handler.
// A read error ends the session: the decoder is reset and the next
// connection is awaited.
func (u *USB) ReadHalf(ctx context.Context) error {
	decoder := comm.NewHostDecoder(comm.DefaultDecoderCapacity)
	buf := make([]byte, readChunkSize)
	for {
		if err := u.Endpoint.WaitConnection(ctx); err != nil {
			return err
		}
		glog.Infof("%s: read half connected", u.Context.Name)
		for {
			n, err := u.Endpoint.ReadPacket(ctx, buf)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if n > 0 {
				if err := u.Handler.FeedAll(ctx, u.Context, decoder, buf[:n]); err != nil {
					return err
				}
			}
			if err != nil {
				glog.Errorf("%s: read packet: %v", u.Context.Name, err)
				decoder.Reset()
				break
			}
		}
	}
}

// WriteHalf writes queued packets in MaxPacketSize chunks.
// Packets queued before a connection are dropped.
func (u *USB) WriteHalf(ctx context.Context) error {
	buf := make([]byte, comm.DefaultEncodeBufferSize)
	for {
		if err := u.Endpoint.WaitConnection(ctx); err != nil {
			return err
		}
		u.Context.Clear()
		glog.Infof("%s: write half connected", u.Context.Name)
		if err := u.writeSession(ctx, buf); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			glog.Errorf("%s: write packet: %v", u.Context.Name, err)
		}
	}
}

func (u *USB) writeSession(ctx context.Context, buf []byte) error {
	for {
		pkt, err := u.Context.Receive(ctx)
		if err != nil {
			return err
		}
		frame, err := comm.EncodeDevice(pkt, buf)
		if err != nil {
			glog.Errorf("%s: encode %s: %v", u.Context.Name, comm.Describe(pkt), err)
			continue
		}
		size := u.Endpoint.MaxPacketSize()
		if size <= 0 {
			size = len(frame)
		}
		for len(frame) > 0 {
			n := len(frame)
			if n > size {
				n = size
			}
			if err := u.Endpoint.WritePacket(ctx, frame[:n]); err != nil {
				return err
			}
			frame = frame[n:]
		}
	}
}
