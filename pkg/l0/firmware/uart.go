package firmware

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
)

const (
	readChunkSize = 64
	// retryDelay throttles a read half whose port keeps failing.
	retryDelay = 10 * time.Millisecond
)

// UART serves the framed protocol over a byte stream.
type UART struct {
	Port    io.ReadWriter
	Handler *Handler
	Context *Context
}

// NewUART creates a UART transport with its own context.
func NewUART(name string, port io.ReadWriter, h *Handler) *UART {
	return &UART{Port: port, Handler: h, Context: NewContext(name)}
}

// Tasks returns the read half, write half and telemetry stream.
func (u *UART) Tasks() []framework.Runnable {
	name := u.Context.Name
	return []framework.Runnable{
		framework.NamedRun(name+"-read", framework.RunFunc(u.ReadHalf)),
		framework.NamedRun(name+"-write", framework.RunFunc(u.WriteHalf)),
		&StreamTask{Context: u.Context, Motors: u.Handler.Motors},
	}
}

// ReadHalf feeds received bytes to the handler.
// Read errors drop the partial frame and reading continues.
// A Port implementing io.Closer is closed when ctx is done to unblock Read.
func (u *UART) ReadHalf(ctx context.Context) error {
	if closer, ok := u.Port.(io.Closer); ok {
		return framework.RunWithContextCloser(ctx, closer, func() error {
			return u.readLoop(ctx)
		})
	}
	return u.readLoop(ctx)
}

func (u *UART) readLoop(ctx context.Context) error {
	decoder := comm.NewHostDecoder(comm.DefaultDecoderCapacity)
	buf := make([]byte, readChunkSize)
	for {
		n, err := u.Port.Read(buf)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if n > 0 {
			if err := u.Handler.FeedAll(ctx, u.Context, decoder, buf[:n]); err != nil {
				return err
			}
		}
		if err != nil {
			glog.Errorf("%s: rx error: %v", u.Context.Name, err)
			decoder.Reset()
			if err := sleepCtx(ctx, retryDelay); err != nil {
				return err
			}
		}
	}
}

// WriteHalf encodes queued packets to the port.
func (u *UART) WriteHalf(ctx context.Context) error {
	buf := make([]byte, comm.DefaultEncodeBufferSize)
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
		if _, err := u.Port.Write(frame); err != nil {
			glog.Errorf("%s: tx error: %v", u.Context.Name, err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
