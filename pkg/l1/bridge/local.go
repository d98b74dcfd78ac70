package bridge

import (
	"context"
	"io"

	fx "github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l1"
	l1comm "github.com/robotalks/dcmotor.go/pkg/l1/comm"
	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

// LocalConn implements l1.BridgeConn with an in-process Bridge.
// Tools use it to drive a directly attached board the same way as a remote bridge.
type LocalConn struct {
	Bridge *Bridge

	ctx         context.Context
	cancel      context.CancelFunc
	events      <-chan msgs.Message
	unsubscribe func()
	done        chan struct{}
}

// OpenLocal opens a board by port name and connects to it.
func OpenLocal(port string, baud int) (*LocalConn, error) {
	rw, err := comm.Open(port, baud)
	if err != nil {
		return nil, err
	}
	return NewLocalConn(rw), nil
}

// NewLocalConn runs a Bridge over an opened board connection.
// The connection is closed by Close. Losing the board stops the bridge
// and closes the Events channel.
func NewLocalConn(rw io.ReadWriteCloser) *LocalConn {
	c := &LocalConn{Bridge: New(comm.NewClient(rw)), done: make(chan struct{})}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.events, c.unsubscribe = c.Bridge.Subscribe(l1comm.EventQueueSize)
	go func() {
		defer close(c.done)
		fx.NewRunnerWith(c.ctx).Go(
			fx.RunFunc(func(ctx context.Context) error {
				defer c.cancel()
				return fx.RunWithContextCloser(ctx, rw, func() error {
					return c.Bridge.Client.Run(ctx)
				})
			}),
			c.Bridge,
		).Wait()
	}()
	return c
}

// DoCommand implements l1.BridgeConn.
func (c *LocalConn) DoCommand(msg msgs.Message) l1.CommandFuture {
	f := make(localFuture, 1)
	go func() {
		reply := c.Bridge.Execute(c.ctx, msg)
		result := l1.Result{Msg: reply}
		if cmdErr, ok := reply.(*msgs.CommandErr); ok {
			result.Err = cmdErr
		}
		f <- result
		close(f)
	}()
	return f
}

// Events implements l1.BridgeConn.
func (c *LocalConn) Events() <-chan msgs.Message {
	return c.events
}

// Close implements l1.BridgeConn.
func (c *LocalConn) Close() error {
	c.unsubscribe()
	c.cancel()
	<-c.done
	return nil
}

type localFuture chan l1.Result

func (f localFuture) ResultChan() <-chan l1.Result {
	return f
}
