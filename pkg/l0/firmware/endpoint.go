package firmware

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/dcmotor.go/pkg/framework"
)

// ErrNotConnected indicates no host is connected to the endpoint.
var ErrNotConnected = errors.New("not connected")

// DefaultMaxPacketSize matches a full speed USB bulk endpoint.
const DefaultMaxPacketSize = 64

// ListenerEndpoint emulates a USB endpoint pair on top of a stream listener.
// One accepted connection is one USB session; the next connection is accepted
// after the current one fails.
type ListenerEndpoint struct {
	Listener   net.Listener
	PacketSize int

	lock    sync.Mutex
	conn    net.Conn
	changed chan struct{}
	dropped chan struct{}
}

// NewListenerEndpoint wraps a listener.
func NewListenerEndpoint(l net.Listener) *ListenerEndpoint {
	return &ListenerEndpoint{
		Listener:   l,
		PacketSize: DefaultMaxPacketSize,
		changed:    make(chan struct{}),
	}
}

// Run accepts connections one at a time until ctx is done.
func (e *ListenerEndpoint) Run(ctx context.Context) error {
	return framework.RunWithContextCloser(ctx, e.Listener, func() error {
		for {
			conn, err := e.Listener.Accept()
			if err != nil {
				return err
			}
			glog.Infof("endpoint: host connected from %s", conn.RemoteAddr())
			dropped := e.attach(conn)
			select {
			case <-dropped:
			case <-ctx.Done():
				e.drop(conn)
				return ctx.Err()
			}
		}
	})
}

func (e *ListenerEndpoint) attach(conn net.Conn) <-chan struct{} {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.conn = conn
	e.dropped = make(chan struct{})
	close(e.changed)
	e.changed = make(chan struct{})
	return e.dropped
}

func (e *ListenerEndpoint) drop(conn net.Conn) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.conn != conn || conn == nil {
		return
	}
	conn.Close()
	e.conn = nil
	close(e.dropped)
	close(e.changed)
	e.changed = make(chan struct{})
	glog.Infof("endpoint: host disconnected")
}

func (e *ListenerEndpoint) current() net.Conn {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.conn
}

// WaitConnection implements PacketEndpoint.
func (e *ListenerEndpoint) WaitConnection(ctx context.Context) error {
	for {
		e.lock.Lock()
		conn, changed := e.conn, e.changed
		e.lock.Unlock()
		if conn != nil {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReadPacket implements PacketEndpoint.
func (e *ListenerEndpoint) ReadPacket(ctx context.Context, buf []byte) (int, error) {
	conn := e.current()
	if conn == nil {
		return 0, ErrNotConnected
	}
	if size := e.MaxPacketSize(); len(buf) > size {
		buf = buf[:size]
	}
	n, err := conn.Read(buf)
	if err != nil {
		e.drop(conn)
		// bytes read along with the error are delivered, the next call fails
		if n > 0 {
			return n, nil
		}
	}
	return n, err
}

// WritePacket implements PacketEndpoint.
func (e *ListenerEndpoint) WritePacket(ctx context.Context, data []byte) error {
	conn := e.current()
	if conn == nil {
		return ErrNotConnected
	}
	_, err := conn.Write(data)
	if err != nil {
		e.drop(conn)
	}
	return err
}

// MaxPacketSize implements PacketEndpoint.
func (e *ListenerEndpoint) MaxPacketSize() int {
	if e.PacketSize > 0 {
		return e.PacketSize
	}
	return DefaultMaxPacketSize
}
