package bridge

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l1/comm/stream"
	ws "github.com/robotalks/dcmotor.go/pkg/l1/comm/websocket"
)

// WebsocketHandler serves every websocket connection as a peer.
func (b *Bridge) WebsocketHandler(ctx context.Context) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		glog.Infof("websocket peer %s connected", conn.Request().RemoteAddr)
		err := b.Serve(ctx, ws.New(conn))
		glog.Infof("websocket peer %s disconnected: %v", conn.Request().RemoteAddr, err)
	})
}

// ServeListener accepts length-prefixed stream peers until ctx is done.
func (b *Bridge) ServeListener(ctx context.Context, l net.Listener) error {
	return fx.RunWithContextCloser(ctx, l, func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				return err
			}
			glog.Infof("stream peer %s connected", conn.RemoteAddr())
			go func() {
				err := b.Serve(ctx, stream.New(conn))
				glog.Infof("stream peer %s disconnected: %v", conn.RemoteAddr(), err)
			}()
		}
	})
}

// HTTPServer runs an http.Server as a task.
type HTTPServer struct {
	Server *http.Server
}

const shutdownTimeout = time.Second

// Name implements Named.
func (s *HTTPServer) Name() string {
	return "http:" + s.Server.Addr
}

// Run implements Runnable.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.Server.Shutdown(shutdownCtx)
	<-errCh
	return ctx.Err()
}
