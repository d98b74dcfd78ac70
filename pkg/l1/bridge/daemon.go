package bridge

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/golang/glog"

	fx "github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l1/comm/mqtt"
)

// Daemon runs a Bridge with the peer transports from Config.
type Daemon struct {
	Config *Config
	Bridge *Bridge

	port io.ReadWriteCloser
}

// NewDaemon opens the board and creates the daemon.
func (c *Config) NewDaemon() (*Daemon, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	port, err := comm.Open(c.Port, c.Baud)
	if err != nil {
		return nil, fmt.Errorf("open board: %w", err)
	}
	return NewDaemonWith(c, port), nil
}

// NewDaemonWith creates the daemon on an opened board connection.
func NewDaemonWith(c *Config, port io.ReadWriteCloser) *Daemon {
	b := New(comm.NewClient(port))
	b.Timeout = c.Timeout
	return &Daemon{Config: c, Bridge: b, port: port}
}

// Run implements Runnable.
// The daemon stops when ctx is done or the board connection breaks.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runner := fx.NewRunnerWith(ctx)
	runner.Go(
		fx.NamedRun("client", fx.RunFunc(func(ctx context.Context) error {
			defer cancel()
			return fx.RunWithContextCloser(ctx, d.port, func() error {
				return d.Bridge.Client.Run(ctx)
			})
		})),
		d.Bridge,
	)
	if err := d.start(ctx, runner); err != nil {
		cancel()
		runner.Wait()
		return err
	}
	return runner.Wait()
}

func (d *Daemon) start(ctx context.Context, runner *fx.Runner) error {
	info := d.Config.Info
	info.Meta.Port = d.Config.Port
	probeCtx, cancel := context.WithTimeout(ctx, d.Bridge.Timeout)
	version, err := d.Bridge.Client.ProtocolVersion(probeCtx)
	cancel()
	if err != nil {
		glog.Warningf("board not responding: %v", err)
	} else {
		info.Meta.Protocol = uint32(version)
		if version != comm.ProtocolVersion {
			glog.Warningf("board protocol %d, expected %d", version, comm.ProtocolVersion)
		}
	}
	stream := comm.StartStream{
		Motors:   comm.MotorMask(d.Config.Stream.Mask),
		Interval: comm.Interval(d.Config.Stream.IntervalMs),
	}
	if err := d.Bridge.Client.Send(stream); err != nil {
		glog.Warningf("start stream: %v", err)
	}

	if url := d.Config.MQTTBrokerURL; url != "" {
		announcer, err := mqtt.NewAnnouncer(url, info)
		if err != nil {
			return fmt.Errorf("create MQTT announcer error: %v", err)
		}
		runner.Go(announcer, fx.NamedRun("mqtt-peer", fx.RunFunc(func(ctx context.Context) error {
			return d.Bridge.Serve(ctx, announcer.ReadWriter)
		})))
		glog.Infof("announcing %s on %s", info.Ref.Name(), url)
	}
	if addr := d.Config.WebsocketListen; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/", d.Bridge.WebsocketHandler(ctx))
		runner.Go(&HTTPServer{Server: &http.Server{Addr: addr, Handler: mux}})
		glog.Infof("websocket peers on %s", addr)
	}
	if addr := d.Config.StreamListen; addr != "" {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		runner.Go(fx.NamedRun("stream-listener", fx.RunFunc(func(ctx context.Context) error {
			return d.Bridge.ServeListener(ctx, l)
		})))
		glog.Infof("stream peers on %s", l.Addr())
	}
	return nil
}
