package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/dcmotor.go/pkg/l1"
	"github.com/robotalks/dcmotor.go/pkg/l1/comm"
)

// Connector implements l1.Connector using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

// ParseMeta parses a retained meta topic into BridgeInfo.
// An empty payload means the bridge has gone.
func ParseMeta(topic string, payload []byte) (l1.BridgeInfo, bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[2] != "meta" || len(payload) == 0 {
		return l1.BridgeInfo{}, false
	}
	info := l1.BridgeInfo{Ref: l1.BridgeRef{Type: items[0], ID: items[1]}}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("%s: invalid meta: %v", topic, err)
	}
	return info, true
}

// Discover implements Connector.
func (c *Connector) Discover(ctx context.Context) (res []l1.BridgeInfo, err error) {
	q := NewQueue(c.options, c.topicPrefix)
	if err = WaitToken(ctx, q.Connect()); err != nil {
		return
	}
	defer q.Close()
	resCh := make(chan l1.BridgeInfo, 1)
	q.Sub("+/+/meta", Handler(func(topic string, payload []byte) {
		if info, ok := ParseMeta(topic, payload); ok {
			select {
			case resCh <- info:
			case <-time.After(time.Second):
			}
		}
	}))

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Connect implements Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.BridgeRef) (l1.BridgeConn, error) {
	q := NewQueue(c.options, c.topicPrefix)
	if err := WaitToken(ctx, q.Connect()); err != nil {
		return nil, err
	}
	rw := NewPacketReadWriter(q).ForConnector(ref)
	conn := &BridgeConn{Queue: q, rw: rw}
	conn.Init(rw)
	var runCtx context.Context
	runCtx, conn.cancel = context.WithCancel(context.Background())
	go rw.Run(runCtx)
	go conn.BridgeConn.Run(runCtx)
	return conn, nil
}

// BridgeConn implements BridgeConn using MQTT.
type BridgeConn struct {
	comm.BridgeConn
	Queue *Queue

	rw     *ReadWriter
	cancel context.CancelFunc
}

// Close implements BridgeConn.
func (c *BridgeConn) Close() error {
	c.cancel()
	c.rw.Close()
	return c.Queue.Close()
}
