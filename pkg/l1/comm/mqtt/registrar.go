package mqtt

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	"github.com/robotalks/dcmotor.go/pkg/l1"
)

// Announcer exposes a bridge on MQTT.
// The bridge info is published to the retained meta topic while connected
// and the broker clears it if the connection is lost.
type Announcer struct {
	Queue      *Queue
	Info       l1.BridgeInfo
	ReadWriter *ReadWriter

	metaJSON []byte
}

// NewAnnouncer creates an Announcer.
func NewAnnouncer(brokerURL string, info l1.BridgeInfo) (*Announcer, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+MetaTopic(info.Ref), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("dcmotor:" + info.Ref.Name())
	}
	a := &Announcer{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	a.Queue.OnConnect = func(*Queue) { a.onConnected() }
	a.ReadWriter = NewPacketReadWriter(a.Queue).ForBridge(info.Ref)
	return a, nil
}

// MetaTopic returns the topic where the bridge is announced.
func MetaTopic(ref l1.BridgeRef) string {
	return ref.Name() + "/meta"
}

// Name implements Named.
func (a *Announcer) Name() string {
	return "mqtt"
}

// Run implements Runnable.
func (a *Announcer) Run(ctx context.Context) error {
	if err := WaitToken(ctx, a.Queue.Connect()); err != nil {
		return err
	}
	err := a.ReadWriter.Run(ctx)
	if token := a.Queue.PubWith(MetaTopic(a.Info.Ref), nil, 1, true); !token.WaitTimeout(tokenPollInterval) {
		glog.Warning("clear meta timeout")
	}
	a.Queue.Close()
	return err
}

func (a *Announcer) onConnected() {
	a.Queue.PubWith(MetaTopic(a.Info.Ref), a.metaJSON, 1, true)
}
