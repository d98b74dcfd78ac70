package comm

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/dcmotor.go/pkg/l1"
	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

// BridgeConn provides base implementation for l1.BridgeConn using Pipe.
type BridgeConn struct {
	Expiration time.Duration

	pipe     Pipe
	eventCh  chan msgs.Message
	seq      uint32
	commands list.List
	seqMap   map[uint32]*commandFuture
	lock     sync.Mutex
}

// DefaultCommandExpiration is the default expiration expecting a result.
const DefaultCommandExpiration = 1 * time.Second

// EventQueueSize is the number of events buffered before new ones are dropped.
const EventQueueSize = 16

// NewBridgeConn creates a BridgeConn over rw.
func NewBridgeConn(rw PacketReadWriter) *BridgeConn {
	c := &BridgeConn{}
	c.Init(rw)
	return c
}

// Init initializes BridgeConn with defaults.
func (c *BridgeConn) Init(rw PacketReadWriter) {
	c.Expiration = DefaultCommandExpiration
	c.pipe.ReadWriter = rw
	c.pipe.Handler = msgs.HandleTypedMsgFunc(c.handleTypedMsg)
	c.eventCh = make(chan msgs.Message, EventQueueSize)
	c.seqMap = make(map[uint32]*commandFuture)
}

// DoCommand implements BridgeConn.
func (c *BridgeConn) DoCommand(msg msgs.Message) l1.CommandFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.seq++
	if c.seq == 0 {
		c.seq++
	}
	f := &commandFuture{
		seq:      c.seq,
		expireAt: time.Now().Add(c.Expiration),
		result:   make(chan l1.Result, 1),
	}
	if err := c.pipe.SendCommandMsg(msg, f.seq); err != nil {
		f.result <- l1.Result{Err: err}
		return f
	}
	f.elem = c.commands.PushBack(f)
	c.seqMap[f.seq] = f
	return f
}

// Events implements BridgeConn. The channel is closed when Run returns.
func (c *BridgeConn) Events() <-chan msgs.Message {
	return c.eventCh
}

// Close implements BridgeConn.
func (c *BridgeConn) Close() error {
	return c.pipe.Close()
}

// Run implements Runnable.
func (c *BridgeConn) Run(ctx context.Context) error {
	purgeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.purgeLoop(purgeCtx)
	err := c.pipe.Run(ctx)
	c.purge(time.Time{})
	close(c.eventCh)
	return err
}

func (c *BridgeConn) handleTypedMsg(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		select {
		case c.eventCh <- msg:
		default:
			glog.Warningf("event dropped: %s", msg.String())
		}
		return nil
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	f := c.seqMap[typed.Sequence]
	if f == nil {
		return nil
	}
	c.commands.Remove(f.elem)
	delete(c.seqMap, typed.Sequence)
	result := l1.Result{Msg: msg}
	if cmdErr, ok := msg.(*msgs.CommandErr); ok {
		result.Err = cmdErr
	}
	f.result <- result
	close(f.result)
	return nil
}

func (c *BridgeConn) purgeLoop(ctx context.Context) {
	period := c.Expiration / 4
	if period <= 0 {
		period = DefaultCommandExpiration / 4
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.purge(now)
		}
	}
}

// purge expires commands sent before now, or all of them when now is zero.
func (c *BridgeConn) purge(now time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for c.commands.Len() > 0 {
		elem := c.commands.Front()
		f := elem.Value.(*commandFuture)
		if !now.IsZero() && f.expireAt.After(now) {
			break
		}
		c.commands.Remove(elem)
		delete(c.seqMap, f.seq)
		f.result <- l1.Result{Err: context.DeadlineExceeded}
		close(f.result)
	}
}

type commandFuture struct {
	seq      uint32
	expireAt time.Time
	elem     *list.Element
	result   chan l1.Result
}

func (c *commandFuture) ResultChan() <-chan l1.Result {
	return c.result
}
