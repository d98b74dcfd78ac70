package comm

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"
)

// Result is the result of a command using Do.
type Result struct {
	Err    error
	Packet DevicePacket
}

// Client provides host side operations over a framed byte stream.
type Client struct {
	rw      io.ReadWriter
	decoder *Decoder[DevicePacket]
	eventCh chan DevicePacket

	writeLock sync.Mutex
	frame     [DefaultEncodeBufferSize]byte

	cmdsHead *Command
	cmdsTail *Command
	cmdsLock sync.Mutex
}

// Command represents a pending command waiting for reply.
type Command struct {
	request  HostPacket
	resultCh chan Result
	next     *Command
}

// Request returns the request packet.
func (c *Command) Request() HostPacket {
	return c.request
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// Wait waits for the result.
func (c *Command) Wait(ctx context.Context) (DevicePacket, error) {
	select {
	case r := <-c.resultCh:
		return r.Packet, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NewClient creates client and wraps the stream.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{
		rw:      rw,
		decoder: NewDeviceDecoder(DefaultDecoderCapacity),
		eventCh: make(chan DevicePacket, MotorCount*2),
	}
}

// EventChan retrieves unsolicited packets: MotorState and Error reports.
func (c *Client) EventChan() <-chan DevicePacket {
	return c.eventCh
}

// Send writes a packet without waiting for a reply.
func (c *Client) Send(pkt HostPacket) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	frame, err := EncodeHost(pkt, c.frame[:])
	if err != nil {
		return err
	}
	glog.V(4).Infof("send %s", Describe(pkt))
	_, err = c.rw.Write(frame)
	return err
}

// DoWith sends a command and expects a result in the provided chan.
func (c *Client) DoWith(pkt HostPacket, ch chan Result) *Command {
	cmd := &Command{request: pkt, resultCh: ch}

	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	if err := c.Send(pkt); err != nil {
		cmd.resultCh <- Result{Err: err}
		return cmd
	}
	if c.cmdsHead == nil {
		c.cmdsHead = cmd
	} else {
		c.cmdsTail.next = cmd
	}
	c.cmdsTail = cmd
	return cmd
}

// Do sends a command and returns a Command for result.
func (c *Client) Do(pkt HostPacket) *Command {
	return c.DoWith(pkt, make(chan Result, 1))
}

// Ping sends a ping and waits for the matching pong.
func (c *Client) Ping(ctx context.Context, id uint8) error {
	_, err := c.Do(Ping{ID: id}).Wait(ctx)
	return err
}

// ProtocolVersion queries the protocol version of the firmware.
func (c *Client) ProtocolVersion(ctx context.Context) (uint16, error) {
	pkt, err := c.Do(ReadProtocolVersion{}).Wait(ctx)
	if err != nil {
		return 0, err
	}
	return pkt.(ProtocolVersionResponse).Version, nil
}

// SoftwareInfo queries the firmware version.
// Firmware without support replies with a DeviceError.
func (c *Client) SoftwareInfo(ctx context.Context) (uint16, error) {
	pkt, err := c.Do(ReadSoftwareInfo{}).Wait(ctx)
	if err != nil {
		return 0, err
	}
	return pkt.(SoftwareInfoResponse).Version, nil
}

// HandlePacket dispatches a packet from the board.
func (c *Client) HandlePacket(ctx context.Context, pkt DevicePacket) {
	if !isReply(pkt) {
		select {
		case c.eventCh <- pkt:
		case <-ctx.Done():
		}
		return
	}

	c.cmdsLock.Lock()
	head := c.cmdsHead
	curr := c.cmdsHead
	for ; curr != nil; curr = curr.next {
		if answers(curr.request, pkt) {
			if c.cmdsHead = curr.next; c.cmdsHead == nil {
				c.cmdsTail = nil
			}
			curr.next = nil
			break
		}
	}
	if curr == nil {
		c.cmdsLock.Unlock()
		glog.V(2).Infof("unsolicited reply %s", Describe(pkt))
		return
	}
	c.cmdsLock.Unlock()
	// the board replies in order, earlier requests were lost
	for ; head != curr; head = head.next {
		head.resultCh <- Result{Err: ErrNoReply}
	}
	if e, ok := pkt.(ErrorPacket); ok {
		curr.resultCh <- Result{Err: &DeviceError{Kind: e.Kind}}
	} else {
		curr.resultCh <- Result{Packet: pkt}
	}
}

// Run reads frames until ctx is done or the stream fails.
// Pending commands fail with ErrNotReady when Run returns.
func (c *Client) Run(ctx context.Context) error {
	defer c.failPending(ErrNotReady)
	var buf [64]byte
	for {
		n, err := c.rw.Read(buf[:])
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			c.decoder.Reset()
			return fmt.Errorf("comm: read: %w", err)
		}
		for data := buf[:n]; len(data) > 0; {
			res := c.decoder.Feed(data)
			data = res.Remaining
			switch res.Kind {
			case Success:
				glog.V(4).Infof("recv %s", Describe(res.Value))
				c.HandlePacket(ctx, res.Value)
			case DecodeError, Overfull:
				glog.Warningf("drop frame: %v", res.Err)
			}
		}
	}
}

func (c *Client) failPending(err error) {
	c.cmdsLock.Lock()
	head := c.cmdsHead
	c.cmdsHead, c.cmdsTail = nil, nil
	c.cmdsLock.Unlock()
	for ; head != nil; head = head.next {
		head.resultCh <- Result{Err: err}
	}
}

func isReply(pkt DevicePacket) bool {
	switch p := pkt.(type) {
	case Pong, ProtocolVersionResponse, SoftwareInfoResponse:
		return true
	case ErrorPacket:
		return p.Kind == ErrorUnimplemented
	}
	return false
}

func answers(req HostPacket, reply DevicePacket) bool {
	switch r := req.(type) {
	case Ping:
		pong, ok := reply.(Pong)
		return ok && pong.ID == r.ID
	case ReadProtocolVersion:
		_, ok := reply.(ProtocolVersionResponse)
		return ok
	case ReadSoftwareInfo:
		switch p := reply.(type) {
		case SoftwareInfoResponse:
			return true
		case ErrorPacket:
			return p.Kind == ErrorUnimplemented
		}
	}
	return false
}
