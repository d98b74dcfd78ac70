package firmware

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopbackClosed is returned by a closed LoopbackI2C.
var ErrLoopbackClosed = errors.New("i2c loopback closed")

// LoopbackI2C connects an in-process controller to an I2C target.
// Each WriteRead is one transaction.
type LoopbackI2C struct {
	reqCh  chan []byte
	respCh chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewLoopbackI2C creates a loopback bus.
func NewLoopbackI2C() *LoopbackI2C {
	return &LoopbackI2C{
		reqCh:  make(chan []byte),
		respCh: make(chan []byte),
		done:   make(chan struct{}),
	}
}

// Close unblocks all pending operations.
func (l *LoopbackI2C) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

// WriteRead writes req to the target and reads its response.
func (l *LoopbackI2C) WriteRead(ctx context.Context, req []byte) ([]byte, error) {
	select {
	case l.reqCh <- append([]byte(nil), req...):
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrLoopbackClosed
	}
	select {
	case resp := <-l.respCh:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrLoopbackClosed
	}
}

// Listen implements I2CTarget.
func (l *LoopbackI2C) Listen(ctx context.Context, buf []byte) (I2CCommand, int, error) {
	select {
	case req := <-l.reqCh:
		return I2CWriteRead, copy(buf, req), nil
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	case <-l.done:
		return 0, 0, ErrLoopbackClosed
	}
}

// Respond implements I2CTarget.
func (l *LoopbackI2C) Respond(ctx context.Context, data []byte) error {
	select {
	case l.respCh <- append([]byte(nil), data...):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopbackClosed
	}
}

// Reset implements I2CTarget.
func (l *LoopbackI2C) Reset() {}
