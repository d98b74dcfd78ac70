package firmware

import (
	"context"
	"encoding/binary"

	"github.com/golang/glog"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l0/motor"
)

// I2C opcodes. The I2C path carries no checksum or delimiter framing,
// multi-byte fields are big-endian.
const (
	I2COpSetSpeed byte = iota
	I2COpReadMotor
	I2COpArm
)

// I2CCommand is the kind of transaction started by the controller.
type I2CCommand int

// I2C transactions.
const (
	I2CWrite I2CCommand = iota
	I2CRead
	I2CWriteRead
	I2CGeneralCall
)

// I2CTarget is the target side of an I2C bus.
type I2CTarget interface {
	// Listen waits for a transaction and returns the written bytes count.
	Listen(ctx context.Context, buf []byte) (I2CCommand, int, error)
	// Respond answers the read part of a WriteRead.
	Respond(ctx context.Context, data []byte) error
	// Reset recovers from an unsupported transaction.
	Reset()
}

// I2CBufferSize bounds requests and responses.
const I2CBufferSize = 128

// I2C serves the register-style control path.
type I2C struct {
	Target  I2CTarget
	Handler *Handler
}

// Name implements framework.Named.
func (t *I2C) Name() string {
	return "i2c"
}

// Run implements framework.Runnable.
func (t *I2C) Run(ctx context.Context) error {
	glog.Info("i2c: start")
	bufIn := make([]byte, I2CBufferSize)
	bufOut := make([]byte, 0, I2CBufferSize)
	for {
		cmd, n, err := t.Target.Listen(ctx, bufIn)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			glog.Errorf("i2c: listen: %v", err)
			if err := sleepCtx(ctx, retryDelay); err != nil {
				return err
			}
			continue
		}
		if cmd != I2CWriteRead {
			glog.Warningf("i2c: unsupported command %d", cmd)
			t.Target.Reset()
			continue
		}
		resp := t.Handler.HandleI2C(bufIn[:n], bufOut[:0])
		if err := t.Target.Respond(ctx, resp); err != nil {
			glog.Warningf("i2c: respond: %v", err)
		}
	}
}

// HandleI2C executes one I2C request and appends the response to resp.
// Malformed requests get an empty response.
func (h *Handler) HandleI2C(msg, resp []byte) []byte {
	if len(msg) == 0 {
		glog.Warning("i2c: empty request")
		return resp
	}
	op, args := msg[0], msg[1:]
	switch op {
	case I2COpSetSpeed:
		if len(args) < 3 {
			glog.Warningf("i2c: short SetSpeed request: %d bytes", len(args))
			return resp
		}
		mask := comm.MotorMask(args[0]).Truncate()
		h.SetSpeed(mask, comm.Speed(int16(binary.BigEndian.Uint16(args[1:]))))
		return h.appendI2CStates(resp, mask, false)
	case I2COpReadMotor:
		if len(args) < 1 {
			glog.Warning("i2c: short ReadMotor request")
			return resp
		}
		return h.appendI2CStates(resp, comm.MotorMask(args[0]).Truncate(), true)
	case I2COpArm:
		if len(args) < 2 {
			glog.Warningf("i2c: short Arm request: %d bytes", len(args))
			return resp
		}
		h.Arm(comm.Interval(binary.BigEndian.Uint16(args)))
		return resp
	}
	glog.Errorf("i2c: unknown opcode %d", op)
	return resp
}

// appendI2CStates writes [count, (id, [speed], current, fault)...].
// The count is 0 while motors are uninitialized.
func (h *Handler) appendI2CStates(resp []byte, mask comm.MotorMask, withSpeed bool) []byte {
	start := len(resp)
	resp = append(resp, 0)
	h.Motors.Do(func(ms []motor.Motor) {
		for _, id := range mask.IDs() {
			if id >= len(ms) {
				continue
			}
			m := ms[id]
			resp = append(resp, byte(id))
			if withSpeed {
				resp = binary.BigEndian.AppendUint16(resp, uint16(comm.SpeedFromFloat(m.LastSpeed())))
			}
			resp = binary.BigEndian.AppendUint16(resp, uint16(comm.CurrentFromAmps(m.CurrentDraw())))
			if m.IsFault() {
				resp = append(resp, 1)
			} else {
				resp = append(resp, 0)
			}
			resp[start]++
		}
	})
	return resp
}
