package firmware

import (
	"context"
	"io"

	"github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l0/motor"
)

// Board owns the motors, the watchdog and the transports.
type Board struct {
	Motors   *motor.Bank
	Watchdog *Watchdog
	Handler  *Handler

	tasks []framework.Runnable
}

// NewBoard creates a board with uninitialized motors.
func NewBoard() *Board {
	b := &Board{Motors: &motor.Bank{}}
	b.Watchdog = NewWatchdog(b.Motors)
	b.Handler = &Handler{Motors: b.Motors, Watchdog: b.Watchdog}
	return b
}

// AddUART adds a framed transport over a byte stream.
func (b *Board) AddUART(name string, port io.ReadWriter) *UART {
	u := NewUART(name, port, b.Handler)
	b.tasks = append(b.tasks, u.Tasks()...)
	return u
}

// AddUSB adds a framed transport over a packet endpoint.
func (b *Board) AddUSB(name string, ep PacketEndpoint) *USB {
	u := NewUSB(name, ep, b.Handler)
	b.tasks = append(b.tasks, u.Tasks()...)
	return u
}

// AddI2C adds the I2C control path.
func (b *Board) AddI2C(target I2CTarget) *I2C {
	t := &I2C{Target: target, Handler: b.Handler}
	b.tasks = append(b.tasks, t)
	return t
}

// AddTask adds a task started with the board, e.g. a current sampler.
func (b *Board) AddTask(tasks ...framework.Runnable) {
	b.tasks = append(b.tasks, tasks...)
}

// Run starts every task and waits until all stop.
func (b *Board) Run(ctx context.Context) error {
	r := framework.NewRunnerWith(ctx)
	r.Go(b.Watchdog)
	r.Go(b.tasks...)
	return r.Wait()
}
