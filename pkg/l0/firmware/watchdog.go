package firmware

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l0/motor"
)

type deadline struct {
	at       time.Time
	disabled bool
}

// Watchdog disarms all motors unless the host keeps renewing the deadline.
type Watchdog struct {
	Motors *motor.Bank

	deadline framework.Signal[deadline]
}

// NewWatchdog creates a watchdog over motors.
func NewWatchdog(motors *motor.Bank) *Watchdog {
	return &Watchdog{Motors: motors}
}

// Name implements framework.Named.
func (w *Watchdog) Name() string {
	return "watchdog"
}

// Feed arms the motors until now+d, replacing any pending deadline.
func (w *Watchdog) Feed(d time.Duration) {
	w.deadline.Signal(deadline{at: time.Now().Add(d)})
}

// Disable disarms the motors until the next Feed.
func (w *Watchdog) Disable() {
	w.deadline.Signal(deadline{disabled: true})
}

// Run implements framework.Runnable.
func (w *Watchdog) Run(ctx context.Context) error {
	for {
		dl, err := w.deadline.Wait(ctx)
		if err != nil {
			return err
		}
		if dl.disabled {
			glog.V(2).Info("watchdog: disabled")
			w.Motors.SetArmedAll(false)
			continue
		}
		if time.Until(dl.at) > 0 {
			w.Motors.SetArmedAll(true)
		}
		preempted, err := w.sleepUntil(ctx, dl.at)
		if err != nil {
			return err
		}
		if preempted {
			continue
		}
		glog.Warning("watchdog: deadline elapsed, disarming")
		w.Motors.SetArmedAll(false)
	}
}

// sleepUntil waits for at and reports whether a newer deadline is pending.
// The pending deadline is left in place for the next Wait.
func (w *Watchdog) sleepUntil(ctx context.Context, at time.Time) (bool, error) {
	timer := time.NewTimer(time.Until(at))
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return w.deadline.Signaled(), nil
		case <-w.deadline.Ready():
			if w.deadline.Signaled() {
				return true, nil
			}
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
