// Package motor defines the motor capability consumed by the firmware and
// a simulated driver used for tests and emulation.
package motor

import (
	"sync"
)

// Motor is a single H-bridge channel.
// SetArmed(true) on an armed motor must have no side effect.
type Motor interface {
	// SetSpeed commands a duty in [-1, 1]. A disarmed motor outputs nothing.
	SetSpeed(speed float32)
	SetArmed(armed bool)
	IsArmed() bool
	IsFault() bool
	LastSpeed() float32
	// CurrentDraw returns amps, negative if no reading is available.
	CurrentDraw() float32
}

// Bank is the set of motors shared by all tasks, guarded by one lock.
// Until Install is called the bank is uninitialized and Do is a no-op.
type Bank struct {
	lock      sync.Mutex
	motors    []Motor
	installed bool
}

// Install makes motors available. Motor ids are slice indices.
func (b *Bank) Install(motors ...Motor) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.motors = append([]Motor(nil), motors...)
	b.installed = true
}

// Installed reports whether motors are available.
func (b *Bank) Installed() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.installed
}

// Do runs fn with the lock held. It returns false without calling fn
// when the bank is uninitialized. fn must not block.
func (b *Bank) Do(fn func(motors []Motor)) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.installed {
		return false
	}
	fn(b.motors)
	return true
}

// With runs fn on a single motor with the lock held.
func (b *Bank) With(id int, fn func(m Motor)) bool {
	var found bool
	b.Do(func(motors []Motor) {
		if id >= 0 && id < len(motors) {
			found = true
			fn(motors[id])
		}
	})
	return found
}

// SetArmedAll arms or disarms every motor.
func (b *Bank) SetArmedAll(armed bool) bool {
	return b.Do(func(motors []Motor) {
		for _, m := range motors {
			m.SetArmed(armed)
		}
	})
}

// State is a snapshot of one motor.
type State struct {
	ID          int
	Speed       float32
	CurrentDraw float32
	Fault       bool
	Armed       bool
}

// Snapshot reads the state of motor id.
func (b *Bank) Snapshot(id int) (s State, ok bool) {
	ok = b.With(id, func(m Motor) {
		s = State{
			ID:          id,
			Speed:       m.LastSpeed(),
			CurrentDraw: m.CurrentDraw(),
			Fault:       m.IsFault(),
			Armed:       m.IsArmed(),
		}
	})
	return
}
