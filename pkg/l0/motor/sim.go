package motor

import (
	"context"
	"math"
	"sync"
	"time"
)

// CurrentWatch holds the latest current reading of one motor.
type CurrentWatch struct {
	lock sync.Mutex
	amps float32
	set  bool
}

// Send publishes a reading.
func (w *CurrentWatch) Send(amps float32) {
	w.lock.Lock()
	w.amps, w.set = amps, true
	w.lock.Unlock()
}

// Get returns the latest reading, or -1 before the first one.
func (w *CurrentWatch) Get() float32 {
	w.lock.Lock()
	defer w.lock.Unlock()
	if !w.set {
		return -1
	}
	return w.amps
}

// Sim simulates a DRV8874 channel: the enable input gates the bridge and
// the commanded duty only reaches the output while armed.
type Sim struct {
	Current CurrentWatch

	lock   sync.Mutex
	speed  float32
	armed  bool
	fault  bool
	enable int
}

// NewSims creates n simulated motors.
func NewSims(n int) []*Sim {
	sims := make([]*Sim, n)
	for i := range sims {
		sims[i] = &Sim{}
	}
	return sims
}

// Motors converts sims to the Motor interface.
func Motors(sims []*Sim) []Motor {
	motors := make([]Motor, len(sims))
	for i, s := range sims {
		motors[i] = s
	}
	return motors
}

// SetSpeed implements Motor.
func (s *Sim) SetSpeed(speed float32) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.speed = float32(math.Max(-1, math.Min(1, float64(speed))))
}

// SetArmed implements Motor.
func (s *Sim) SetArmed(armed bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if armed && !s.armed {
		s.enable++
	}
	s.armed = armed
}

// IsArmed implements Motor.
func (s *Sim) IsArmed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.armed
}

// IsFault implements Motor.
func (s *Sim) IsFault() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.fault
}

// SetFault drives the simulated fault line.
func (s *Sim) SetFault(fault bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.fault = fault
}

// LastSpeed implements Motor.
func (s *Sim) LastSpeed() float32 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.speed
}

// CurrentDraw implements Motor.
func (s *Sim) CurrentDraw() float32 {
	return s.Current.Get()
}

// Output returns the duty actually applied to the bridge.
func (s *Sim) Output() float32 {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.armed || s.fault {
		return 0
	}
	return s.speed
}

// EnableCount returns how many times the enable line went high.
func (s *Sim) EnableCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.enable
}

// CurrentSampler feeds each motor's CurrentWatch with a load current that
// ramps towards StallAmps scaled by the applied duty.
type CurrentSampler struct {
	Motors    []*Sim
	Period    time.Duration
	StallAmps float64
	// SlewRate is the max current change in A/s. 0 means immediate.
	SlewRate float64

	amps []float64
}

// Default sampler settings.
const (
	DefaultSamplePeriod = 10 * time.Millisecond
	DefaultStallAmps    = 2.5
	DefaultSlewRate     = 20
)

// NewCurrentSampler creates a sampler with default settings.
func NewCurrentSampler(sims []*Sim) *CurrentSampler {
	return &CurrentSampler{
		Motors:    sims,
		Period:    DefaultSamplePeriod,
		StallAmps: DefaultStallAmps,
		SlewRate:  DefaultSlewRate,
	}
}

// Sample advances the load model by dt and publishes readings.
func (s *CurrentSampler) Sample(dt time.Duration) {
	if len(s.amps) != len(s.Motors) {
		s.amps = make([]float64, len(s.Motors))
	}
	for i, m := range s.Motors {
		target := math.Abs(float64(m.Output())) * s.StallAmps
		cur := s.amps[i]
		if s.SlewRate > 0 {
			step := s.SlewRate * dt.Seconds()
			if diff := target - cur; math.Abs(diff) > step {
				target = cur + math.Copysign(step, diff)
			}
		}
		s.amps[i] = target
		m.Current.Send(float32(target))
	}
}

// Run samples every Period until ctx is done.
func (s *CurrentSampler) Run(ctx context.Context) error {
	period := s.Period
	if period <= 0 {
		period = DefaultSamplePeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Sample(now.Sub(last))
			last = now
		}
	}
}
