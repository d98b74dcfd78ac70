package comm

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ProtocolVersion must be incremented on any incompatible wire format change.
const ProtocolVersion uint16 = 1

// MotorCount is the number of motors on the board.
const MotorCount = 4

// MotorMask is a set of motor ids, one bit per id.
type MotorMask uint8

// Motor bits.
const (
	Motor0 MotorMask = 1 << iota
	Motor1
	Motor2
	Motor3

	AllMotors = Motor0 | Motor1 | Motor2 | Motor3
)

// MaskOf builds a mask from ids. Ids out of range are ignored.
func MaskOf(ids ...int) MotorMask {
	var m MotorMask
	for _, id := range ids {
		if id >= 0 && id < MotorCount {
			m |= 1 << uint(id)
		}
	}
	return m
}

// Has reports whether id is in the mask.
func (m MotorMask) Has(id int) bool {
	return id >= 0 && id < MotorCount && m&(1<<uint(id)) != 0
}

// IDs returns the motor ids in ascending order.
func (m MotorMask) IDs() []int {
	ids := make([]int, 0, MotorCount)
	for id := 0; id < MotorCount; id++ {
		if m.Has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns the number of motors in the mask.
func (m MotorMask) Count() int {
	var n int
	for id := 0; id < MotorCount; id++ {
		if m.Has(id) {
			n++
		}
	}
	return n
}

// Truncate drops bits that don't name a motor.
func (m MotorMask) Truncate() MotorMask {
	return m & AllMotors
}

func (m MotorMask) String() string {
	ids := m.IDs()
	strs := make([]string, len(ids))
	for n, id := range ids {
		strs[n] = strconv.Itoa(id)
	}
	return "{" + strings.Join(strs, ",") + "}"
}

// Speed is a duty in [-1, 1] quantized to int16.
type Speed int16

const speedScale = math.MaxInt16

// SpeedFromFloat quantizes v, clamping it to [-1, 1].
func SpeedFromFloat(v float32) Speed {
	f := float64(v)
	if math.IsNaN(f) {
		return 0
	}
	f = math.Max(-1, math.Min(1, f))
	return Speed(math.Round(f * speedScale))
}

// Float returns the duty in [-1, 1].
// The raw value -32768 maps slightly below -1 and is clamped.
func (s Speed) Float() float32 {
	return float32(math.Max(-1, float64(s)/speedScale))
}

// CurrentDraw is a current in [0, 3] A quantized to uint16.
// CurrentUnknown marks a reading that isn't available.
type CurrentDraw uint16

// CurrentUnknown is the wire sentinel for an unavailable reading.
const CurrentUnknown CurrentDraw = math.MaxUint16

const (
	currentMaxAmps = 3.0
	currentScale   = math.MaxUint16 - 1
)

// CurrentFromAmps quantizes amps. Negative values encode as CurrentUnknown.
func CurrentFromAmps(amps float32) CurrentDraw {
	f := float64(amps)
	if f < 0 || math.IsNaN(f) {
		return CurrentUnknown
	}
	f = math.Min(currentMaxAmps, f)
	return CurrentDraw(math.Round(f / currentMaxAmps * currentScale))
}

// Amps returns the current in amps, or -1 for CurrentUnknown.
func (c CurrentDraw) Amps() float32 {
	if c == CurrentUnknown {
		return -1
	}
	return float32(currentMaxAmps * float64(c) / currentScale)
}

// Interval is a duration in milliseconds.
type Interval uint16

// IntervalFromDuration converts d, saturating at the largest interval.
func IntervalFromDuration(d time.Duration) Interval {
	ms := d.Milliseconds()
	switch {
	case ms <= 0:
		return 0
	case ms > math.MaxUint16:
		return math.MaxUint16
	}
	return Interval(ms)
}

// Duration converts to time.Duration.
func (i Interval) Duration() time.Duration {
	return time.Duration(i) * time.Millisecond
}
