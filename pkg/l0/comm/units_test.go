package comm

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMotorMask(t *testing.T) {
	m := MaskOf(2, 0, 7, -1)
	require.Equal(t, Motor0|Motor2, m)
	require.Equal(t, []int{0, 2}, m.IDs())
	require.Equal(t, 2, m.Count())
	require.Equal(t, "{0,2}", m.String())
	require.True(t, m.Has(2))
	require.False(t, m.Has(1))
	require.False(t, MotorMask(0xff).Has(4))
	require.Equal(t, AllMotors, MotorMask(0xff).Truncate())
	require.Empty(t, MotorMask(0).IDs())
}

func TestSpeedQuantization(t *testing.T) {
	require.Equal(t, Speed(32767), SpeedFromFloat(1))
	require.Equal(t, Speed(-32767), SpeedFromFloat(-1))
	require.Equal(t, Speed(32767), SpeedFromFloat(5))
	require.Equal(t, Speed(-32767), SpeedFromFloat(-5))
	require.Equal(t, Speed(0), SpeedFromFloat(float32(math.NaN())))
	require.Equal(t, float32(-1), Speed(math.MinInt16).Float())

	for v := -1.0; v <= 1.0; v += 0.001 {
		got := SpeedFromFloat(float32(v)).Float()
		require.InDeltaf(t, v, got, 1.0/32767+1e-6, "speed %f", v)
	}
}

func TestCurrentQuantization(t *testing.T) {
	require.Equal(t, CurrentDraw(0), CurrentFromAmps(0))
	require.Equal(t, CurrentDraw(65534), CurrentFromAmps(3))
	require.Equal(t, CurrentDraw(65534), CurrentFromAmps(10))
	require.Equal(t, CurrentUnknown, CurrentFromAmps(-1))
	require.Equal(t, CurrentUnknown, CurrentFromAmps(float32(math.NaN())))
	require.Equal(t, float32(-1), CurrentFromAmps(-1).Amps())

	for a := 0.0; a <= 3.0; a += 0.003 {
		got := CurrentFromAmps(float32(a)).Amps()
		require.InDeltaf(t, a, got, 3.0/65534+1e-6, "current %f", a)
	}
}

func TestInterval(t *testing.T) {
	require.Equal(t, Interval(0), IntervalFromDuration(-time.Second))
	require.Equal(t, Interval(100), IntervalFromDuration(100*time.Millisecond))
	require.Equal(t, Interval(math.MaxUint16), IntervalFromDuration(time.Hour))
	require.Equal(t, 50*time.Millisecond, Interval(50).Duration())
}
