package motor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
)

func TestParseMask(t *testing.T) {
	cases := map[string]comm.MotorMask{
		"all":  comm.AllMotors,
		"*":    comm.AllMotors,
		"0x5":  comm.MaskOf(0, 2),
		"3":    comm.MaskOf(3),
		"0,1":  comm.MaskOf(0, 1),
		"2, 3": comm.MaskOf(2, 3),
	}
	for in, want := range cases {
		mask, err := ParseMask(in)
		require.NoError(t, err, in)
		require.Equal(t, want, mask, in)
	}
	for _, in := range []string{"", "4", "-1", "0x", "0x100", "a,b"} {
		_, err := ParseMask(in)
		require.Error(t, err, in)
	}
}

func TestParseSpeed(t *testing.T) {
	speed, err := ParseSpeed("-0.5")
	require.NoError(t, err)
	require.Equal(t, float32(-0.5), speed)
	for _, in := range []string{"1.5", "-2", "fast", ""} {
		_, err := ParseSpeed(in)
		require.Error(t, err, in)
	}
}

func TestParseMillis(t *testing.T) {
	ms, err := ParseMillis("65535")
	require.NoError(t, err)
	require.Equal(t, uint32(65535), ms)
	for _, in := range []string{"65536", "-1", "1s"} {
		_, err := ParseMillis(in)
		require.Error(t, err, in)
	}
}
