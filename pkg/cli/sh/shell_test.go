package sh

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dcmotor.go/pkg/l1"
	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

func TestFormatInfo(t *testing.T) {
	info := l1.BridgeInfo{Ref: l1.BridgeRef{Type: "dcmotor", ID: "b1"}}
	require.Equal(t, "dcmotor/b1", FormatInfo(info))
	info.Meta.Description = "bench"
	info.Meta.Port = "/dev/ttyACM0"
	require.Equal(t, "dcmotor/b1: bench (/dev/ttyACM0)", FormatInfo(info))
}

func TestFormatMsg(t *testing.T) {
	out, err := FormatMsg(msgs.NewCommandOK(), false)
	require.NoError(t, err)
	require.Equal(t, "OK", out)

	out, err = FormatMsg(&msgs.MotorPong{Id: 3}, false)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "MotorPong id:3"), out)

	out, err = FormatMsg(&msgs.MotorStatus{MotorId: 1, Speed: 0.5, Current: -1, Enabled: true}, true)
	require.NoError(t, err)
	require.Equal(t, `{"motor_id":1,"speed":0.5,"current":-1,"enabled":true}`, out)
}
