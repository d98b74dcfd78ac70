package motor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/dcmotor.go/pkg/cli/sh"
	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

// ParseMask parses "all", a hex mask like "0x5", or a comma separated list of ids.
func ParseMask(s string) (comm.MotorMask, error) {
	if s == "all" || s == "*" {
		return comm.AllMotors, nil
	}
	if strings.HasPrefix(s, "0x") {
		val, err := strconv.ParseUint(s[2:], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid MASK %q", s)
		}
		return comm.MotorMask(val), nil
	}
	var mask comm.MotorMask
	for _, item := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil || id < 0 || id >= comm.MotorCount {
			return 0, fmt.Errorf("invalid motor id %q", item)
		}
		mask |= comm.MaskOf(id)
	}
	return mask, nil
}

// ParseSpeed parses a duty in [-1, 1].
func ParseSpeed(s string) (float32, error) {
	val, err := strconv.ParseFloat(s, 32)
	if err != nil || val < -1 || val > 1 {
		return 0, fmt.Errorf("invalid SPEED %q, expect [-1, 1]", s)
	}
	return float32(val), nil
}

// ParseMillis parses a duration in milliseconds the board can represent.
func ParseMillis(s string) (uint32, error) {
	val, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid MS %q", s)
	}
	return uint32(val), nil
}

func requireArgs(c *ishell.Context, names ...string) bool {
	if len(c.Args) < len(names) {
		c.Err(fmt.Errorf("%s required", strings.Join(names, " ")))
		return false
	}
	return true
}

var (
	// PingCmd exposes MotorPing command.
	PingCmd = ishell.Cmd{
		Name: "ping",
		Help: "[ID]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			var msg msgs.MotorPing
			if len(c.Args) > 0 {
				val, err := strconv.ParseUint(c.Args[0], 0, 8)
				if err != nil {
					c.Err(fmt.Errorf("invalid ID: %v", err))
					return
				}
				msg.Id = uint32(val)
			}
			sh.DoCommand(c, &msg)
		}),
	}

	// VersionCmd exposes MotorVersionQuery command.
	VersionCmd = ishell.Cmd{
		Name:    "version",
		Aliases: []string{"ver"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.MotorVersionQuery{})
		}),
	}

	// InfoCmd exposes MotorInfoQuery command.
	InfoCmd = ishell.Cmd{
		Name: "info",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.MotorInfoQuery{})
		}),
	}

	// ArmCmd exposes MotorArm command.
	ArmCmd = ishell.Cmd{
		Name: "arm",
		Help: "MS",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if !requireArgs(c, "MS") {
				return
			}
			ms, err := ParseMillis(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, &msgs.MotorArm{TimeoutMs: ms})
		}),
	}

	// DisarmCmd exposes MotorArm command with zero timeout.
	DisarmCmd = ishell.Cmd{
		Name: "disarm",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.MotorArm{})
		}),
	}

	// SpeedCmd exposes MotorSetSpeed command.
	SpeedCmd = ishell.Cmd{
		Name:    "speed",
		Aliases: []string{"s"},
		Help:    "MASK SPEED(-1..1)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if !requireArgs(c, "MASK", "SPEED") {
				return
			}
			mask, err := ParseMask(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			speed, err := ParseSpeed(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, &msgs.MotorSetSpeed{Mask: uint32(mask), Speed: speed})
		}),
	}

	// StreamCmd exposes MotorStream command.
	StreamCmd = ishell.Cmd{
		Name: "stream",
		Help: "MASK MS | stop",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 1 && c.Args[0] == "stop" {
				sh.DoCommand(c, &msgs.MotorStream{})
				return
			}
			if !requireArgs(c, "MASK", "MS") {
				return
			}
			mask, err := ParseMask(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			ms, err := ParseMillis(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, &msgs.MotorStream{Mask: uint32(mask), IntervalMs: ms})
		}),
	}

	// ResetCmd exposes MotorReset command.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if sh.ShellFrom(c).Interactive && !confirmReset(c) {
				return
			}
			sh.DoCommand(c, &msgs.MotorReset{})
		}),
	}
)

func confirmReset(c *ishell.Context) bool {
	c.Print("Reboot the board into its bootloader? [y/N] ")
	return strings.EqualFold(strings.TrimSpace(c.ReadLine()), "y")
}

func init() {
	sh.AddCmds(
		&PingCmd,
		&VersionCmd,
		&InfoCmd,
		&ArmCmd,
		&DisarmCmd,
		&SpeedCmd,
		&StreamCmd,
		&ResetCmd,
	)
}
