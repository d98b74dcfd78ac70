package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/robotalks/dcmotor.go/pkg/cli/mon"
	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l1"
	"github.com/robotalks/dcmotor.go/pkg/l1/bridge"
	env "github.com/robotalks/dcmotor.go/pkg/l1/env/connector"
	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

var (
	portName   string
	baudRate   = comm.DefaultBaudRate
	streamMask = uint(comm.AllMotors)
	interval   = 100 * time.Millisecond
	timeout    = time.Second
)

func init() {
	if val := os.Getenv("DCMOTOR_PORT"); val != "" {
		portName = val
	}
	env.SetupFlags()
	flag.StringVar(&portName, "port", portName, "Board serial port or tcp://host:port, monitors a remote bridge if empty.")
	flag.IntVar(&baudRate, "baud", baudRate, "Serial baud rate.")
	flag.UintVar(&streamMask, "mask", streamMask, "Motors to stream.")
	flag.DurationVar(&interval, "interval", interval, "Stream interval, 0 leaves the stream as configured.")
	flag.DurationVar(&timeout, "timeout", timeout, "Connect and command timeout.")
}

func connect() (l1.BridgeConn, string, error) {
	if portName != "" {
		conn, err := bridge.OpenLocal(portName, baudRate)
		return conn, portName, err
	}
	conf := env.NewConfig()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	conn, err := conf.Connect(ctx)
	return conn, conf.Ref.Name(), err
}

func startStream(conn l1.BridgeConn) error {
	if interval <= 0 {
		return nil
	}
	cmd := &msgs.MotorStream{Mask: uint32(streamMask), IntervalMs: uint32(interval / time.Millisecond)}
	select {
	case res := <-conn.DoCommand(cmd).ResultChan():
		return res.Err
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conn, name, err := connect()
	if err != nil {
		log.Fatalln(err)
	}
	defer conn.Close()
	if err := startStream(conn); err != nil {
		log.Fatalln(err)
	}
	if _, err := tea.NewProgram(mon.New(name, conn.Events())).Run(); err != nil {
		log.Fatalln(err)
	}
}
