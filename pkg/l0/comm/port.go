package comm

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// USB ids reported by the board.
const (
	BoardVID = "C0DE"
	BoardPID = "CAFE"
)

// DefaultBaudRate is used for UART links. USB CDC ignores it.
const DefaultBaudRate = 115200

// BoardPort describes a serial port attached to a board.
type BoardPort struct {
	Name         string
	SerialNumber string
	Product      string
}

// OpenPort opens a serial port in 8N1 mode.
func OpenPort(name string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return port, nil
}

// OpenPortTimeout opens a serial port whose reads return after timeout.
// A timed out read returns 0 bytes and no error.
func OpenPortTimeout(name string, baud int, timeout time.Duration) (serial.Port, error) {
	port, err := OpenPort(name, baud)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set timeout %s: %w", name, err)
	}
	return port, nil
}

// FindBoards lists USB serial ports with the board's VID/PID.
func FindBoards() ([]BoardPort, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	var boards []BoardPort
	for _, p := range ports {
		if !p.IsUSB || !IsBoard(p.VID, p.PID) {
			continue
		}
		boards = append(boards, BoardPort{Name: p.Name, SerialNumber: p.SerialNumber, Product: p.Product})
	}
	return boards, nil
}

// IsBoard matches USB ids case-insensitively.
func IsBoard(vid, pid string) bool {
	return strings.EqualFold(vid, BoardVID) && strings.EqualFold(pid, BoardPID)
}

// TCPPrefix selects a TCP connection in Open, used by the board emulator.
const TCPPrefix = "tcp://"

// Open connects to a board by serial port name or "tcp://host:port".
// An empty name picks the first attached board.
func Open(name string, baud int) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(name, TCPPrefix) {
		return net.Dial("tcp", name[len(TCPPrefix):])
	}
	if name == "" {
		boards, err := FindBoards()
		if err != nil {
			return nil, err
		}
		if len(boards) == 0 {
			return nil, ErrNoBoard
		}
		name = boards[0].Name
	}
	return OpenPort(name, baud)
}
