package firmware

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/robotalks/dcmotor.go/pkg/framework"
	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l0/motor"
)

// Config defines the configurations of the emulated board.
type Config struct {
	// UARTPort is a serial port serving the UART transport.
	UARTPort string
	UARTBaud int
	// USBListen is the address where hosts connect to the USB transport.
	USBListen string
	// Motors is the number of simulated motors, 0 leaves them uninitialized.
	Motors int
	// I2C enables the I2C control path on an in-process loopback.
	I2C bool
}

var defaultConfig = Config{
	UARTBaud:  comm.DefaultBaudRate,
	USBListen: "localhost:7000",
	Motors:    comm.MotorCount,
}

func init() {
	if val := os.Getenv("MOTORFW_UART"); val != "" {
		defaultConfig.UARTPort = val
	}
	if val := os.Getenv("MOTORFW_USB_LISTEN"); val != "" {
		defaultConfig.USBListen = val
	}
	if val, err := strconv.Atoi(os.Getenv("MOTORFW_MOTORS")); err == nil {
		defaultConfig.Motors = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.UARTPort, "uart", defaultConfig.UARTPort, "Serial port for the UART transport")
	flag.IntVar(&defaultConfig.UARTBaud, "baud", defaultConfig.UARTBaud, "UART baud rate")
	flag.StringVar(&defaultConfig.USBListen, "usb-listen", defaultConfig.USBListen, "Listen address emulating the USB transport, empty to disable")
	flag.IntVar(&defaultConfig.Motors, "motors", defaultConfig.Motors, "Number of simulated motors")
	flag.BoolVar(&defaultConfig.I2C, "i2c", defaultConfig.I2C, "Enable the loopback I2C control path")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Emulator is a board backed by simulated motors.
type Emulator struct {
	*Board
	Sims []*motor.Sim
	I2C  *LoopbackI2C
}

var openUART = func(name string, baud int) (io.ReadWriteCloser, error) {
	return comm.OpenPort(name, baud)
}

// NewEmulator creates the emulated board and opens its transports.
func (c *Config) NewEmulator() (*Emulator, error) {
	if c.Motors < 0 || c.Motors > comm.MotorCount {
		return nil, fmt.Errorf("motors must be in [0, %d]", comm.MotorCount)
	}
	e := &Emulator{Board: NewBoard()}
	if c.Motors > 0 {
		e.Sims = motor.NewSims(c.Motors)
		e.Motors.Install(motor.Motors(e.Sims)...)
		e.AddTask(framework.NamedRun("current-sampler", motor.NewCurrentSampler(e.Sims)))
	}
	var uart io.Closer
	if c.UARTPort != "" {
		port, err := openUART(c.UARTPort, c.UARTBaud)
		if err != nil {
			return nil, err
		}
		uart = port
		e.AddUART("uart", port)
	}
	if c.USBListen != "" {
		l, err := net.Listen("tcp", c.USBListen)
		if err != nil {
			if uart != nil {
				uart.Close()
			}
			return nil, fmt.Errorf("listen %s: %w", c.USBListen, err)
		}
		e.AddUSB("usb", NewListenerEndpoint(l))
	}
	if c.I2C {
		e.I2C = NewLoopbackI2C()
		e.AddI2C(e.I2C)
	}
	return e, nil
}
