package bridge

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l1"
	"github.com/robotalks/dcmotor.go/pkg/l1/env"
)

// Config defines the configurations of a bridge daemon.
type Config struct {
	Info l1.BridgeInfo `yaml:"bridge"`

	// Port is the board serial port, or tcp://host:port for the emulator.
	// Empty picks the first attached board.
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`

	// MQTTBrokerURL specifies the MQTT broker to announce on.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt"`
	// WebsocketListen is the HTTP address serving websocket peers.
	WebsocketListen string `yaml:"websocket"`
	// StreamListen is the TCP address serving length-prefixed stream peers.
	StreamListen string `yaml:"listen"`

	// Stream configures telemetry requested once the board is reachable.
	Stream StreamConfig `yaml:"stream"`
	// Timeout is the time to wait for a board reply.
	Timeout time.Duration `yaml:"timeout"`
}

// StreamConfig is the initial telemetry stream.
type StreamConfig struct {
	Mask       uint `yaml:"mask"`
	IntervalMs uint `yaml:"interval_ms"`
}

var defaultConfig = Config{
	Info: l1.BridgeInfo{
		Ref: l1.BridgeRef{Type: l1.DefaultBridgeType},
	},
	Baud:          comm.DefaultBaudRate,
	MQTTBrokerURL: "mqtt://localhost:1883/robo/",
	Stream:        StreamConfig{Mask: uint(comm.AllMotors), IntervalMs: 100},
	Timeout:       DefaultTimeout,
}

func init() {
	defaultConfig.Info.Ref.ID = env.MachineID(l1.DefaultBridgeType)
	if val := os.Getenv("DCMOTOR_BRIDGE_ID"); val != "" {
		defaultConfig.Info.Ref.ID = val
	}
	if val := os.Getenv("DCMOTOR_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("DCMOTOR_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val, err := strconv.Atoi(os.Getenv("DCMOTOR_BAUD")); err == nil {
		defaultConfig.Baud = val
	}
}

// configFile loads a YAML file into the config when the flag is parsed.
// Flags after -config override values from the file.
type configFile struct {
	conf *Config
	path string
}

func (f *configFile) String() string {
	return f.path
}

func (f *configFile) Set(path string) error {
	if err := f.conf.LoadFile(path); err != nil {
		return err
	}
	f.path = path
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.Var(&configFile{conf: &defaultConfig}, "config", "YAML config file, flags after it override its values")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Bridge ID")
	flag.StringVar(&defaultConfig.Info.Meta.Description, "desc", defaultConfig.Info.Meta.Description, "Bridge description")
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Board serial port or tcp://host:port, empty to detect")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.WebsocketListen, "websocket", defaultConfig.WebsocketListen, "Websocket listen address")
	flag.StringVar(&defaultConfig.StreamListen, "listen", defaultConfig.StreamListen, "Stream listen address")
	flag.UintVar(&defaultConfig.Stream.Mask, "stream-mask", defaultConfig.Stream.Mask, "Motors to stream telemetry for")
	flag.UintVar(&defaultConfig.Stream.IntervalMs, "stream-interval", defaultConfig.Stream.IntervalMs, "Telemetry interval in milliseconds, 0 to disable")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Board reply timeout")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile overlays values from a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if !c.Info.Ref.IsValid() {
		return fmt.Errorf("bridge type and id must be specified")
	}
	if c.Stream.Mask > uint(comm.AllMotors) {
		return fmt.Errorf("invalid stream mask %#x", c.Stream.Mask)
	}
	if c.Stream.IntervalMs > 0xffff {
		return fmt.Errorf("stream interval %dms out of range", c.Stream.IntervalMs)
	}
	if c.MQTTBrokerURL == "" && c.WebsocketListen == "" && c.StreamListen == "" {
		return fmt.Errorf("no peer transport configured")
	}
	return nil
}
