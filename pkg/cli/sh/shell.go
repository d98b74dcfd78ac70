package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
	"github.com/robotalks/dcmotor.go/pkg/l1"
	"github.com/robotalks/dcmotor.go/pkg/l1/bridge"
	env "github.com/robotalks/dcmotor.go/pkg/l1/env/connector"
	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is the connection to a board, either attached locally or through a bridge.
type Conn struct {
	Name string
	Conn l1.BridgeConn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	portName   string
	baudRate   = comm.DefaultBaudRate
	timeout    = time.Second

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&DiscoverCmd,
		&OpenCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&WatchCmd,
	}
)

func init() {
	if val := os.Getenv("DCMOTOR_PORT"); val != "" {
		portName = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&portName, "port", portName, "Board serial port or tcp://host:port to open on start.")
	flag.IntVar(&baudRate, "baud", baudRate, "Serial baud rate.")
	flag.DurationVar(&timeout, "timeout", timeout, "Command timeout.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints BridgeInfo into friendly string for display.
func FormatInfo(info l1.BridgeInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	if info.Meta.Port != "" {
		fmt.Fprintf(&w, " (%s)", info.Meta.Port)
	}
	return w.String()
}

// FormatMsg prints a message for display.
func FormatMsg(msg msgs.Message, asJSON bool) (string, error) {
	if asJSON {
		out, err := json.Marshal(msg)
		return string(out), err
	}
	if _, ok := msg.(*msgs.CommandOK); ok {
		return "OK", nil
	}
	return fmt.Sprintf("%s %s", reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), msg.String()), nil
}

// DoCommand runs a command and waits for result.
func DoCommand(c *ishell.Context, msg msgs.Message) (err error) {
	s := ShellFrom(c)
	if s.Conn == nil {
		err = fmt.Errorf("not connected")
		c.Err(err)
		return
	}
	f := s.Conn.Conn.DoCommand(msg)
	select {
	case res := <-f.ResultChan():
		if res.Err != nil {
			c.Err(res.Err)
			return res.Err
		}
		out, err := FormatMsg(res.Msg, s.OutputJSON)
		if err != nil {
			c.Err(err)
			return err
		}
		c.Println(out)
	case <-time.After(s.Timeout):
		c.Err(fmt.Errorf("command timeout"))
		return context.DeadlineExceeded
	}
	return nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverBridges discovers announced bridges.
func (s *Shell) DiscoverBridges() ([]l1.BridgeInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	return connector.Discover(context.TODO())
}

// SelectBridge discovers bridges and asks for a choice.
func (s *Shell) SelectBridge() (*l1.BridgeInfo, error) {
	infoList, err := s.DiscoverBridges()
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 bridges discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Attach makes conn the current connection.
func (s *Shell) Attach(name string, conn l1.BridgeConn) {
	s.Disconnect()
	s.Conn = &Conn{Name: name, Conn: conn}
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
}

// Open opens a board attached to this machine.
func (s *Shell) Open(port string) error {
	conn, err := bridge.OpenLocal(port, baudRate)
	if err != nil {
		return err
	}
	name := port
	if name == "" {
		name = "local"
	}
	s.Attach(name, conn)
	return nil
}

// Connect connects a bridge with ref.
func (s *Shell) Connect(ref l1.BridgeRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	conn, err := connector.Connect(context.TODO(), ref)
	if err != nil {
		return err
	}
	s.Attach(ref.Name(), conn)
	return nil
}

// Disconnect disconnects current board.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Conn.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		var err error
		switch {
		case portName != "":
			err = s.Open(portName)
		case s.Config.Ref.IsValid():
			if s.Interactive {
				s.Shell.Printf("Connecting %s ...\n", s.Config.Ref.Name())
			}
			err = s.Connect(s.Config.Ref)
		}
		if err != nil {
			log.Fatalf("connect failed: %v", err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// PortsCmd lists attached boards.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"p"},
		Help:    "",
		Func: func(c *ishell.Context) {
			boards, err := comm.FindBoards()
			if err != nil {
				c.Err(err)
				return
			}
			if ShellFrom(c).OutputJSON {
				if len(boards) == 0 {
					boards = []comm.BoardPort{}
				}
				out, err := json.Marshal(boards)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(boards) == 0 {
				c.Println("No boards found")
				return
			}
			for _, b := range boards {
				c.Printf("%s %s %s\n", b.Name, b.SerialNumber, b.Product)
			}
		},
	}

	// DiscoverCmd discovers bridges.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverBridges()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []l1.BridgeInfo{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No bridges found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// OpenCmd opens a board attached to this machine.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[PORT|tcp://HOST:PORT]",
		Func: func(c *ishell.Context) {
			var port string
			if len(c.Args) > 0 {
				port = c.Args[0]
			}
			if err := ShellFrom(c).Open(port); err != nil {
				c.Err(err)
			}
		},
	}

	// ConnectCmd connects a bridge.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[ID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ref := l1.BridgeRef{Type: s.Config.Ref.Type}
			if len(c.Args) > 0 {
				ref.ID = c.Args[0]
			} else {
				info, err := s.SelectBridge()
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no bridge discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current board.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// WatchCmd prints board events.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[COUNT]",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			count := 10
			if len(c.Args) > 0 {
				val, err := strconv.Atoi(c.Args[0])
				if err != nil || val <= 0 {
					c.Err(fmt.Errorf("invalid COUNT %q", c.Args[0]))
					return
				}
				count = val
			}
			for n := 0; n < count; n++ {
				select {
				case msg, ok := <-s.Conn.Conn.Events():
					if !ok {
						c.Err(fmt.Errorf("connection closed"))
						return
					}
					out, err := FormatMsg(msg, s.OutputJSON)
					if err != nil {
						c.Err(err)
						return
					}
					c.Println(out)
				case <-time.After(s.Timeout):
					c.Err(fmt.Errorf("no events, try stream first"))
					return
				}
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
