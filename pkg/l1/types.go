package l1

import (
	"context"

	"github.com/robotalks/dcmotor.go/pkg/l1/msgs"
)

// BridgeRef is a reference to a motor bridge.
type BridgeRef struct {
	// Type is the board type served by the bridge.
	Type string `yaml:"type"`
	// ID is unique ID of the bridge.
	ID string `yaml:"id"`
}

// DefaultBridgeType is the type announced by bridges of this board.
const DefaultBridgeType = "dcmotor"

// Name retrieves the name from ref.
func (r BridgeRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates BridgeRef is valid.
func (r BridgeRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// BridgeMeta provides metadata for a bridge.
type BridgeMeta struct {
	Description string            `json:"description,omitempty" yaml:"description"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels"`
	Port        string            `json:"port,omitempty" yaml:"-"`
	Protocol    uint32            `json:"protocol,omitempty" yaml:"-"`
}

// BridgeInfo provides information of a bridge.
type BridgeInfo struct {
	Ref  BridgeRef
	Meta BridgeMeta
}

// Connector is used by remote tools to reach a bridge.
type Connector interface {
	// Discover enumerates announced bridges.
	Discover(context.Context) ([]BridgeInfo, error)
	// Connect connects to the specified bridge.
	Connect(context.Context, BridgeRef) (BridgeConn, error)
}

// BridgeConn is the connection to a bridge.
type BridgeConn interface {
	// DoCommand executes a command.
	DoCommand(msgs.Message) CommandFuture
	// Events receives board events forwarded by the bridge.
	Events() <-chan msgs.Message
	// Close disconnects.
	Close() error
}

// Result represents result of a command.
type Result struct {
	Msg msgs.Message
	Err error
}

// CommandFuture is the future of sent command.
type CommandFuture interface {
	ResultChan() <-chan Result
}
