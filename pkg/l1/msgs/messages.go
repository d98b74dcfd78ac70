package msgs

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/dcmotor.go/pkg/l0/comm"
)

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() Message { return &CommandOK{} }

// TypeID implements Message.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// ProtoMessage implements proto.Message.
func (m *CommandOK) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandOK) Reset() { *m = CommandOK{} }

// String implements proto.Message.
func (m *CommandOK) String() string { return proto.CompactTextString(m) }

// CommandErr is the generic message representing command error.
// Device is set when the board itself reported the error, Kind is then its ErrorKind.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
	Device  bool   `protobuf:"varint,2,opt,name=device,proto3" json:"device,omitempty"`
	Kind    uint32 `protobuf:"varint,3,opt,name=kind,proto3" json:"kind,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	if devErr, ok := err.(*comm.DeviceError); ok {
		return &CommandErr{Message: err.Error(), Device: true, Kind: uint32(devErr.Kind)}
	}
	return NewCommandErrFromMsg(err.Error())
}

// NewCommandErrFromMsg creates a CommandErr.
func NewCommandErrFromMsg(message string) *CommandErr {
	return &CommandErr{Message: message}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() Message { return &CommandErr{} }

// TypeID implements Message.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// MotorPing command.
type MotorPing struct {
	Id uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
}

// NewMessage implements Message.
func (m *MotorPing) NewMessage() Message { return &MotorPing{} }

// TypeID implements Message.
func (m *MotorPing) TypeID() uint32 { return MotorPingTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorPing) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorPing) Reset() { *m = MotorPing{} }

// String implements proto.Message.
func (m *MotorPing) String() string { return proto.CompactTextString(m) }

// MotorPong replies MotorPing.
type MotorPong struct {
	Id uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
}

// NewMessage implements Message.
func (m *MotorPong) NewMessage() Message { return &MotorPong{} }

// TypeID implements Message.
func (m *MotorPong) TypeID() uint32 { return MotorPongTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorPong) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorPong) Reset() { *m = MotorPong{} }

// String implements proto.Message.
func (m *MotorPong) String() string { return proto.CompactTextString(m) }

// MotorVersionQuery queries the protocol version of the board.
type MotorVersionQuery struct {
}

// NewMessage implements Message.
func (m *MotorVersionQuery) NewMessage() Message { return &MotorVersionQuery{} }

// TypeID implements Message.
func (m *MotorVersionQuery) TypeID() uint32 { return MotorVersionQueryTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorVersionQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorVersionQuery) Reset() { *m = MotorVersionQuery{} }

// String implements proto.Message.
func (m *MotorVersionQuery) String() string { return proto.CompactTextString(m) }

// MotorVersion replies MotorVersionQuery.
type MotorVersion struct {
	Protocol uint32 `protobuf:"varint,1,opt,name=protocol,proto3" json:"protocol,omitempty"`
}

// NewMessage implements Message.
func (m *MotorVersion) NewMessage() Message { return &MotorVersion{} }

// TypeID implements Message.
func (m *MotorVersion) TypeID() uint32 { return MotorVersionTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorVersion) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorVersion) Reset() { *m = MotorVersion{} }

// String implements proto.Message.
func (m *MotorVersion) String() string { return proto.CompactTextString(m) }

// MotorInfoQuery queries the software version of the board.
type MotorInfoQuery struct {
}

// NewMessage implements Message.
func (m *MotorInfoQuery) NewMessage() Message { return &MotorInfoQuery{} }

// TypeID implements Message.
func (m *MotorInfoQuery) TypeID() uint32 { return MotorInfoQueryTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorInfoQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorInfoQuery) Reset() { *m = MotorInfoQuery{} }

// String implements proto.Message.
func (m *MotorInfoQuery) String() string { return proto.CompactTextString(m) }

// MotorInfo replies MotorInfoQuery.
type MotorInfo struct {
	Software uint32 `protobuf:"varint,1,opt,name=software,proto3" json:"software,omitempty"`
}

// NewMessage implements Message.
func (m *MotorInfo) NewMessage() Message { return &MotorInfo{} }

// TypeID implements Message.
func (m *MotorInfo) TypeID() uint32 { return MotorInfoTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorInfo) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorInfo) Reset() { *m = MotorInfo{} }

// String implements proto.Message.
func (m *MotorInfo) String() string { return proto.CompactTextString(m) }

// MotorSetSpeed command. Speed is a duty in [-1, 1].
type MotorSetSpeed struct {
	Mask  uint32  `protobuf:"varint,1,opt,name=mask,proto3" json:"mask,omitempty"`
	Speed float32 `protobuf:"fixed32,2,opt,name=speed,proto3" json:"speed,omitempty"`
}

// NewMessage implements Message.
func (m *MotorSetSpeed) NewMessage() Message { return &MotorSetSpeed{} }

// TypeID implements Message.
func (m *MotorSetSpeed) TypeID() uint32 { return MotorSetSpeedTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorSetSpeed) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorSetSpeed) Reset() { *m = MotorSetSpeed{} }

// String implements proto.Message.
func (m *MotorSetSpeed) String() string { return proto.CompactTextString(m) }

// MotorArm command. Zero TimeoutMs disarms.
type MotorArm struct {
	TimeoutMs uint32 `protobuf:"varint,1,opt,name=timeout_ms,json=timeoutMs,proto3" json:"timeout_ms,omitempty"`
}

// NewMessage implements Message.
func (m *MotorArm) NewMessage() Message { return &MotorArm{} }

// TypeID implements Message.
func (m *MotorArm) TypeID() uint32 { return MotorArmTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorArm) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorArm) Reset() { *m = MotorArm{} }

// String implements proto.Message.
func (m *MotorArm) String() string { return proto.CompactTextString(m) }

// MotorStream command. An empty mask or zero interval stops streaming.
type MotorStream struct {
	Mask       uint32 `protobuf:"varint,1,opt,name=mask,proto3" json:"mask,omitempty"`
	IntervalMs uint32 `protobuf:"varint,2,opt,name=interval_ms,json=intervalMs,proto3" json:"interval_ms,omitempty"`
}

// NewMessage implements Message.
func (m *MotorStream) NewMessage() Message { return &MotorStream{} }

// TypeID implements Message.
func (m *MotorStream) TypeID() uint32 { return MotorStreamTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorStream) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorStream) Reset() { *m = MotorStream{} }

// String implements proto.Message.
func (m *MotorStream) String() string { return proto.CompactTextString(m) }

// MotorReset reboots the board into its bootloader.
type MotorReset struct {
}

// NewMessage implements Message.
func (m *MotorReset) NewMessage() Message { return &MotorReset{} }

// TypeID implements Message.
func (m *MotorReset) TypeID() uint32 { return MotorResetTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorReset) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorReset) Reset() { *m = MotorReset{} }

// String implements proto.Message.
func (m *MotorReset) String() string { return proto.CompactTextString(m) }

// MotorStatus is an event reflecting one motor's state.
// Current is in amps, negative when unknown.
type MotorStatus struct {
	MotorId uint32  `protobuf:"varint,1,opt,name=motor_id,json=motorId,proto3" json:"motor_id,omitempty"`
	Speed   float32 `protobuf:"fixed32,2,opt,name=speed,proto3" json:"speed,omitempty"`
	Current float32 `protobuf:"fixed32,3,opt,name=current,proto3" json:"current,omitempty"`
	Fault   bool    `protobuf:"varint,4,opt,name=fault,proto3" json:"fault,omitempty"`
	Enabled bool    `protobuf:"varint,5,opt,name=enabled,proto3" json:"enabled,omitempty"`
}

// MotorStatusFrom converts a board MotorState.
func MotorStatusFrom(s comm.MotorState) *MotorStatus {
	return &MotorStatus{
		MotorId: uint32(s.MotorID),
		Speed:   s.LastSpeed.Float(),
		Current: s.CurrentDraw.Amps(),
		Fault:   s.IsFault,
		Enabled: s.IsEnabled,
	}
}

// NewMessage implements Message.
func (m *MotorStatus) NewMessage() Message { return &MotorStatus{} }

// TypeID implements Message.
func (m *MotorStatus) TypeID() uint32 { return MotorStatusTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorStatus) Reset() { *m = MotorStatus{} }

// String implements proto.Message.
func (m *MotorStatus) String() string { return proto.CompactTextString(m) }

// MotorFault is an event forwarding an Error packet the board sent on its own.
type MotorFault struct {
	Kind    uint32 `protobuf:"varint,1,opt,name=kind,proto3" json:"kind,omitempty"`
	Message string `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

// MotorFaultFrom converts a board Error packet.
func MotorFaultFrom(p comm.ErrorPacket) *MotorFault {
	return &MotorFault{Kind: uint32(p.Kind), Message: p.Kind.String()}
}

// NewMessage implements Message.
func (m *MotorFault) NewMessage() Message { return &MotorFault{} }

// TypeID implements Message.
func (m *MotorFault) TypeID() uint32 { return MotorFaultTypeID }

// ProtoMessage implements proto.Message.
func (m *MotorFault) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorFault) Reset() { *m = MotorFault{} }

// String implements proto.Message.
func (m *MotorFault) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupMotor   uint32 = 0x00010000
	GroupCustom  uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	CommandOKTypeID         uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID        uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	MotorPingTypeID         uint32 = GroupMotor | 0x0000
	MotorPongTypeID         uint32 = MotorPingTypeID | TypeIDMaskReply
	MotorVersionQueryTypeID uint32 = GroupMotor | 0x0001
	MotorVersionTypeID      uint32 = MotorVersionQueryTypeID | TypeIDMaskReply
	MotorInfoQueryTypeID    uint32 = GroupMotor | 0x0002
	MotorInfoTypeID         uint32 = MotorInfoQueryTypeID | TypeIDMaskReply
	MotorSetSpeedTypeID     uint32 = GroupMotor | 0x0003
	MotorArmTypeID          uint32 = GroupMotor | 0x0004
	MotorStreamTypeID       uint32 = GroupMotor | 0x0005
	MotorResetTypeID        uint32 = GroupMotor | 0x0006
	MotorStatusTypeID       uint32 = GroupMotor | TypeIDKindEvent | 0x0000
	MotorFaultTypeID        uint32 = GroupMotor | TypeIDKindEvent | 0x0001
)
