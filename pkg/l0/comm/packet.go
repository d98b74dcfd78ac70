package comm

import "fmt"

// HostPacket is a message from the host to the board.
type HostPacket interface {
	hostTag() uint32
	marshal(*writer)
}

// DevicePacket is a message from the board to the host.
type DevicePacket interface {
	deviceTag() uint32
	marshal(*writer)
}

// Host packet tags.
const (
	tagResetToBootloader uint32 = iota
	tagReadProtocolVersion
	tagPing
	tagReadSoftwareInfo
	tagStartStream
	tagSetSpeed
	tagSetArmed
)

// Device packet tags.
const (
	tagProtocolVersionResponse uint32 = iota
	tagError
	tagPong
	tagSoftwareInfoResponse
	tagMotorState
)

const (
	tagArmed uint32 = iota
	tagDisarmed
)

// ResetToBootloader reboots the board into its USB bootloader. No reply.
type ResetToBootloader struct{}

// ReadProtocolVersion asks for ProtocolVersionResponse.
type ReadProtocolVersion struct{}

// Ping asks for a Pong with the same ID.
type Ping struct {
	ID uint8
}

// ReadSoftwareInfo asks for SoftwareInfoResponse.
type ReadSoftwareInfo struct{}

// StartStream replaces the telemetry stream configuration.
// An empty mask or zero interval stops streaming.
type StartStream struct {
	Motors   MotorMask
	Interval Interval
}

// SetSpeed applies one speed to every motor in Motors.
type SetSpeed struct {
	Motors MotorMask
	Speed  Speed
}

// SetArmed either arms the motors for Duration or disarms them.
type SetArmed struct {
	Armed    bool
	Duration Interval
}

// ArmFor arms the motors until d elapses without renewal.
func ArmFor(d Interval) SetArmed {
	return SetArmed{Armed: true, Duration: d}
}

// Disarm disarms the motors until the next ArmFor.
func Disarm() SetArmed {
	return SetArmed{}
}

func (ResetToBootloader) hostTag() uint32   { return tagResetToBootloader }
func (ReadProtocolVersion) hostTag() uint32 { return tagReadProtocolVersion }
func (Ping) hostTag() uint32                { return tagPing }
func (ReadSoftwareInfo) hostTag() uint32    { return tagReadSoftwareInfo }
func (StartStream) hostTag() uint32         { return tagStartStream }
func (SetSpeed) hostTag() uint32            { return tagSetSpeed }
func (SetArmed) hostTag() uint32            { return tagSetArmed }

func (ResetToBootloader) marshal(*writer)   {}
func (ReadProtocolVersion) marshal(*writer) {}
func (ReadSoftwareInfo) marshal(*writer)    {}

func (p Ping) marshal(w *writer) {
	w.u8(p.ID)
}

func (p StartStream) marshal(w *writer) {
	w.u8(uint8(p.Motors))
	w.u16(uint16(p.Interval))
}

func (p SetSpeed) marshal(w *writer) {
	w.u8(uint8(p.Motors))
	w.i16(int16(p.Speed))
}

func (p SetArmed) marshal(w *writer) {
	if !p.Armed {
		w.varint(tagDisarmed)
		return
	}
	w.varint(tagArmed)
	w.u16(uint16(p.Duration))
}

// ErrorKind classifies Error packets.
type ErrorKind uint8

// Error kinds. ErrorUnknown stands for any kind this build doesn't know.
const (
	ErrorDecoding ErrorKind = iota
	ErrorBufferOverflow
	ErrorUnimplemented
	ErrorUnknown ErrorKind = 0xff
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorDecoding:
		return "decoding error"
	case ErrorBufferOverflow:
		return "decoding buffer overflow"
	case ErrorUnimplemented:
		return "unimplemented"
	}
	return "unknown"
}

// ProtocolVersionResponse carries the firmware's ProtocolVersion.
type ProtocolVersionResponse struct {
	Version uint16
}

// ErrorPacket reports a failure to the host.
type ErrorPacket struct {
	Kind ErrorKind
}

// Pong answers Ping.
type Pong struct {
	ID uint8
}

// SoftwareInfoResponse answers ReadSoftwareInfo.
type SoftwareInfoResponse struct {
	Version uint16
}

// MotorState is one motor's live state, emitted by the telemetry stream.
type MotorState struct {
	MotorID     uint8
	LastSpeed   Speed
	CurrentDraw CurrentDraw
	IsFault     bool
	IsEnabled   bool
}

func (ProtocolVersionResponse) deviceTag() uint32 { return tagProtocolVersionResponse }
func (ErrorPacket) deviceTag() uint32             { return tagError }
func (Pong) deviceTag() uint32                    { return tagPong }
func (SoftwareInfoResponse) deviceTag() uint32    { return tagSoftwareInfoResponse }
func (MotorState) deviceTag() uint32              { return tagMotorState }

func (p ProtocolVersionResponse) marshal(w *writer) {
	w.u16(p.Version)
}

func (p ErrorPacket) marshal(w *writer) {
	w.varint(uint32(p.Kind))
}

func (p Pong) marshal(w *writer) {
	w.u8(p.ID)
}

func (p SoftwareInfoResponse) marshal(w *writer) {
	w.u16(p.Version)
}

func (p MotorState) marshal(w *writer) {
	w.u8(p.MotorID)
	w.i16(int16(p.LastSpeed))
	w.u16(uint16(p.CurrentDraw))
	w.boolean(p.IsFault)
	w.boolean(p.IsEnabled)
}

// MarshalHost serializes a host packet without framing.
func MarshalHost(p HostPacket) []byte {
	return appendHost(nil, p)
}

func appendHost(buf []byte, p HostPacket) []byte {
	w := writer{buf: buf}
	w.varint(p.hostTag())
	p.marshal(&w)
	return w.buf
}

// MarshalDevice serializes a device packet without framing.
func MarshalDevice(p DevicePacket) []byte {
	return appendDevice(nil, p)
}

func appendDevice(buf []byte, p DevicePacket) []byte {
	w := writer{buf: buf}
	w.varint(p.deviceTag())
	p.marshal(&w)
	return w.buf
}

// UnmarshalHost parses one host packet occupying all of b.
func UnmarshalHost(b []byte) (HostPacket, error) {
	r := reader{buf: b}
	var pkt HostPacket
	switch tag := r.tag(); tag {
	case tagResetToBootloader:
		pkt = ResetToBootloader{}
	case tagReadProtocolVersion:
		pkt = ReadProtocolVersion{}
	case tagPing:
		pkt = Ping{ID: r.u8()}
	case tagReadSoftwareInfo:
		pkt = ReadSoftwareInfo{}
	case tagStartStream:
		pkt = StartStream{Motors: MotorMask(r.u8()), Interval: Interval(r.u16())}
	case tagSetSpeed:
		pkt = SetSpeed{Motors: MotorMask(r.u8()), Speed: Speed(r.i16())}
	case tagSetArmed:
		switch sub := r.tag(); sub {
		case tagArmed:
			pkt = ArmFor(Interval(r.u16()))
		case tagDisarmed:
			pkt = Disarm()
		default:
			r.fail(&UnknownTagError{Enum: "SetArmed", Tag: sub})
		}
	default:
		r.fail(&UnknownTagError{Enum: "HostPacket", Tag: tag})
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return pkt, nil
}

// UnmarshalDevice parses one device packet occupying all of b.
// Unknown error kinds decode as ErrorUnknown.
func UnmarshalDevice(b []byte) (DevicePacket, error) {
	r := reader{buf: b}
	var pkt DevicePacket
	switch tag := r.tag(); tag {
	case tagProtocolVersionResponse:
		pkt = ProtocolVersionResponse{Version: r.u16()}
	case tagError:
		kind := r.tag()
		if kind > uint32(ErrorUnimplemented) {
			kind = uint32(ErrorUnknown)
		}
		pkt = ErrorPacket{Kind: ErrorKind(kind)}
	case tagPong:
		pkt = Pong{ID: r.u8()}
	case tagSoftwareInfoResponse:
		pkt = SoftwareInfoResponse{Version: r.u16()}
	case tagMotorState:
		var s MotorState
		s.MotorID = r.u8()
		s.LastSpeed = Speed(r.i16())
		s.CurrentDraw = CurrentDraw(r.u16())
		s.IsFault = r.boolean()
		s.IsEnabled = r.boolean()
		pkt = s
	default:
		r.fail(&UnknownTagError{Enum: "DevicePacket", Tag: tag})
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	return pkt, nil
}

// Describe formats a packet for logs.
func Describe(p interface{}) string {
	return fmt.Sprintf("%T%+v", p, p)
}
