package comm

// MaxPacketSize bounds the serialized size of any packet, checksum included.
const MaxPacketSize = 32

// DefaultEncodeBufferSize is the frame buffer size used by transports.
const DefaultEncodeBufferSize = 128

// MaxFrameLen is the buffer size needed to frame a payload of n bytes,
// checksum excluded.
func MaxFrameLen(n int) int {
	return MaxStuffedLen(n+2) + 1
}

// EncodeHost frames a host packet into buf and returns the used part of buf.
// buf is left untouched if it can't hold a worst-case frame.
func EncodeHost(p HostPacket, buf []byte) ([]byte, error) {
	var scratch [MaxPacketSize]byte
	return encodeFrame(appendHost(scratch[:0], p), buf)
}

// EncodeDevice frames a device packet into buf and returns the used part of buf.
func EncodeDevice(p DevicePacket, buf []byte) ([]byte, error) {
	var scratch [MaxPacketSize]byte
	return encodeFrame(appendDevice(scratch[:0], p), buf)
}

// AppendHostFrame appends a framed host packet to dst.
func AppendHostFrame(dst []byte, p HostPacket) []byte {
	var scratch [MaxPacketSize]byte
	return appendFrame(dst, appendHost(scratch[:0], p))
}

// AppendDeviceFrame appends a framed device packet to dst.
func AppendDeviceFrame(dst []byte, p DevicePacket) []byte {
	var scratch [MaxPacketSize]byte
	return appendFrame(dst, appendDevice(scratch[:0], p))
}

func encodeFrame(payload, buf []byte) ([]byte, error) {
	if len(buf) < MaxFrameLen(len(payload)) {
		return nil, ErrBufferTooSmall
	}
	sum := Checksum16(payload)
	payload = append(payload, byte(sum), byte(sum>>8))
	n := cobsEncode(buf, payload)
	buf[n] = Delimiter
	return buf[:n+1], nil
}

func appendFrame(dst, payload []byte) []byte {
	start := len(dst)
	need := MaxFrameLen(len(payload))
	if cap(dst)-start < need {
		grown := make([]byte, start, start+need)
		copy(grown, dst)
		dst = grown
	}
	frame, _ := encodeFrame(payload, dst[start:start+need])
	return dst[:start+len(frame)]
}
