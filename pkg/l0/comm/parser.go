package comm

import "bytes"

// Delimiter terminates every frame.
const Delimiter byte = 0x00

// DefaultDecoderCapacity is the scratch size used by the firmware.
const DefaultDecoderCapacity = 128

// FeedKind is the outcome of Decoder.Feed.
type FeedKind int

const (
	// Consumed means all input was buffered, no frame is complete yet.
	Consumed FeedKind = iota
	// Success means a frame decoded into Value.
	Success
	// DecodeError means a frame was delimited but failed unstuffing,
	// checksum or schema validation. It was discarded.
	DecodeError
	// Overfull means the frame didn't fit the scratch buffer and was discarded.
	Overfull
)

func (k FeedKind) String() string {
	switch k {
	case Consumed:
		return "consumed"
	case Success:
		return "success"
	case DecodeError:
		return "decode error"
	case Overfull:
		return "overfull"
	}
	return "invalid"
}

// FeedResult is the result of one Feed step.
// Remaining is the part of the input that still has to be fed.
type FeedResult[T any] struct {
	Kind      FeedKind
	Value     T
	Remaining []byte
	Err       error
}

// Decoder reassembles frames from an arbitrarily chunked byte stream.
// Bytes buf[:idx] form an unterminated partial frame; idx <= len(buf) always.
type Decoder[T any] struct {
	buf       []byte
	idx       int
	unmarshal func([]byte) (T, error)
}

// NewDecoder creates a decoder with a fixed scratch capacity.
func NewDecoder[T any](capacity int, unmarshal func([]byte) (T, error)) *Decoder[T] {
	if capacity < 3 {
		panic("comm: decoder capacity too small for a checksummed frame")
	}
	return &Decoder[T]{buf: make([]byte, capacity), unmarshal: unmarshal}
}

// NewHostDecoder decodes frames sent by the host. Used by the firmware.
func NewHostDecoder(capacity int) *Decoder[HostPacket] {
	return NewDecoder(capacity, UnmarshalHost)
}

// NewDeviceDecoder decodes frames sent by the board. Used by the host.
func NewDeviceDecoder(capacity int) *Decoder[DevicePacket] {
	return NewDecoder(capacity, UnmarshalDevice)
}

// Capacity returns the scratch capacity.
func (d *Decoder[T]) Capacity() int {
	return len(d.buf)
}

// Buffered returns the length of the pending partial frame.
func (d *Decoder[T]) Buffered() int {
	return d.idx
}

// Reset drops the pending partial frame.
func (d *Decoder[T]) Reset() {
	d.idx = 0
}

// Feed appends input and decodes at most one frame.
// Callers must loop, feeding Remaining, until the result is Consumed.
func (d *Decoder[T]) Feed(input []byte) (res FeedResult[T]) {
	if len(input) == 0 {
		return
	}

	n := bytes.IndexByte(input, Delimiter)
	if n < 0 {
		if d.idx+len(input) > len(d.buf) {
			res.Kind, res.Remaining, res.Err = Overfull, input[len(d.buf)-d.idx:], ErrFrameTooLarge
			d.idx = 0
			return
		}
		d.idx += copy(d.buf[d.idx:], input)
		return
	}

	take, release := input[:n+1], input[n+1:]
	res.Remaining = release
	if d.idx+len(take) > len(d.buf) {
		res.Kind, res.Err = Overfull, ErrFrameTooLarge
		d.idx = 0
		return
	}
	// the delimiter itself is not part of the stuffed frame
	d.idx += copy(d.buf[d.idx:], take[:n])
	frame := d.buf[:d.idx]
	d.idx = 0

	value, err := d.decodeFrame(frame)
	if err != nil {
		res.Kind, res.Err = DecodeError, err
		return
	}
	res.Kind, res.Value = Success, value
	return
}

func (d *Decoder[T]) decodeFrame(frame []byte) (value T, err error) {
	n, err := cobsDecodeInPlace(frame)
	if err != nil {
		return
	}
	if n < 2 {
		err = ErrUnexpectedEnd
		return
	}
	payload, sum := frame[:n-2], uint16(frame[n-2])|uint16(frame[n-1])<<8
	if Checksum16(payload) != sum {
		err = ErrChecksum
		return
	}
	return d.unmarshal(payload)
}
