package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferTooSmall indicates the output buffer can't hold a worst-case frame.
	ErrBufferTooSmall = errors.New("comm: buffer too small")
	// ErrFrameTooLarge indicates a frame exceeding the decoder capacity.
	ErrFrameTooLarge = errors.New("comm: frame too large")
	// ErrUnexpectedEnd indicates a message ended before all fields were read.
	ErrUnexpectedEnd = errors.New("comm: unexpected end of message")
	// ErrTrailingBytes indicates extra bytes after a complete message.
	ErrTrailingBytes = errors.New("comm: trailing bytes")
	// ErrBadVarint indicates a varint overflowing its target width.
	ErrBadVarint = errors.New("comm: bad varint")
	// ErrBadBool indicates a bool encoded as something other than 0 or 1.
	ErrBadBool = errors.New("comm: bad bool")
	// ErrChecksum indicates the CRC doesn't match the payload.
	ErrChecksum = errors.New("comm: checksum mismatch")
	// ErrCOBS indicates a malformed stuffed frame.
	ErrCOBS = errors.New("comm: bad cobs encoding")
	// ErrNotReady indicates the client isn't running.
	ErrNotReady = errors.New("comm: not ready")
	// ErrNoBoard indicates no attached board was found.
	ErrNoBoard = errors.New("comm: no board found")
	// ErrNoReply indicates no reply was received for a request.
	// This happens when a reply arrives for a later request: the board answers
	// in order, so earlier requests were lost.
	ErrNoReply = errors.New("comm: no reply")
)

// UnknownTagError indicates an enum tag with no known variant.
type UnknownTagError struct {
	Enum string
	Tag  uint32
}

// Error implements error.
func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("comm: unknown %s tag %d", e.Enum, e.Tag)
}

// DeviceError is an Error packet reported by the board.
type DeviceError struct {
	Kind ErrorKind
}

// Error implements error.
func (e *DeviceError) Error() string {
	return "device error: " + e.Kind.String()
}
