// Package comm provides the L0 protocol between the motor driver board
// and its host.
package comm

// Every message travels as one frame:
//
//	cobs( serialize(msg) ++ crc16_le(serialize(msg)) ) ++ 0x00
//
// Serialization is compatible with postcard: enum tags and unsigned
// integers wider than a byte are LEB128 varints, signed integers are
// zigzag varints, u8 and bool take a single byte.
//
// The checksum is CRC-16/USB over the serialized bytes. COBS guarantees
// the payload contains no zero byte so 0x00 only ever delimits frames,
// which lets a receiver resynchronize on the next delimiter after any
// corruption.
//
// Producer/consumer: the board firmware decodes HostPackets and encodes
// DevicePackets; the host does the opposite.
