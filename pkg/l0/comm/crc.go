package comm

// CRC-16/USB: reflected polynomial 0x8005, init 0xffff, xorout 0xffff.
const crc16USBPoly = 0xa001

var crc16USBTable = makeCRC16Table(crc16USBPoly)

func makeCRC16Table(poly uint16) (table [256]uint16) {
	for n := range table {
		crc := uint16(n)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ poly
			} else {
				crc >>= 1
			}
		}
		table[n] = crc
	}
	return
}

// Checksum16 computes the frame checksum of data.
func Checksum16(data []byte) uint16 {
	crc := uint16(0xffff)
	for _, b := range data {
		crc = crc>>8 ^ crc16USBTable[byte(crc)^b]
	}
	return crc ^ 0xffff
}
