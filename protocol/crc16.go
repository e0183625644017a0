package protocol

// Frame trailers carry CRC-16/XMODEM: polynomial 0x1021, zero initial value,
// no reflection. Table-driven so the receive path costs one lookup per byte.

var crcTable [256]uint16

func init() {
	for i := range crcTable {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// Update feeds p into a running checksum.
func Update(crc uint16, p []byte) uint16 {
	for _, b := range p {
		crc = crc<<8 ^ crcTable[byte(crc>>8)^b]
	}
	return crc
}

// Sum is the checksum of p starting from zero.
func Sum(p []byte) uint16 {
	return Update(0, p)
}
