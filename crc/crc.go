package crc

const CRC_POLY_1021 uint16 = 0x1021

// CRC16_p1021 shifts message bits MSB first through a 16 bit register
// without augmentation. Append two zero bytes to generate a checksum,
// sealed message must yield zero.
func CRC16_p1021(b []byte) uint16 {
	var reg uint32
	for _, x := range b {
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			reg <<= 1
			if x&mask != 0 {
				reg |= 1
			}
			if reg&0x10000 != 0 {
				reg &= 0xffff
				reg ^= uint32(CRC_POLY_1021)
			}
		}
	}
	return uint16(reg)
}

// Seal returns msg with two checksum bytes appended, high byte first.
func Seal(msg []byte) []byte {
	out := make([]byte, len(msg)+2)
	copy(out, msg)
	c := CRC16_p1021(out)
	out[len(msg)] = byte(c >> 8)
	out[len(msg)+1] = byte(c)
	return out
}

func Valid(sealed []byte) bool { return CRC16_p1021(sealed) == 0 }
