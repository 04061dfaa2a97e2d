package kmp

import "github.com/temoto/kamstrup/crc"

const (
	OpRead         byte = 0x3f
	OpReadRegister byte = 0x10
)

// RequestMessage returns sealed plain read request.
func RequestMessage(id RegisterID) []byte {
	return crc.Seal([]byte{OpRead, OpReadRegister, byte(id >> 8), byte(id)})
}

func BuildRequest(id RegisterID) []byte { return Encode(RequestMessage(id)) }
