package kmp

import (
	"fmt"
	"math"

	"github.com/temoto/kamstrup/crc"
)

const (
	replyHeaderLength = 6
	maxMantissaLength = 8

	expMagnitudeMask byte = 0x3f
	expNegative      byte = 0x40
	valueNegative    byte = 0x80
)

// Reading is decoded value of one register.
type Reading struct {
	Register RegisterID
	Value    float64
}

func (self Reading) String() string {
	return fmt.Sprintf("%s=%g", self.Register, self.Value)
}

// DecodeReply interprets checksum-stripped reply message:
// [op, sub, addr-hi, addr-lo, length, exponent, mantissa...]
// Exponent byte: bits 0-5 magnitude, 0x40 negates exponent, 0x80 negates value.
func DecodeReply(id RegisterID, msg []byte) (Reading, error) {
	mismatch := func(format string, args ...interface{}) (Reading, error) {
		return Reading{}, ProtocolMismatch{Register: id, Reason: fmt.Sprintf(format, args...)}
	}
	if len(msg) < replyHeaderLength {
		return mismatch("reply=%x shorter than header", msg)
	}
	if msg[0] != OpRead || msg[1] != OpReadRegister {
		return mismatch("opcode=%02x%02x", msg[0], msg[1])
	}
	if got := RegisterID(msg[2])<<8 | RegisterID(msg[3]); got != id {
		return mismatch("reply register=%s", got)
	}
	length := int(msg[4])
	if length > maxMantissaLength {
		return mismatch("mantissa length=%d > max=%d", length, maxMantissaLength)
	}
	if len(msg) < replyHeaderLength+length {
		return mismatch("reply=%x claims mantissa length=%d", msg, length)
	}

	var mantissa uint64
	for _, b := range msg[replyHeaderLength : replyHeaderLength+length] {
		mantissa = mantissa<<8 | uint64(b)
	}
	expByte := msg[5]
	scale := math.Pow10(int(expByte & expMagnitudeMask))
	value := float64(mantissa)
	if expByte&expNegative != 0 {
		value /= scale
	} else {
		value *= scale
	}
	if expByte&valueNegative != 0 && value != 0 {
		value = -value
	}
	return Reading{Register: id, Value: value}, nil
}

// EncodeReply builds sealed reply message, meter side of DecodeReply.
func EncodeReply(id RegisterID, exp byte, mantissa []byte) []byte {
	msg := make([]byte, 0, replyHeaderLength+len(mantissa))
	msg = append(msg, OpRead, OpReadRegister, byte(id>>8), byte(id), byte(len(mantissa)), exp)
	msg = append(msg, mantissa...)
	return crc.Seal(msg)
}
