package kmp

import (
	"fmt"

	"github.com/juju/errors"
)

// Returned by Transport.ReadByte when input buffer is empty.
var ErrNoData = errors.New("kmp: no data available")

type ChecksumMismatch struct {
	Remainder uint16
}

func (self ChecksumMismatch) Error() string {
	return fmt.Sprintf("kmp: checksum mismatch remainder=%04x", self.Remainder)
}

func IsChecksumMismatch(err error) bool {
	_, ok := errors.Cause(err).(ChecksumMismatch)
	return ok
}

// EscapeAnomaly is a warning, not a failure: decoding continues with Value.
type EscapeAnomaly struct {
	Offset int
	Value  byte
}

func (self EscapeAnomaly) Error() string {
	return fmt.Sprintf("kmp: escaped value=%02x at=%d is not reserved", self.Value, self.Offset)
}

func IsEscapeAnomaly(err error) bool {
	_, ok := errors.Cause(err).(EscapeAnomaly)
	return ok
}

// ProtocolMismatch means valid frame which does not answer the request.
type ProtocolMismatch struct {
	Register RegisterID
	Reason   string
}

func (self ProtocolMismatch) Error() string {
	return fmt.Sprintf("kmp: reply does not match request register=%s: %s", self.Register, self.Reason)
}

func IsProtocolMismatch(err error) bool {
	_, ok := errors.Cause(err).(ProtocolMismatch)
	return ok
}

// IsRecoverable reports per-request failures worth another attempt.
// Transport IO errors are not.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	cause := errors.Cause(err)
	switch {
	case errors.IsTimeout(err), errors.IsNotValid(err):
		return true
	case cause == ErrBufferOverflow:
		return true
	case IsChecksumMismatch(err), IsProtocolMismatch(err):
		return true
	}
	return false
}
