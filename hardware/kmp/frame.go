package kmp

import (
	"github.com/juju/errors"
	"github.com/temoto/kamstrup/crc"
)

const (
	StartMarker  byte = 0x80
	StrayStart   byte = 0x40 // meter starts replies with it, dropped on receipt
	EndMarker    byte = 0x0d
	EscapeMarker byte = 0x1b
	escapeXor    byte = 0xff
)

func IsReserved(b byte) bool {
	switch b {
	case 0x06, EndMarker, EscapeMarker, StrayStart, StartMarker:
		return true
	}
	return false
}

// Escape appends plain to dst replacing reserved values with escape pairs.
func Escape(dst, plain []byte) []byte {
	for _, b := range plain {
		if IsReserved(b) {
			dst = append(dst, EscapeMarker, b^escapeXor)
		} else {
			dst = append(dst, b)
		}
	}
	return dst
}

// Encode wraps sealed plain message into request frame.
// Checksum must be appended before, it is computed on unescaped bytes.
func Encode(plain []byte) []byte { return encodeFrame(StartMarker, plain) }

// EncodeReplyFrame is Encode as done by meter side.
func EncodeReplyFrame(plain []byte) []byte { return encodeFrame(StrayStart, plain) }

func encodeFrame(start byte, plain []byte) []byte {
	w := make([]byte, 0, len(plain)*2+2)
	w = append(w, start)
	w = Escape(w, plain)
	return append(w, EndMarker)
}

// Unescape reverses Escape. Escape pair yielding non reserved value is
// reported to warn (may be nil) and the recovered value is kept.
func Unescape(raw []byte, warn func(error)) ([]byte, error) {
	plain := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b != EscapeMarker {
			plain = append(plain, b)
			continue
		}
		if i+1 >= len(raw) {
			return nil, errors.NotValidf("kmp frame=%x truncated escape at=%d", raw, i)
		}
		i++
		b = raw[i] ^ escapeXor
		if !IsReserved(b) && warn != nil {
			warn(EscapeAnomaly{Offset: i - 1, Value: b})
		}
		plain = append(plain, b)
	}
	return plain, nil
}

// Decode takes bytes between start and end markers, returns message
// without checksum.
func Decode(raw []byte, warn func(error)) ([]byte, error) {
	plain, err := Unescape(raw, warn)
	if err != nil {
		return nil, err
	}
	if len(plain) < 2 {
		return nil, errors.NotValidf("kmp frame=%x shorter than checksum", raw)
	}
	if rem := crc.CRC16_p1021(plain); rem != 0 {
		return nil, ChecksumMismatch{Remainder: rem}
	}
	return plain[:len(plain)-2], nil
}
