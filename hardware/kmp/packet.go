package kmp

import (
	"encoding/hex"
	"strings"

	"github.com/juju/errors"
)

// Longest unescaped reply seen from meters is well below this.
const PacketMaxLength = 100

var ErrBufferOverflow = errors.New("kmp: reply larger than max packet size")

// Packet is fixed capacity receive buffer.
// Zero value is empty packet ready to use.
type Packet struct {
	b [PacketMaxLength]byte
	l int
}

func PacketFromBytes(b []byte) (Packet, error) {
	p := Packet{}
	if len(b) > PacketMaxLength {
		return p, ErrBufferOverflow
	}
	p.l = copy(p.b[:], b)
	return p, nil
}

func PacketFromHex(s string) (Packet, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Packet{}, errors.Annotatef(err, "packet hex=%s", s)
	}
	return PacketFromBytes(b)
}

func (self *Packet) Reset() { self.l = 0 }

func (self *Packet) AppendByte(b byte) error {
	if self.l >= PacketMaxLength {
		return ErrBufferOverflow
	}
	self.b[self.l] = b
	self.l++
	return nil
}

func (self *Packet) Bytes() []byte { return self.b[:self.l] }

func (self *Packet) Len() int { return self.l }

func (self *Packet) Format() string { return FormatBytes(self.Bytes()) }

// FormatBytes renders hex grouped by 4 bytes for logs.
func FormatBytes(b []byte) string {
	h := hex.EncodeToString(b)
	hlen := len(h)
	if hlen == 0 {
		return ""
	}
	ss := make([]string, 0, (hlen/8)+1)
	for i := 0; i < hlen; i += 8 {
		hi := i + 8
		if hi > hlen {
			hi = hlen
		}
		ss = append(ss, h[i:hi])
	}
	return strings.Join(ss, " ")
}
