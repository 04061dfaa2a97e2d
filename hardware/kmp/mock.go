package kmp

// Public API to easy create meter stubs to test your code.
import (
	"bytes"
	"sync"
)

// MockTransport is in-memory Transport and Uarter.
// OnWrite may return bytes to be received after each Write.
type MockTransport struct {
	mu       sync.Mutex
	rx       bytes.Buffer
	sent     [][]byte
	OnWrite  func(frame []byte) []byte
	WriteErr error
}

func NewMockTransport() *MockTransport { return &MockTransport{} }

func (self *MockTransport) Open(path string, baud int) error { return nil }
func (self *MockTransport) Close() error                     { return nil }

// Feed appends bytes to receive buffer.
func (self *MockTransport) Feed(b []byte) {
	self.mu.Lock()
	self.rx.Write(b)
	self.mu.Unlock()
}

func (self *MockTransport) Write(p []byte) (int, error) {
	self.mu.Lock()
	if self.WriteErr != nil {
		self.mu.Unlock()
		return 0, self.WriteErr
	}
	frame := append([]byte(nil), p...)
	self.sent = append(self.sent, frame)
	onWrite := self.OnWrite
	self.mu.Unlock()

	if onWrite != nil {
		if reply := onWrite(frame); len(reply) != 0 {
			self.Feed(reply)
		}
	}
	return len(p), nil
}

func (self *MockTransport) Available() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.rx.Len() > 0
}

func (self *MockTransport) ReadByte() (byte, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.rx.Len() == 0 {
		return 0, ErrNoData
	}
	return self.rx.ReadByte()
}

// Sent returns copies of all written frames.
func (self *MockTransport) Sent() [][]byte {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([][]byte(nil), self.sent...)
}

type MockValue struct {
	Exp      byte
	Mantissa uint32
}

func (self MockValue) Reply(id RegisterID) []byte {
	m := self.Mantissa
	return EncodeReply(id, self.Exp, []byte{byte(m >> 24), byte(m >> 16), byte(m >> 8), byte(m)})
}

// NewMockMeter answers read requests from values.
// Unknown register or corrupted request gets no reply, like real meter.
func NewMockMeter(values map[RegisterID]MockValue) *MockTransport {
	m := NewMockTransport()
	m.OnWrite = func(frame []byte) []byte {
		if len(frame) < 2 || frame[0] != StartMarker || frame[len(frame)-1] != EndMarker {
			return nil
		}
		msg, err := Decode(frame[1:len(frame)-1], nil)
		if err != nil || len(msg) != 4 || msg[0] != OpRead || msg[1] != OpReadRegister {
			return nil
		}
		id := RegisterID(msg[2])<<8 | RegisterID(msg[3])
		v, ok := values[id]
		if !ok {
			return nil
		}
		return EncodeReplyFrame(v.Reply(id))
	}
	return m
}

func DefaultMockValues() map[RegisterID]MockValue {
	return map[RegisterID]MockValue{
		0x0001: {Exp: 0x41, Mantissa: 1234567}, // 123456.7 kWh
		0x0002: {Exp: 0x41, Mantissa: 0},
		0x03ff: {Exp: 0x00, Mantissa: 1520},
		0x041e: {Exp: 0x00, Mantissa: 231},
		0x041f: {Exp: 0x00, Mantissa: 229},
		0x0420: {Exp: 0x00, Mantissa: 233},
		0x0434: {Exp: 0x42, Mantissa: 152},
	}
}
