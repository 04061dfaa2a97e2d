package kmp

import (
	"time"

	"github.com/juju/errors"
	"go.bug.st/serial"
)

const serialPollTimeout = 2 * time.Millisecond

// serialUart is portable driver on go.bug.st/serial.
// Available is emulated with one byte lookahead and short read timeout.
type serialUart struct {
	port    serial.Port
	pending byte
	has     bool
	err     error
}

func NewSerialUart() *serialUart { return &serialUart{} }

func (self *serialUart) Open(path string, baud int) error {
	if self.port != nil {
		_ = self.Close()
	}
	if baud == 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return errors.Annotatef(err, "open uart=%s", path)
	}
	if err = port.SetReadTimeout(serialPollTimeout); err != nil {
		port.Close()
		return errors.Annotatef(err, "uart=%s set read timeout", path)
	}
	if err = port.ResetInputBuffer(); err != nil {
		port.Close()
		return errors.Annotatef(err, "uart=%s reset input", path)
	}
	self.port = port
	self.has, self.err = false, nil
	return nil
}

func (self *serialUart) Close() error {
	if self.port == nil {
		return nil
	}
	err := self.port.Close()
	self.port = nil
	return err
}

func (self *serialUart) Write(p []byte) (int, error) {
	n, err := self.port.Write(p)
	if err != nil {
		return n, errors.Trace(err)
	}
	return n, errors.Annotate(self.port.Drain(), "drain")
}

func (self *serialUart) Available() bool {
	if self.has || self.err != nil {
		return true
	}
	var b [1]byte
	n, err := self.port.Read(b[:])
	switch {
	case err != nil:
		self.err = err
		return true
	case n == 1:
		self.pending, self.has = b[0], true
		return true
	}
	return false
}

func (self *serialUart) ReadByte() (byte, error) {
	if !self.Available() {
		return 0, ErrNoData
	}
	if self.err != nil {
		err := self.err
		self.err = nil
		return 0, errors.Trace(err)
	}
	self.has = false
	return self.pending, nil
}
