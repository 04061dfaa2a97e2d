//go:build linux

package kmp

import (
	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	300:   unix.B300,
	600:   unix.B600,
	1200:  unix.B1200,
	2400:  unix.B2400,
	4800:  unix.B4800,
	9600:  unix.B9600,
	19200: unix.B19200,
}

// fileUart is tty in raw non-blocking mode 8N2.
type fileUart struct {
	fd int
	rb [1]byte
}

func NewFileUart() *fileUart { return &fileUart{fd: -1} }

func (self *fileUart) Open(path string, baud int) error {
	if self.fd >= 0 {
		_ = self.Close()
	}
	if baud == 0 {
		baud = DefaultBaud
	}
	speed, ok := baudRates[baud]
	if !ok {
		return errors.NotSupportedf("baud=%d", baud)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0600)
	if err != nil {
		return errors.Annotatef(err, "open uart=%s", path)
	}
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return errors.Annotatef(err, "uart=%s TCGETS", path)
	}
	t.Iflag = unix.IGNBRK | unix.IGNPAR
	t.Oflag = 0
	t.Lflag = 0
	t.Cflag = unix.CS8 | unix.CSTOPB | unix.CREAD | unix.CLOCAL | speed
	t.Ispeed = speed
	t.Ospeed = speed
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
	// flush input and output
	if err = unix.IoctlSetTermios(fd, unix.TCSETSF, t); err != nil {
		unix.Close(fd)
		return errors.Annotatef(err, "uart=%s TCSETSF", path)
	}
	self.fd = fd
	return nil
}

func (self *fileUart) Close() error {
	if self.fd < 0 {
		return nil
	}
	err := unix.Close(self.fd)
	self.fd = -1
	return err
}

func (self *fileUart) Write(p []byte) (int, error) {
	n, err := unix.Write(self.fd, p)
	if err != nil {
		return n, errors.Trace(err)
	}
	// wait until transmitted, IR head echoes nothing before that
	if err = unix.IoctlSetInt(self.fd, unix.TCSBRK, 1); err != nil {
		return n, errors.Annotate(err, "tcdrain")
	}
	return n, nil
}

func (self *fileUart) Available() bool {
	n, err := unix.IoctlGetInt(self.fd, unix.TIOCINQ)
	return err == nil && n > 0
}

func (self *fileUart) ReadByte() (byte, error) {
	n, err := unix.Read(self.fd, self.rb[:])
	if err == unix.EAGAIN || (err == nil && n == 0) {
		return 0, ErrNoData
	}
	if err != nil {
		return 0, errors.Trace(err)
	}
	return self.rb[0], nil
}
