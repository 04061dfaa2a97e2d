//go:build !linux

package kmp

import (
	"github.com/juju/errors"
)

type fileUart struct{}

func NewFileUart() *fileUart { return &fileUart{} }

func (self *fileUart) Open(path string, baud int) error {
	return errors.NotSupportedf("file uart driver on this OS, use driver=serial")
}
func (self *fileUart) Close() error                { return nil }
func (self *fileUart) Write(p []byte) (int, error) { return 0, errors.NotSupportedf("file uart") }
func (self *fileUart) Available() bool             { return false }
func (self *fileUart) ReadByte() (byte, error)     { return 0, ErrNoData }
