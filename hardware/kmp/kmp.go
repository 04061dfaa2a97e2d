// Package kmp implements meter register reads over infrared serial link:
// request framing with escapes and CRC-16, receive with deadline,
// reply validation and mantissa/exponent decoding.
package kmp

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/kamstrup/helpers"
	"github.com/temoto/kamstrup/log2"
)

// Transport is raw half-duplex byte channel.
// ReadByte returns ErrNoData when nothing is buffered.
type Transport interface {
	Write(p []byte) (int, error)
	ReadByte() (byte, error)
	Available() bool
}

type Uarter interface {
	Transport
	Open(path string, baud int) error
	Close() error
}

const DefaultBaud = 1200

func NewUarter(driver string) (Uarter, error) {
	switch driver {
	case "", "file":
		return NewFileUart(), nil
	case "serial":
		return NewSerialUart(), nil
	case "mock":
		return NewMockMeter(DefaultMockValues()), nil
	}
	return nil, errors.NotSupportedf("uart driver=%s", driver)
}

const DefaultAttempts = 15

// RetryPolicy is passed by caller, client keeps no retry state between reads.
type RetryPolicy struct {
	Attempts int
	Backoff  *helpers.Backoff
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: DefaultAttempts,
		Backoff:  &helpers.Backoff{Min: 50 * time.Millisecond, Max: time.Second, K: 2},
	}
}

type Options struct {
	Timeout time.Duration
	Retry   RetryPolicy
	Log     *log2.Log
}

type Stat struct {
	Requests        uint32
	Replies         uint32
	Timeouts        uint32
	ChecksumErrors  uint32
	ProtocolErrors  uint32
	EscapeAnomalies uint32
}

// Client serializes register reads on one transport.
type Client struct {
	Log *log2.Log

	io      Transport
	lk      sync.Mutex
	retry   RetryPolicy
	stat    Stat
	timeout time.Duration
}

func NewClient(t Transport, opt Options) *Client {
	if opt.Timeout <= 0 {
		opt.Timeout = DefaultTimeout
	}
	if opt.Retry.Attempts <= 0 {
		opt.Retry.Attempts = 1
	}
	return &Client{
		Log:     opt.Log,
		io:      t,
		retry:   opt.Retry,
		timeout: opt.Timeout,
	}
}

func (self *Client) Stat() Stat {
	return Stat{
		Requests:        atomic.LoadUint32(&self.stat.Requests),
		Replies:         atomic.LoadUint32(&self.stat.Replies),
		Timeouts:        atomic.LoadUint32(&self.stat.Timeouts),
		ChecksumErrors:  atomic.LoadUint32(&self.stat.ChecksumErrors),
		ProtocolErrors:  atomic.LoadUint32(&self.stat.ProtocolErrors),
		EscapeAnomalies: atomic.LoadUint32(&self.stat.EscapeAnomalies),
	}
}

// Tx performs single request/response cycle, no retries.
func (self *Client) Tx(id RegisterID) (Reading, error) {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.tx(id)
}

// ReadRegister is Tx with client default RetryPolicy.
func (self *Client) ReadRegister(id RegisterID) (Reading, error) {
	return self.ReadRegisterRetry(id, self.retry)
}

// ReadRegisterRetry repeats recoverable failures up to policy.Attempts
// and returns last error, never a zero reading.
func (self *Client) ReadRegisterRetry(id RegisterID, policy RetryPolicy) (Reading, error) {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	self.lk.Lock()
	defer self.lk.Unlock()

	if policy.Backoff != nil {
		policy.Backoff.Reset()
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if policy.Backoff != nil {
			time.Sleep(policy.Backoff.DelayBefore())
		}
		var r Reading
		r, err = self.tx(id)
		if policy.Backoff != nil {
			policy.Backoff.Update(err == nil)
		}
		if err == nil {
			return r, nil
		}
		if !IsRecoverable(err) {
			break
		}
		self.Log.Infof("kmp register=%s attempt=%d/%d err=%v", id, i, attempts, err)
	}
	return Reading{}, errors.Annotatef(err, "kmp register=%s", id)
}

func (self *Client) tx(id RegisterID) (Reading, error) {
	self.drain()
	request := BuildRequest(id)
	atomic.AddUint32(&self.stat.Requests, 1)
	if err := helpers.WriteAll(self.io, request); err != nil {
		return Reading{}, errors.Annotatef(err, "kmp write request=%x", request)
	}

	msg, err := Receive(self.io, self.timeout, self.warn)
	self.Log.Debugf("kmp.Tx register=%s (multi-line)\n> (%02d) %s\n< (%02d) %s\nerr=%v",
		id, len(request), FormatBytes(request), len(msg), FormatBytes(msg), err)
	switch {
	case err == nil:
	case errors.IsTimeout(err):
		atomic.AddUint32(&self.stat.Timeouts, 1)
		return Reading{}, errors.Trace(err)
	case IsChecksumMismatch(err):
		atomic.AddUint32(&self.stat.ChecksumErrors, 1)
		return Reading{}, errors.Trace(err)
	default:
		return Reading{}, errors.Trace(err)
	}
	atomic.AddUint32(&self.stat.Replies, 1)

	r, err := DecodeReply(id, msg)
	if err != nil {
		atomic.AddUint32(&self.stat.ProtocolErrors, 1)
		return Reading{}, errors.Trace(err)
	}
	return r, nil
}

func (self *Client) warn(e error) {
	atomic.AddUint32(&self.stat.EscapeAnomalies, 1)
	self.Log.Warnf("%v", e)
}

// Discards stale input, e.g. late reply to previous timed out request.
func (self *Client) drain() {
	for i := 0; i < PacketMaxLength*2 && self.io.Available(); i++ {
		b, err := self.io.ReadByte()
		if err != nil {
			return
		}
		self.Log.Debugf("kmp drain stale byte=%02x", b)
	}
}
